// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package preprocess_test

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/edfprep/edf"
	"github.com/stretchr/testify/require"
)

// writeRecording writes a synthetic recording of the given length. Signal 0
// holds a constant 100 uV, the others a slow 0.5 Hz sine scaled by the
// signal index.
func writeRecording(t *testing.T, dir, name string, signals, fs, seconds int) string {
	t.Helper()

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "X X X X",
		RecordingID:        "Startdate 01-JAN-2024 X X X",
		StartTime:          time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		Reserved:           edf.ReservedEDFPlusContinuous,
		DataRecordDuration: time.Second,
	}
	for i := 0; i < signals; i++ {
		hdr.Signals = append(hdr.Signals, edf.Signal{
			Label:             fmt.Sprintf("EEG %d", i),
			TransducerType:    "AgAgCl electrode",
			PhysicalDimension: "uV",
			PhysicalMin:       -3276.8,
			PhysicalMax:       3276.7,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  fs,
		})
	}

	path := filepath.Join(dir, name)
	err := edf.WriteFile(path, hdr, func(w *edf.Writer) error {
		for r := 0; r < seconds; r++ {
			record := make([][]float64, signals)
			for s := range record {
				record[s] = make([]float64, fs)
				for j := range record[s] {
					if s == 0 {
						record[s][j] = 100
						continue
					}
					tm := float64(r) + float64(j)/float64(fs)
					record[s][j] = float64(s) * 50 * math.Sin(2*math.Pi*0.5*tm)
				}
			}
			if err := w.WriteRecord(record); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return path
}

func openRecording(t *testing.T, path string) *edf.Reader {
	t.Helper()

	er, closeFn, err := edf.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, closeFn())
	})
	return er
}
