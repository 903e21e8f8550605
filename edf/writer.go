// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	bw          *bufio.Writer
	hdr         *Header
	dataRecords int // Number of data records written so far.
	scratch     [2]byte
}

// Create creates a new EDF writer that writes to the given writer. The
// header is copied; the caller may keep mutating its own value.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	hdr = hdr.Clone()
	hdr.SignalCount = len(hdr.Signals)
	hdr.DataRecords = -1 // Unknown number of data records (at this time).

	// Calibrate against the values readers will see in the header.
	for i := range hdr.Signals {
		hdr.Signals[i].PhysicalMin = storedPhysicalValue(hdr.Signals[i].PhysicalMin)
		hdr.Signals[i].PhysicalMax = storedPhysicalValue(hdr.Signals[i].PhysicalMax)
	}

	ew := &Writer{w: w, hdr: &hdr}

	// Write the initial header
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	ew.bw = bufio.NewWriter(w)

	return ew, nil
}

// Records returns the number of data records written so far.
func (ew *Writer) Records() int {
	return ew.dataRecords
}

// Close finalizes the EDF file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	if err := ew.bw.Flush(); err != nil {
		return fmt.Errorf("error flushing data records: %w", err)
	}

	// Finalize the header with the actual number of data records
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record of physical values to the EDF file.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	if err := ew.checkShape(len(signals), func(i int) int { return len(signals[i]) }); err != nil {
		return err
	}

	for i, samples := range signals {
		signal := ew.hdr.Signals[i]
		for _, sample := range samples {
			digitalValue := convertPhysicalToDigital(sample, signal.PhysicalMin, signal.PhysicalMax, signal.DigitalMin, signal.DigitalMax)
			if err := ew.writeSample(digitalValue); err != nil {
				return err
			}
		}
	}

	ew.dataRecords++
	return nil
}

// WriteDigitalRecord writes a single data record of raw digital values, bypassing calibration.
func (ew *Writer) WriteDigitalRecord(signals [][]int16) error {
	if err := ew.checkShape(len(signals), func(i int) int { return len(signals[i]) }); err != nil {
		return err
	}

	for _, samples := range signals {
		for _, sample := range samples {
			if err := ew.writeSample(sample); err != nil {
				return err
			}
		}
	}

	ew.dataRecords++
	return nil
}

func (ew *Writer) checkShape(n int, lenOf func(i int) int) error {
	if n != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, n)
	}
	for i := 0; i < n; i++ {
		if want := ew.hdr.Signals[i].SamplesPerRecord; lenOf(i) != want {
			return fmt.Errorf("signal %d: expected %d samples per record, got %d", i, want, lenOf(i))
		}
	}
	return nil
}

func (ew *Writer) writeSample(v int16) error {
	binary.LittleEndian.PutUint16(ew.scratch[:], uint16(v))
	_, err := ew.bw.Write(ew.scratch[:])
	return err
}

// writeHeader writes the EDF header at the start of the underlying writer.
func (ew *Writer) writeHeader() error {
	// Rewind to the beginning of the file.
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	writer := bufio.NewWriter(ew.w)
	put := func(s string, width int) {
		// bufio.Writer keeps the first error and reports it on Flush.
		_, _ = writer.WriteString(field(s, width))
	}

	// Version, patient and recording IDs
	put(string(ew.hdr.Version), 8)
	put(ew.hdr.PatientID, 80)
	put(ew.hdr.RecordingID, 80)

	// Start date and time
	put(ew.hdr.StartTime.Format("02.01.06"), 8)
	put(ew.hdr.StartTime.Format("15.04.05"), 8)

	ew.hdr.HeaderBytes = 256 + (ew.hdr.SignalCount * 256)
	put(strconv.Itoa(ew.hdr.HeaderBytes), 8)
	put(ew.hdr.Reserved, 44)
	put(strconv.Itoa(ew.hdr.DataRecords), 8)
	put(formatSeconds(ew.hdr.DataRecordDuration.Seconds()), 8)
	put(strconv.Itoa(ew.hdr.SignalCount), 4)

	// Signal details, one field at a time for every signal.
	for _, signal := range ew.hdr.Signals {
		put(signal.Label, 16)
	}
	for _, signal := range ew.hdr.Signals {
		put(signal.TransducerType, 80)
	}
	for _, signal := range ew.hdr.Signals {
		put(signal.PhysicalDimension, 8)
	}
	for _, signal := range ew.hdr.Signals {
		put(formatPhysicalValue(signal.PhysicalMin), 8)
	}
	for _, signal := range ew.hdr.Signals {
		put(formatPhysicalValue(signal.PhysicalMax), 8)
	}
	for _, signal := range ew.hdr.Signals {
		put(strconv.Itoa(signal.DigitalMin), 8)
	}
	for _, signal := range ew.hdr.Signals {
		put(strconv.Itoa(signal.DigitalMax), 8)
	}
	for _, signal := range ew.hdr.Signals {
		put(signal.Prefiltering, 80)
	}
	for _, signal := range ew.hdr.Signals {
		put(strconv.Itoa(signal.SamplesPerRecord), 8)
	}
	for _, signal := range ew.hdr.Signals {
		put(signal.Reserved, 32)
	}

	// Ensure all data is flushed to the underlying writer
	if err := writer.Flush(); err != nil {
		return err
	}

	// Leave the writer positioned after the header for the data records.
	_, err := ew.w.Seek(int64(ew.hdr.HeaderBytes)+int64(ew.dataRecords)*int64(ew.hdr.recordSize()), io.SeekStart)
	return err
}

// convertPhysicalToDigital converts a physical value to a digital value using the calibration factors.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int16 {
	if pmax == pmin {
		return 0 // Avoid division by zero
	}
	digital := math.Round(((physical - pmin) * (float64(dmax - dmin)) / (pmax - pmin)) + float64(dmin))
	digital = math.Max(float64(dmin), math.Min(float64(dmax), digital))
	return int16(digital)
}

// formatPhysicalValue returns the most precise rendering of val that fits
// the 8 character physical min/max field.
func formatPhysicalValue(val float64) string {
	s := strconv.FormatFloat(val, 'f', -1, 64)
	for prec := 8; len(s) > 8 && prec >= 0; prec-- {
		s = strconv.FormatFloat(val, 'f', prec, 64)
		if strings.Contains(s, ".") {
			s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
		}
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

func storedPhysicalValue(val float64) float64 {
	v, err := strconv.ParseFloat(formatPhysicalValue(val), 64)
	if err != nil {
		return val
	}
	return v
}

func formatSeconds(sec float64) string {
	s := strconv.FormatFloat(sec, 'f', -1, 64)
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

// field left-justifies s in a fixed-width ASCII field, truncating overlong values.
func field(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return fmt.Sprintf("%-*s", width, s)
}
