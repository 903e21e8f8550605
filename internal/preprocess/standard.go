// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package preprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/OpenPSG/edfprep/edf"
	"github.com/OpenPSG/edfprep/internal/logging"
	"github.com/OpenPSG/edfprep/internal/resample"
)

// StandardSuffix is inserted before the extension of trimmed and downsampled files.
const StandardSuffix = "_PREPROCESSED"

// Standard trims a recording to the largest allowed duration and reduces its
// sample rate.
type Standard struct {
	FS         float64   // source rate in Hz, 0 to take it from the header
	Downsample int       // integer decimation factor
	TrimTo     []float64 // allowed durations in hours, ascending
	ChunkSize  int       // samples per channel read at a time, in whole records
	Verbose    bool      // log write progress
	Log        logging.Logger
}

func (s Standard) Name() string { return "standard" }

// Apply writes <stem>_PREPROCESSED<ext> for the recording at path into savedir.
// EDF+ annotation signals are left out of the output.
func (s Standard) Apply(ctx context.Context, path, savedir string) (err error) {
	er, closeReader, err := edf.OpenFile(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeReader())
	}()

	hdr := er.Header()
	channels := dataSignals(hdr)
	fs, err := s.sampleRate(hdr, channels)
	if err != nil {
		return err
	}

	m := s.Downsample
	if m < 1 {
		return fmt.Errorf("invalid downsample factor: %d", m)
	}
	for _, i := range channels {
		if n := hdr.Signals[i].SamplesPerRecord; n%m != 0 {
			return &HeaderConsistencyError{
				Signal: i,
				Reason: fmt.Sprintf("downsample factor %d does not divide %d samples per record", m, n),
			}
		}
	}

	perRecord := hdr.Signals[channels[0]].SamplesPerRecord
	stop, err := PlanTrim(hdr.Samples(channels[0]), fs, s.TrimTo, perRecord)
	if err != nil {
		return err
	}
	stopRecords := stop / perRecord

	src := between(ctx, er, channels, 0, stopRecords, s.ChunkSize/perRecord)
	decimated, err := resample.Decimate(src, m)
	if err != nil {
		return err
	}

	out := downsampledHeader(hdr, channels, m)
	outPerRecord := make([]int, len(out.Signals))
	for i, sig := range out.Signals {
		outPerRecord[i] = sig.SamplesPerRecord
	}

	dst := filepath.Join(savedir, OutputName(path, StandardSuffix))
	log := s.Log.With(logging.String("file", filepath.Base(path)))
	log.Debug("trim planned",
		logging.Float64("fs", fs),
		logging.Float64("hours", float64(stop)/(3600*fs)),
		logging.Int("records", stopRecords),
	)

	progress := rate.Sometimes{Interval: time.Second}
	return edf.WriteFile(dst, out, func(w *edf.Writer) error {
		framer := newRecordFramer(outPerRecord)
		for {
			chunk, err := decimated.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}

			framer.push(chunk)
			for record := framer.pop(); record != nil; record = framer.pop() {
				if err := w.WriteRecord(record); err != nil {
					return err
				}
			}

			if s.Verbose {
				progress.Do(func() {
					log.Debug("writing", logging.Int("records", w.Records()), logging.Int("of", stopRecords))
				})
			}
		}

		if framer.buffered(0) != 0 || w.Records() != stopRecords {
			return &HeaderConsistencyError{
				Signal: -1,
				Reason: fmt.Sprintf("wrote %d records with %d samples left over, expected %d records", w.Records(), framer.buffered(0), stopRecords),
			}
		}
		if s.Verbose {
			log.Info("saved", logging.String("path", dst), logging.Int("records", w.Records()))
		}
		return nil
	})
}

// dataSignals returns the indices of the signals that hold measurements.
func dataSignals(hdr edf.Header) []int {
	var channels []int
	for i, sig := range hdr.Signals {
		if !sig.IsAnnotation() {
			channels = append(channels, i)
		}
	}
	return channels
}

// sampleRate returns the shared sample rate of the given signals, checking
// it against the configured rate when one is set.
func (s Standard) sampleRate(hdr edf.Header, channels []int) (float64, error) {
	if len(channels) == 0 {
		return 0, &HeaderConsistencyError{Signal: -1, Reason: "recording has no data signals"}
	}
	if hdr.DataRecordDuration <= 0 {
		return 0, &HeaderConsistencyError{Signal: -1, Reason: "data record duration must be positive"}
	}

	fs := hdr.SampleRate(channels[0])
	for _, i := range channels {
		if r := hdr.SampleRate(i); r != fs {
			return 0, &HeaderConsistencyError{
				Signal: i,
				Reason: fmt.Sprintf("sample rate %g Hz differs from signal %d (%g Hz)", r, channels[0], fs),
			}
		}
	}
	if s.FS != 0 && math.Abs(s.FS-fs) > 1e-9*fs {
		return 0, &HeaderConsistencyError{
			Signal: -1,
			Reason: fmt.Sprintf("configured sample rate %g Hz, header records %g Hz", s.FS, fs),
		}
	}
	return fs, nil
}

// downsampledHeader derives the output header for the given signals of hdr.
// The number of data records is filled in by the writer from the records it
// writes.
func downsampledHeader(hdr edf.Header, channels []int, factor int) edf.Header {
	out := hdr.Clone()
	out.Signals = make([]edf.Signal, len(channels))
	for i, ch := range channels {
		out.Signals[i] = hdr.Signals[ch]
		out.Signals[i].SamplesPerRecord /= factor
	}
	// Written as plain EDF, not EDF+.
	out.Reserved = ""
	return out
}
