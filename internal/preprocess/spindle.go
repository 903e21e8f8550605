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
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/OpenPSG/edfprep/edf"
	"github.com/OpenPSG/edfprep/internal/logging"
)

// SpindleSuffix is inserted before the extension of reduced-channel files.
const SpindleSuffix = "_SPINDLE"

// Spindle writes a copy of a recording restricted to a subset of channels,
// for upload to the SPINDLE sleep scoring service.
type Spindle struct {
	Channels []int // output channels as source indices, in output order
	Verbose  bool
	Log      logging.Logger
}

func (s Spindle) Name() string { return "spindle" }

// Apply writes <stem>_SPINDLE<ext> for the recording at path into savedir.
// Samples are copied as stored, without recalibration.
func (s Spindle) Apply(ctx context.Context, path, savedir string) (err error) {
	if len(s.Channels) == 0 {
		return errors.New("no channels requested")
	}

	er, closeReader, err := edf.OpenFile(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeReader())
	}()

	hdr := er.Header()
	out := hdr.Clone()
	out.Signals = make([]edf.Signal, len(s.Channels))
	for i, ch := range s.Channels {
		if ch < 0 || ch >= len(hdr.Signals) {
			return &InvalidChannelError{Channel: ch, Count: len(hdr.Signals)}
		}
		out.Signals[i] = hdr.Signals[ch]
	}

	dst := filepath.Join(savedir, OutputName(path, SpindleSuffix))
	log := s.Log.With(logging.String("file", filepath.Base(path)))
	progress := rate.Sometimes{Interval: time.Second}

	return edf.WriteFile(dst, out, func(w *edf.Writer) error {
		selected := make([][]int16, len(s.Channels))
		for i := 0; i < hdr.DataRecords; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			record, err := er.ReadRecord(i)
			if err != nil {
				return err
			}
			for j, ch := range s.Channels {
				selected[j] = record[ch]
			}
			if err := w.WriteDigitalRecord(selected); err != nil {
				return err
			}

			if s.Verbose {
				progress.Do(func() {
					log.Debug("writing", logging.Int("records", i+1), logging.Int("of", hdr.DataRecords))
				})
			}
		}
		if s.Verbose {
			log.Info("saved", logging.String("path", dst), logging.Ints("channels", s.Channels))
		}
		return nil
	})
}

// OutputName returns the base name of path with suffix inserted before the extension.
func OutputName(path, suffix string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)] + suffix + ext
}
