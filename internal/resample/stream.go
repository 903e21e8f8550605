// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package resample reduces the sample rate of multichannel signals that are
// produced lazily, one chunk at a time.
package resample

import (
	"errors"
	"io"
)

// Stream yields successive chunks of multichannel samples. Each chunk holds
// one slice per channel; all slices of a chunk have the same length. Next
// returns io.EOF once the sequence is exhausted.
type Stream interface {
	Next() ([][]float64, error)
}

// StreamFunc adapts a function to the Stream interface.
type StreamFunc func() ([][]float64, error)

func (f StreamFunc) Next() ([][]float64, error) { return f() }

// FromSlices returns a stream over in-memory channel data, yielding at most
// chunk samples per step.
func FromSlices(data [][]float64, chunk int) Stream {
	if chunk <= 0 {
		chunk = 1
	}
	n := 0
	if len(data) > 0 {
		n = len(data[0])
	}
	pos := 0
	return StreamFunc(func() ([][]float64, error) {
		if pos >= n {
			return nil, io.EOF
		}
		end := min(pos+chunk, n)
		out := make([][]float64, len(data))
		for c := range data {
			out[c] = data[c][pos:end]
		}
		pos = end
		return out, nil
	})
}

// Collect drains s and concatenates its chunks per channel.
func Collect(s Stream) ([][]float64, error) {
	var out [][]float64
	for {
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make([][]float64, len(chunk))
		}
		for c := range chunk {
			out[c] = append(out[c], chunk[c]...)
		}
	}
}
