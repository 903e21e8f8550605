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
	"io"

	"github.com/OpenPSG/edfprep/edf"
	"github.com/OpenPSG/edfprep/internal/resample"
)

// between streams physical samples of the given channels for records
// [start, stop) of er, at most chunkRecords records per step. Records are
// never split, so a step holds at least one record. The context is checked
// before every read.
func between(ctx context.Context, er *edf.Reader, channels []int, start, stop, chunkRecords int) resample.Stream {
	if chunkRecords < 1 {
		chunkRecords = 1
	}
	next := start
	return resample.StreamFunc(func() ([][]float64, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if next >= stop {
			return nil, io.EOF
		}

		end := min(next+chunkRecords, stop)
		var chunk [][]float64
		for i := next; i < end; i++ {
			record, err := er.ReadPhysicalRecord(i)
			if err != nil {
				return nil, err
			}
			if chunk == nil {
				chunk = make([][]float64, len(channels))
				for c, ch := range channels {
					chunk[c] = make([]float64, 0, len(record[ch])*(end-next))
				}
			}
			for c, ch := range channels {
				chunk[c] = append(chunk[c], record[ch]...)
			}
		}
		next = end
		return chunk, nil
	})
}

// recordFramer regroups a sample stream into fixed-size data records.
type recordFramer struct {
	perRecord []int
	pending   [][]float64
}

func newRecordFramer(perRecord []int) *recordFramer {
	return &recordFramer{
		perRecord: perRecord,
		pending:   make([][]float64, len(perRecord)),
	}
}

func (f *recordFramer) push(chunk [][]float64) {
	for c := range chunk {
		f.pending[c] = append(f.pending[c], chunk[c]...)
	}
}

// pop returns the next complete record, or nil when not enough samples are buffered.
func (f *recordFramer) pop() [][]float64 {
	for c, n := range f.perRecord {
		if len(f.pending[c]) < n {
			return nil
		}
	}
	record := make([][]float64, len(f.perRecord))
	for c, n := range f.perRecord {
		record[c] = append([]float64(nil), f.pending[c][:n]...)
		f.pending[c] = f.pending[c][n:]
	}
	return record
}

// buffered returns the number of samples still waiting in channel c.
func (f *recordFramer) buffered(c int) int {
	return len(f.pending[c])
}
