// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package resample

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// tapsPerFactor sets the half-length of the anti-aliasing filter relative to
// the decimation factor.
const tapsPerFactor = 10

// LowPass returns the anti-aliasing filter used when decimating by factor: a
// Hamming-windowed sinc with its cutoff at the decimated Nyquist frequency,
// 2*tapsPerFactor*factor+1 taps long and normalized to unit DC gain.
func LowPass(factor int) []float64 {
	if factor <= 1 {
		return []float64{1}
	}

	half := tapsPerFactor * factor
	taps := make([]float64, 2*half+1)
	fc := 0.5 / float64(factor)

	var sum float64
	for j := range taps {
		n := float64(j - half)
		sinc := 1.0
		if n != 0 {
			x := 2 * math.Pi * fc * n
			sinc = math.Sin(x) / x
		}
		window := 0.54 - 0.46*math.Cos(2*math.Pi*float64(j)/float64(len(taps)-1))
		taps[j] = 2 * fc * sinc * window
		sum += taps[j]
	}
	for j := range taps {
		taps[j] /= sum
	}
	return taps
}

// Decimate low-pass filters src and keeps every factor-th sample. The filter
// is centered, so output sample k lines up with input sample k*factor, and
// the output holds exactly ceil(n/factor) samples for n input samples. One
// input chunk is pulled per call to Next until output is available, so
// memory stays bounded by the chunk size plus the filter length.
func Decimate(src Stream, factor int) (Stream, error) {
	if factor < 1 {
		return nil, fmt.Errorf("invalid decimation factor: %d", factor)
	}
	if factor == 1 {
		return src, nil
	}

	taps := LowPass(factor)
	return &decimator{
		src:    src,
		factor: factor,
		taps:   taps,
		half:   (len(taps) - 1) / 2,
	}, nil
}

type decimator struct {
	src    Stream
	factor int
	taps   []float64
	half   int

	buf   [][]float64 // retained input, buf[c][0] is input sample base
	base  int
	total int // input samples pulled so far
	next  int // index of the next output sample
	eof   bool
}

func (d *decimator) Next() ([][]float64, error) {
	for {
		if !d.eof {
			chunk, err := d.src.Next()
			switch {
			case errors.Is(err, io.EOF):
				d.eof = true
			case err != nil:
				return nil, err
			default:
				d.push(chunk)
			}
		}

		if out := d.drain(); out != nil {
			return out, nil
		}
		if d.eof {
			return nil, io.EOF
		}
	}
}

func (d *decimator) push(chunk [][]float64) {
	if d.buf == nil {
		d.buf = make([][]float64, len(chunk))
	}
	if len(chunk) == 0 {
		return
	}
	for c := range chunk {
		d.buf[c] = append(d.buf[c], chunk[c]...)
	}
	d.total += len(chunk[0])
}

// drain computes every output sample whose filter window is fully available
// (or zero padded past the end once the source is exhausted).
func (d *decimator) drain() [][]float64 {
	if len(d.buf) == 0 {
		return nil
	}

	var count int
	for k := d.next; ; k++ {
		center := k * d.factor
		if center >= d.total || (!d.eof && center+d.half >= d.total) {
			break
		}
		count++
	}
	if count == 0 {
		return nil
	}

	out := make([][]float64, len(d.buf))
	for c, x := range d.buf {
		y := make([]float64, count)
		for i := range y {
			center := (d.next + i) * d.factor
			var acc float64
			for j, h := range d.taps {
				idx := center + d.half - j
				if idx < 0 || idx >= d.total {
					continue
				}
				acc += h * x[idx-d.base]
			}
			y[i] = acc
		}
		out[c] = y
	}
	d.next += count

	// Drop input no longer reachable by any future output window.
	if keep := d.next*d.factor - d.half; keep > d.base {
		drop := min(keep-d.base, len(d.buf[0]))
		for c := range d.buf {
			n := copy(d.buf[c], d.buf[c][drop:])
			d.buf[c] = d.buf[c][:n]
		}
		d.base += drop
	}

	return out
}
