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
	"errors"
	"fmt"
	"math"
	"sort"
)

// PlanTrim returns the sample index at which a recording of total samples at
// fs Hz is cut. The largest candidate duration (hours, ascending) that fits
// in the recording is chosen and the cut is rounded up to a multiple of unit
// samples so it never splits a data record.
func PlanTrim(total int, fs float64, candidates []float64, unit int) (int, error) {
	if fs <= 0 {
		return 0, fmt.Errorf("invalid sample rate: %g", fs)
	}
	if len(candidates) == 0 {
		return 0, errors.New("no trim durations given")
	}
	if !sort.Float64sAreSorted(candidates) {
		return 0, fmt.Errorf("trim durations must be ascending: %v", candidates)
	}
	if unit < 1 {
		unit = 1
	}

	samples := make([]float64, len(candidates))
	for i, hrs := range candidates {
		samples[i] = hrs * 3600 * fs
	}

	// Index of the first candidate longer than the recording.
	idx := sort.Search(len(samples), func(i int) bool { return samples[i] > float64(total) })
	if idx == 0 {
		return 0, &InsufficientLengthError{
			Hours:      float64(total) / (3600 * fs),
			Candidates: candidates,
		}
	}

	stop := int(math.Ceil(samples[idx-1]/float64(unit))) * unit
	if stop > total {
		// Only reachable when total itself is not record aligned.
		stop = total / unit * unit
	}
	return stop, nil
}
