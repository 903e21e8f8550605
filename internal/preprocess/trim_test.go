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
	"testing"

	"github.com/OpenPSG/edfprep/internal/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTrim(t *testing.T) {
	const fs = 5000
	hour := 3600 * fs

	cases := []struct {
		name       string
		total      int
		candidates []float64
		unit       int
		want       int
	}{
		{"66 hours trims to 48", 66 * hour, []float64{48, 72}, fs, 48 * hour},
		{"exactly 72 hours is kept", 72 * hour, []float64{48, 72}, fs, 72 * hour},
		{"longer than every candidate", 100 * hour, []float64{48, 72}, fs, 72 * hour},
		{"single candidate", 50 * hour, []float64{48}, fs, 48 * hour},
		{"rounded up to a record boundary", 10 * fs, []float64{0.001}, fs, 4 * fs},
		{"non-second record unit", 100 * fs, []float64{0.015625}, 2 * fs, 58 * fs},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stop, err := preprocess.PlanTrim(tc.total, fs, tc.candidates, tc.unit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stop)
			assert.Zero(t, stop%tc.unit)
			assert.LessOrEqual(t, stop, tc.total)
		})
	}
}

func TestPlanTrimInsufficientLength(t *testing.T) {
	const fs = 5000

	_, err := preprocess.PlanTrim(40*3600*fs, fs, []float64{48, 72}, fs)
	require.Error(t, err)

	var lengthErr *preprocess.InsufficientLengthError
	require.ErrorAs(t, err, &lengthErr)
	assert.InDelta(t, 40.0, lengthErr.Hours, 1e-9)
	assert.Equal(t, []float64{48, 72}, lengthErr.Candidates)
	assert.Contains(t, err.Error(), "[48 72]")
}

func TestPlanTrimInvalidArguments(t *testing.T) {
	_, err := preprocess.PlanTrim(1000, 100, []float64{72, 48}, 100)
	require.Error(t, err)

	_, err = preprocess.PlanTrim(1000, 0, []float64{48}, 100)
	require.Error(t, err)

	_, err = preprocess.PlanTrim(1000, 100, nil, 100)
	require.Error(t, err)
}
