// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package preprocess

import "fmt"

// InsufficientLengthError reports a recording shorter than every trim candidate.
type InsufficientLengthError struct {
	Hours      float64   // actual recording length
	Candidates []float64 // allowed lengths, ascending
}

func (e *InsufficientLengthError) Error() string {
	return fmt.Sprintf("recording is %.4g hrs, a value below all trim_to %v", e.Hours, e.Candidates)
}

// HeaderConsistencyError reports a header that cannot be rewritten to match
// the transformed data.
type HeaderConsistencyError struct {
	Signal int // offending signal, -1 when not signal specific
	Reason string
}

func (e *HeaderConsistencyError) Error() string {
	if e.Signal < 0 {
		return "inconsistent header: " + e.Reason
	}
	return fmt.Sprintf("inconsistent header for signal %d: %s", e.Signal, e.Reason)
}

// InvalidChannelError reports a requested channel index outside the recording.
type InvalidChannelError struct {
	Channel int
	Count   int
}

func (e *InvalidChannelError) Error() string {
	return fmt.Sprintf("channel %d out of range, recording has %d channels", e.Channel, e.Count)
}
