// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import "time"

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

// Reserved field markers used by EDF+. A plain EDF file leaves the field blank.
const (
	ReservedEDFPlusContinuous    = "EDF+C"
	ReservedEDFPlusDiscontinuous = "EDF+D"
)

// AnnotationsLabel is the label of an EDF+ annotation signal. Its samples
// carry time-stamped annotation text rather than measurements.
const AnnotationsLabel = "EDF Annotations"

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	Reserved           string        // EDF+ marker ("EDF+C" or "EDF+D"), empty for plain EDF
	DataRecords        int           // Number of data records, -1 if unknown
	DataRecordDuration time.Duration // Duration of a single data record in seconds
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// IsAnnotation reports whether the signal holds EDF+ annotations.
func (s Signal) IsAnnotation() bool {
	return s.Label == AnnotationsLabel
}

// Clone returns a deep copy of the header. The returned Signals slice does
// not share storage with h.
func (h Header) Clone() Header {
	c := h
	c.Signals = make([]Signal, len(h.Signals))
	copy(c.Signals, h.Signals)
	return c
}

// IsEDFPlus reports whether the reserved field marks the file as EDF+.
func (h Header) IsEDFPlus() bool {
	return h.Reserved == ReservedEDFPlusContinuous || h.Reserved == ReservedEDFPlusDiscontinuous
}

// SampleRate returns the sampling rate of signal i in Hz.
func (h Header) SampleRate(i int) float64 {
	if h.DataRecordDuration <= 0 {
		return 0
	}
	return float64(h.Signals[i].SamplesPerRecord) / h.DataRecordDuration.Seconds()
}

// Samples returns the total number of samples stored for signal i, or -1
// when the number of data records is unknown.
func (h Header) Samples(i int) int {
	if h.DataRecords < 0 {
		return -1
	}
	return h.DataRecords * h.Signals[i].SamplesPerRecord
}

// Duration returns the total duration of the recording.
func (h Header) Duration() time.Duration {
	if h.DataRecords < 0 {
		return 0
	}
	return time.Duration(h.DataRecords) * h.DataRecordDuration
}

// recordSize returns the size in bytes of one data record.
func (h Header) recordSize() int {
	size := 0
	for _, sig := range h.Signals {
		size += sig.SamplesPerRecord * 2
	}
	return size
}
