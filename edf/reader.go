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
	"time"
)

// Reader reads EDF/EDF+ files.
type Reader struct {
	r          io.ReadSeeker
	hdr        *Header
	recordSize int
	buf        []byte
}

// Open opens an EDF/EDF+ file for reading.
func Open(r io.ReadSeeker) (*Reader, error) {
	reader := bufio.NewReader(r)

	b := make([]byte, 256)
	if _, err := io.ReadFull(reader, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	// Parse fields based on EDF/EDF+ specifications
	hdr := &Header{}
	hdr.Version = Version(strings.TrimSpace(string(b[0:8])))
	hdr.PatientID = strings.TrimSpace(string(b[8:88]))
	hdr.RecordingID = strings.TrimSpace(string(b[88:168]))
	dateStr := strings.TrimSpace(string(b[168:176]))
	timeStr := strings.TrimSpace(string(b[176:184]))

	// Parse start date and time
	startDate, err := time.Parse("02.01.06", dateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", timeStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	headerBytes, err := strconv.Atoi(strings.TrimSpace(string(b[184:192])))
	if err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}
	hdr.HeaderBytes = headerBytes
	hdr.Reserved = strings.TrimSpace(string(b[192:236]))

	numDataRecords, err := strconv.Atoi(strings.TrimSpace(string(b[236:244])))
	if err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}
	hdr.DataRecords = numDataRecords

	hdr.DataRecordDuration, err = time.ParseDuration(fmt.Sprintf("%ss", strings.TrimSpace(string(b[244:252]))))
	if err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}

	signalCount, err := strconv.Atoi(strings.TrimSpace(string(b[252:256])))
	if err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}
	if signalCount < 0 {
		return nil, fmt.Errorf("invalid signal count: %d", signalCount)
	}
	hdr.SignalCount = signalCount

	// Signal headers are stored field by field, each field repeated for every signal.
	hdr.Signals = make([]Signal, signalCount)
	fields := []struct {
		width int
		set   func(sig *Signal, v string)
	}{
		{16, func(sig *Signal, v string) { sig.Label = v }},
		{80, func(sig *Signal, v string) { sig.TransducerType = v }},
		{8, func(sig *Signal, v string) { sig.PhysicalDimension = v }},
		{8, func(sig *Signal, v string) { sig.PhysicalMin = parseFloat(v) }},
		{8, func(sig *Signal, v string) { sig.PhysicalMax = parseFloat(v) }},
		{8, func(sig *Signal, v string) { sig.DigitalMin = parseDigital(v) }},
		{8, func(sig *Signal, v string) { sig.DigitalMax = parseDigital(v) }},
		{80, func(sig *Signal, v string) { sig.Prefiltering = v }},
		{8, func(sig *Signal, v string) { sig.SamplesPerRecord = parseInt(v) }},
		{32, func(sig *Signal, v string) { sig.Reserved = v }},
	}
	for _, field := range fields {
		b := make([]byte, field.width)
		for i := range hdr.Signals {
			if _, err := io.ReadFull(reader, b); err != nil {
				return nil, fmt.Errorf("error reading signal headers: %w", err)
			}
			field.set(&hdr.Signals[i], strings.TrimSpace(string(b)))
		}
	}

	er := &Reader{
		r:          r,
		hdr:        hdr,
		recordSize: hdr.recordSize(),
	}

	// A writer that never finalized its header leaves the record count unknown.
	if hdr.DataRecords < 0 && er.recordSize > 0 {
		size, err := r.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, fmt.Errorf("error determining file size: %w", err)
		}
		hdr.DataRecords = int((size - int64(hdr.HeaderBytes)) / int64(er.recordSize))
	}

	return er, nil
}

// Header returns a deep copy of the parsed header. Mutating the copy never
// affects the reader.
func (er *Reader) Header() Header {
	return er.hdr.Clone()
}

// ReadRecord returns the raw digital samples of data record i, one slice per
// signal. It returns io.EOF when i is past the last record.
func (er *Reader) ReadRecord(i int) ([][]int16, error) {
	if i < 0 {
		return nil, fmt.Errorf("record index out of range: %d", i)
	}
	if i >= er.hdr.DataRecords {
		return nil, io.EOF
	}

	if er.buf == nil {
		er.buf = make([]byte, er.recordSize)
	}
	pos := int64(er.hdr.HeaderBytes) + int64(i)*int64(er.recordSize)
	if _, err := er.r.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to position: %w", err)
	}
	if _, err := io.ReadFull(er.r, er.buf); err != nil {
		return nil, fmt.Errorf("error reading data record %d: %w", i, err)
	}

	record := make([][]int16, len(er.hdr.Signals))
	off := 0
	for s, sig := range er.hdr.Signals {
		samples := make([]int16, sig.SamplesPerRecord)
		for j := range samples {
			samples[j] = int16(binary.LittleEndian.Uint16(er.buf[off:]))
			off += 2
		}
		record[s] = samples
	}
	return record, nil
}

// ReadPhysicalRecord returns data record i converted to physical values.
func (er *Reader) ReadPhysicalRecord(i int) ([][]float64, error) {
	digital, err := er.ReadRecord(i)
	if err != nil {
		return nil, err
	}

	record := make([][]float64, len(digital))
	for s, samples := range digital {
		sig := er.hdr.Signals[s]
		physical := make([]float64, len(samples))
		for j, v := range samples {
			physical[j] = convertDigitalToPhysical(v, sig.DigitalMin, sig.DigitalMax, sig.PhysicalMin, sig.PhysicalMax)
		}
		record[s] = physical
	}
	return record, nil
}

// SignalReader reads continuous signal data from an EDF/EDF+ file.
type SignalReader struct {
	r                io.ReadSeeker
	hdr              *Header
	signalIndex      int    // Index of the signal to read
	currentRecord    int    // Current record being processed
	currentSample    int    // Current sample in the record
	recordSize       int    // Total size of one data record
	signalOffset     int    // Byte offset of the signal in a record
	samplesPerRecord int    // Number of samples per record for the signal
	block            []byte // Signal samples of the current record
	loaded           int    // Record held in block, -1 if none
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index out of range")
	}

	signal := er.hdr.Signals[signalIndex]
	signalOffset := 0
	for i := 0; i < signalIndex; i++ {
		signalOffset += er.hdr.Signals[i].SamplesPerRecord * 2
	}

	return &SignalReader{
		r:                er.r,
		hdr:              er.hdr,
		signalIndex:      signalIndex,
		recordSize:       er.recordSize,
		signalOffset:     signalOffset,
		samplesPerRecord: signal.SamplesPerRecord,
		block:            make([]byte, signal.SamplesPerRecord*2),
		loaded:           -1,
	}, nil
}

// Read fills the provided float64 slice with the physical values from the signal.
func (sr *SignalReader) Read(data []float64) (int, error) {
	signal := sr.hdr.Signals[sr.signalIndex]

	n := 0
	for n < len(data) {
		if sr.currentRecord >= sr.hdr.DataRecords {
			return n, io.EOF // End of data records
		}

		if sr.loaded != sr.currentRecord {
			pos := int64(sr.hdr.HeaderBytes) + int64(sr.currentRecord)*int64(sr.recordSize) + int64(sr.signalOffset)
			if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
				return n, fmt.Errorf("error seeking to position: %w", err)
			}
			if _, err := io.ReadFull(sr.r, sr.block); err != nil {
				return n, fmt.Errorf("error reading sample data: %w", err)
			}
			sr.loaded = sr.currentRecord
		}

		digitalValue := int16(binary.LittleEndian.Uint16(sr.block[sr.currentSample*2:]))
		data[n] = convertDigitalToPhysical(digitalValue, signal.DigitalMin, signal.DigitalMax, signal.PhysicalMin, signal.PhysicalMax)

		n++

		// Move to the next sample
		sr.currentSample++
		if sr.currentSample >= sr.samplesPerRecord {
			sr.currentSample = 0
			sr.currentRecord++
		}
	}

	return n, nil
}

// convertDigitalToPhysical converts a digital value from the data record to a physical value using the calibration factors.
func convertDigitalToPhysical(digital int16, dmin, dmax int, pmin, pmax float64) float64 {
	if dmax == dmin {
		return 0 // Avoid division by zero
	}
	return pmin + (float64(digital)-float64(dmin))*(pmax-pmin)/float64(dmax-dmin)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// parseDigital accepts fractional notation ("-32768.0") written by some
// exporters and truncates it toward zero.
func parseDigital(s string) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return int(math.Trunc(parseFloat(s)))
}
