// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package batch_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OpenPSG/edfprep/edf"
	"github.com/OpenPSG/edfprep/internal/batch"
	"github.com/OpenPSG/edfprep/internal/logging"
	"github.com/OpenPSG/edfprep/internal/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyTransform copies each file into savedir and records what it was given.
type copyTransform struct {
	mu       sync.Mutex
	calls    []string
	savedirs map[string]bool
	fail     string
	delay    time.Duration

	running atomic.Int32
	peak    atomic.Int32
}

var errBroken = errors.New("broken recording")

func (c *copyTransform) Name() string { return "copy" }

func (c *copyTransform) Apply(ctx context.Context, path, savedir string) error {
	n := c.running.Add(1)
	defer c.running.Add(-1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	c.mu.Lock()
	c.calls = append(c.calls, path)
	if c.savedirs == nil {
		c.savedirs = map[string]bool{}
	}
	c.savedirs[savedir] = true
	c.mu.Unlock()

	if filepath.Base(path) == c.fail {
		return errBroken
	}

	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(savedir, preprocess.OutputName(path, "_COPY")), b, 0o644)
}

func touchFiles(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
}

func recordingNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("rec%02d.edf", i)
	}
	return names
}

func TestResolveWorkers(t *testing.T) {
	cases := []struct {
		requested, cores, files, want int
	}{
		{0, 8, 10, 8},
		{4, 8, 10, 4},
		{16, 8, 10, 8},
		{0, 8, 3, 3},
		{2, 8, 1, 1},
		{0, 8, 0, 0},
		{-1, 0, 5, 1},
	}

	for _, tc := range cases {
		got := batch.ResolveWorkers(tc.requested, tc.cores, tc.files)
		assert.Equal(t, tc.want, got, "requested=%d cores=%d files=%d", tc.requested, tc.cores, tc.files)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir, "b.edf", "A.EDF", "notes.txt", "edf", ".rec.edf.1234.part", ".hidden.edf")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.edf"), 0o755))
	touchFiles(t, filepath.Join(dir, "nested.edf"), "deep.edf")

	files, err := batch.Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "A.EDF"), filepath.Join(dir, "b.edf")}, files)

	_, err = batch.Discover(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestRunDerivesTarget(t *testing.T) {
	src := t.TempDir()
	touchFiles(t, src, recordingNames(10)...)

	tr := &copyTransform{}
	stats, err := batch.Run(context.Background(), tr, batch.Options{SourceDir: src, Cores: 8}, logging.Nop())
	require.NoError(t, err)

	target := filepath.Join(src, "copy")
	assert.Equal(t, 10, stats.Files)
	assert.Equal(t, 8, stats.Workers)
	assert.Equal(t, target, stats.Target)
	assert.Len(t, tr.calls, 10)
	assert.Equal(t, map[string]bool{target: true}, tr.savedirs)
	assert.Positive(t, stats.OutputBytes)

	outputs, err := batch.Discover(target)
	require.NoError(t, err)
	assert.Len(t, outputs, 10)

	_, err = os.Stat(filepath.Join(target, ".edfprep.lock"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunRefusesExistingDerivedTarget(t *testing.T) {
	src := t.TempDir()
	touchFiles(t, src, "a.edf")
	require.NoError(t, os.Mkdir(filepath.Join(src, "copy"), 0o755))

	tr := &copyTransform{}
	_, err := batch.Run(context.Background(), tr, batch.Options{SourceDir: src}, logging.Nop())

	var existsErr *batch.DirectoryExistsError
	require.ErrorAs(t, err, &existsErr)
	assert.Equal(t, filepath.Join(src, "copy"), existsErr.Path)
	assert.Empty(t, tr.calls)
}

func TestRunExplicitTarget(t *testing.T) {
	src := t.TempDir()
	target := t.TempDir()
	touchFiles(t, src, "a.edf", "b.edf")

	tr := &copyTransform{}
	stats, err := batch.Run(context.Background(), tr, batch.Options{SourceDir: src, TargetDir: target, Workers: 1}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Workers)
	assert.FileExists(t, filepath.Join(target, "a_COPY.edf"))
	assert.FileExists(t, filepath.Join(target, "b_COPY.edf"))
}

func TestRunEmptyDirectory(t *testing.T) {
	src := t.TempDir()

	stats, err := batch.Run(context.Background(), &copyTransform{}, batch.Options{SourceDir: src, Cores: 4}, logging.Nop())
	require.NoError(t, err)
	assert.Zero(t, stats.Files)
	assert.Zero(t, stats.Workers)
	assert.DirExists(t, filepath.Join(src, "copy"))
}

func TestRunBoundsConcurrency(t *testing.T) {
	src := t.TempDir()
	touchFiles(t, src, recordingNames(6)...)

	tr := &copyTransform{delay: 20 * time.Millisecond}
	stats, err := batch.Run(context.Background(), tr, batch.Options{SourceDir: src, Workers: 2, Cores: 8}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Workers)
	assert.LessOrEqual(t, tr.peak.Load(), int32(2))
	assert.Len(t, tr.calls, 6)
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	src := t.TempDir()
	touchFiles(t, src, recordingNames(20)...)

	tr := &copyTransform{fail: "rec00.edf", delay: 50 * time.Millisecond}
	_, err := batch.Run(context.Background(), tr, batch.Options{SourceDir: src, Workers: 1, Cores: 8}, logging.Nop())
	require.Error(t, err)

	var fileErr *batch.FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, filepath.Join(src, "rec00.edf"), fileErr.Path)
	assert.ErrorIs(t, err, errBroken)

	// With a single worker the failing first job prevents every other job.
	assert.Len(t, tr.calls, 1)
}

func TestRunHonoursCancellation(t *testing.T) {
	src := t.TempDir()
	touchFiles(t, src, recordingNames(3)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &copyTransform{}
	_, err := batch.Run(ctx, tr, batch.Options{SourceDir: src, Workers: 1}, logging.Nop())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunStandardPreprocessor(t *testing.T) {
	src := t.TempDir()
	for i := 0; i < 3; i++ {
		writeRecording(t, filepath.Join(src, fmt.Sprintf("mouse%d.edf", i)), 40)
	}

	std := preprocess.Standard{
		FS:         100,
		Downsample: 4,
		TrimTo:     []float64{1.0 / 128},
		ChunkSize:  1000,
	}
	stats, err := batch.Run(context.Background(), std, batch.Options{SourceDir: src, Cores: 2}, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Workers)

	outputs, err := batch.Discover(filepath.Join(src, "standard"))
	require.NoError(t, err)
	require.Len(t, outputs, 3)
	for i, out := range outputs {
		assert.Equal(t, fmt.Sprintf("mouse%d_PREPROCESSED.edf", i), filepath.Base(out))

		er, closeFn, err := edf.OpenFile(out)
		require.NoError(t, err)
		hdr := er.Header()
		assert.Equal(t, 29, hdr.DataRecords)
		assert.Equal(t, 25, hdr.Signals[0].SamplesPerRecord)
		require.NoError(t, closeFn())
	}
}

func writeRecording(t *testing.T, path string, seconds int) {
	t.Helper()

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "X X X X",
		RecordingID:        "Startdate 01-JAN-2024 X X X",
		StartTime:          time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{{
			Label:            "EEG",
			PhysicalMin:      -100,
			PhysicalMax:      100,
			DigitalMin:       -2048,
			DigitalMax:       2047,
			SamplesPerRecord: 100,
		}},
	}
	err := edf.WriteFile(path, hdr, func(w *edf.Writer) error {
		record := make([]int16, 100)
		for r := 0; r < seconds; r++ {
			for j := range record {
				record[j] = int16((r*100 + j) % 2000)
			}
			if err := w.WriteDigitalRecord([][]int16{record}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}
