// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package batch runs a single-file transformation over every EDF recording
// in a directory using a fixed pool of workers.
//
// Jobs share nothing but the read-only job list and the target directory;
// each worker opens, transforms and closes one recording at a time. The
// first failing job cancels the run: jobs not yet started are skipped and
// jobs in flight stop at their next chunk boundary without leaving output.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/OpenPSG/edfprep/internal/logging"
)

const lockName = ".edfprep.lock"

// Transform converts one recording into one new file inside savedir. Its
// parameters are carried by the implementing value.
type Transform interface {
	Name() string
	Apply(ctx context.Context, path, savedir string) error
}

// Options controls a batch run.
type Options struct {
	SourceDir string
	TargetDir string // empty derives <SourceDir>/<transform name>, which must not exist
	Workers   int    // zero or less uses every core
	Cores     int    // zero or less uses runtime.NumCPU
	Verbose   bool
}

// Stats summarizes a finished run.
type Stats struct {
	Files       int
	Workers     int
	Target      string
	Elapsed     time.Duration
	OutputBytes int64
}

// DirectoryExistsError reports a derived target directory that already exists.
type DirectoryExistsError struct {
	Path string
}

func (e *DirectoryExistsError) Error() string {
	return fmt.Sprintf("target directory %s already exists", e.Path)
}

// FileError attributes a job failure to its source file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// Run applies t to every EDF file in opts.SourceDir and writes the results
// to the target directory. It returns the first job failure as a *FileError.
func Run(ctx context.Context, t Transform, opts Options, log logging.Logger) (Stats, error) {
	stats := Stats{}

	files, err := Discover(opts.SourceDir)
	if err != nil {
		return stats, fmt.Errorf("discover recordings: %w", err)
	}
	stats.Files = len(files)

	target, err := prepareTarget(opts.SourceDir, opts.TargetDir, t.Name())
	if err != nil {
		return stats, err
	}
	stats.Target = target

	lock := flock.New(filepath.Join(target, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return stats, fmt.Errorf("lock target directory: %w", err)
	}
	if !locked {
		return stats, fmt.Errorf("target directory %s is in use by another run", target)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	cores := opts.Cores
	if cores < 1 {
		cores = runtime.NumCPU()
	}
	stats.Workers = ResolveWorkers(opts.Workers, cores, len(files))

	summary := log.Debug
	if opts.Verbose {
		summary = log.Info
	}
	summary("executing batched preprocessor",
		logging.String("preprocessor", t.Name()),
		logging.Int("files", len(files)),
		logging.Int("workers", stats.Workers),
	)

	start := time.Now()
	err = dispatch(ctx, t, files, target, stats.Workers)
	stats.Elapsed = time.Since(start)
	if err != nil {
		return stats, err
	}

	stats.OutputBytes = outputBytes(target)
	log.Info("saved files",
		logging.Int("files", len(files)),
		logging.String("target", target),
		logging.String("size", humanize.Bytes(uint64(stats.OutputBytes))),
		logging.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

// prepareTarget creates the output directory. A derived directory must be
// new; an explicit one may already exist.
func prepareTarget(sourceDir, targetDir, name string) (string, error) {
	if targetDir != "" {
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return "", fmt.Errorf("create target directory: %w", err)
		}
		return targetDir, nil
	}

	target := filepath.Join(sourceDir, name)
	if err := os.Mkdir(target, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", &DirectoryExistsError{Path: target}
		}
		return "", fmt.Errorf("create target directory: %w", err)
	}
	return target, nil
}

// dispatch feeds files to exactly workers goroutines. The first error
// cancels the shared context.
func dispatch(ctx context.Context, t Transform, files []string, target string, workers int) error {
	if len(files) == 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan string)

	g.Go(func() error {
		defer close(jobs)
		for _, path := range files {
			select {
			case jobs <- path:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for path := range jobs {
				if gctx.Err() != nil {
					return nil
				}
				if err := t.Apply(gctx, path, target); err != nil {
					return &FileError{Path: path, Err: err}
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func outputBytes(dir string) int64 {
	files, err := Discover(dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, path := range files {
		if info, err := os.Stat(path); err == nil {
			total += info.Size()
		}
	}
	return total
}
