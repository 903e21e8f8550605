// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenPSG/edfprep/internal/batch"
	"github.com/OpenPSG/edfprep/internal/config"
	"github.com/OpenPSG/edfprep/internal/logging"
)

type commandContext struct {
	configFlag string
	logLevel   string
	logFormat  string
	quiet      bool

	config *config.Config
	logger logging.Logger
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensureConfig loads the configuration file once and applies the logging flags.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}

	cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(c.logLevel)
	}
	if c.logFormat != "" {
		cfg.Logging.Format = strings.ToLower(c.logFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c.config = cfg
	c.logger = logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, cmd.ErrOrStderr())
	return cfg, nil
}

// batchFlags are shared by every transformation command.
type batchFlags struct {
	target  string
	workers int
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.target, "target", "o", "", "Output directory (default: <dir>/<command>, which must not exist)")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "Files processed concurrently (default: batch.workers, 0 for every core)")
}

// run applies t to a single file or to every EDF file in a directory.
func (c *commandContext) run(cmd *cobra.Command, t batch.Transform, path string, flags batchFlags) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		target := flags.target
		if target == "" {
			target = filepath.Dir(path)
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create target directory: %w", err)
		}

		start := time.Now()
		if err := t.Apply(cmd.Context(), path, target); err != nil {
			return &batch.FileError{Path: path, Err: err}
		}
		c.logger.Info("saved file",
			logging.String("file", filepath.Base(path)),
			logging.String("target", target),
			logging.Duration("elapsed", time.Since(start)),
		)
		return nil
	}

	workers := c.config.Batch.Workers
	if cmd.Flags().Changed("workers") {
		workers = flags.workers
	}

	_, err = batch.Run(cmd.Context(), t, batch.Options{
		SourceDir: path,
		TargetDir: flags.target,
		Workers:   workers,
		Verbose:   !c.quiet,
	}, c.logger)
	return err
}
