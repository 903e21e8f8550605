// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Batch.Workers < 0 {
		return errors.New("batch.workers must not be negative")
	}
	if err := c.validateStandard(); err != nil {
		return err
	}
	return c.validateSpindle()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognised", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateStandard() error {
	s := c.Standard
	if s.FS < 0 {
		return errors.New("standard.fs must not be negative")
	}
	if s.Downsample < 1 {
		return errors.New("standard.downsample must be at least 1")
	}
	if s.ChunkSize < 1 {
		return errors.New("standard.chunk_size must be positive")
	}
	if len(s.TrimTo) == 0 {
		return errors.New("standard.trim_to must list at least one duration")
	}
	for i, hrs := range s.TrimTo {
		if hrs <= 0 {
			return fmt.Errorf("standard.trim_to[%d] must be positive", i)
		}
		if i > 0 && hrs <= s.TrimTo[i-1] {
			return errors.New("standard.trim_to must be strictly increasing")
		}
	}
	return nil
}

func (c *Config) validateSpindle() error {
	if len(c.Spindle.Channels) == 0 {
		return errors.New("spindle.channels must list at least one channel")
	}
	for i, ch := range c.Spindle.Channels {
		if ch < 0 {
			return fmt.Errorf("spindle.channels[%d] must not be negative", i)
		}
	}
	return nil
}
