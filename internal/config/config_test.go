// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/edfprep/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, config.Default(), *cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "DEBUG"
format = "json"

[batch]
workers = 4

[standard]
fs = 5000
downsample = 10
trim_to = [24, 48]
chunk_size = 1000

[spindle]
channels = [2, 0]
`)

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, 5000.0, cfg.Standard.FS)
	assert.Equal(t, 10, cfg.Standard.Downsample)
	assert.Equal(t, []float64{24, 48}, cfg.Standard.TrimTo)
	assert.Equal(t, 1000, cfg.Standard.ChunkSize)
	assert.Equal(t, []int{2, 0}, cfg.Spindle.Channels)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"descending trim":  "[standard]\ntrim_to = [72, 48]\n",
		"zero downsample":  "[standard]\ndownsample = 0\n",
		"negative workers": "[batch]\nworkers = -1\n",
		"negative channel": "[spindle]\nchannels = [0, -1]\n",
		"bad format":       "[logging]\nformat = \"xml\"\n",
		"unknown key":      "[standard]\nnotch = 60\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, _, err := config.Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, config.Default(), *cfg)

	require.Error(t, config.CreateSample(path), "existing config must not be overwritten")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := config.ExpandPath("~/data")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), got)

	got, err = config.ExpandPath("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
