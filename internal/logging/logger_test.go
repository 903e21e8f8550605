// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/OpenPSG/edfprep/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "debug", Format: "json"}, &buf)

	log.With(logging.String("file", "a.edf")).Info("processed",
		logging.Int("records", 3),
		logging.Duration("elapsed", 2*time.Second),
		logging.Err(errors.New("boom")),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "processed", entry["message"])
	assert.Equal(t, "a.edf", entry["file"])
	assert.EqualValues(t, 3, entry["records"])
	assert.Equal(t, "boom", entry["err"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "warn", Format: "json"}, &buf)

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, log.Enabled(zerolog.DebugLevel))
	assert.True(t, log.Enabled(zerolog.ErrorLevel))
}

func TestConsoleFormatIsPlainForBuffers(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "info"}, &buf)

	log.Info("saved files", logging.Int("files", 2))

	out := buf.String()
	assert.Contains(t, out, "saved files")
	assert.Contains(t, out, "files=2")
	assert.False(t, strings.Contains(out, "\x1b["), "no colour codes outside a terminal")
}

func TestZeroAndNopLoggers(t *testing.T) {
	var zero logging.Logger
	zero.Info("discarded")
	logging.Nop().Error("discarded")
	assert.False(t, logging.Nop().Enabled(zerolog.ErrorLevel))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logging.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, logging.ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, logging.ParseLevel("bogus"))
}
