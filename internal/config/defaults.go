// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

const (
	defaultConfigPath = "~/.config/edfprep/config.toml"
	projectConfigName = "edfprep.toml"
	defaultLogLevel   = "info"
	defaultLogFormat  = "console"
	defaultDownsample = 20
	defaultChunkSize  = 3_000_000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Standard: Standard{
			Downsample: defaultDownsample,
			TrimTo:     []float64{48, 72},
			ChunkSize:  defaultChunkSize,
		},
		Spindle: Spindle{
			Channels: []int{0, 1, 3},
		},
	}
}
