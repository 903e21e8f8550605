// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package batch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extension of the files picked up by Discover, matched case-insensitively.
const Extension = ".edf"

// Discover returns the EDF files directly inside dir. Subdirectories are not
// searched. Paths are sorted only to keep logs stable.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), Extension) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ResolveWorkers returns the pool size for files jobs on a machine with cores
// logical cores. A requested count of zero or less means one per core. The
// result never exceeds cores or files and is zero only when files is zero.
func ResolveWorkers(requested, cores, files int) int {
	if cores < 1 {
		cores = 1
	}
	if requested < 1 {
		requested = cores
	}
	return max(0, min(requested, cores, files))
}
