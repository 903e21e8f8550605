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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WriteFile creates the EDF file at path and hands a Writer to fn. The data
// is written to a hidden temporary file in the same directory and only
// renamed onto path once fn returns nil and the header has been finalized,
// so a failed write never leaves a file under the final name.
func WriteFile(path string, hdr Header, fn func(w *Writer) error) (err error) {
	dir, name := filepath.Split(path)
	tmpPath := filepath.Join(dir, "."+name+"."+uuid.NewString()+".part")

	f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	ew, err := Create(f, hdr)
	if err != nil {
		return err
	}

	if err := fn(ew); err != nil {
		return err
	}

	if err := ew.Close(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("error syncing file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}

// OpenFile opens the EDF file at path for reading. The returned close
// function releases the underlying file handle.
func OpenFile(path string) (*Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	er, err := Open(f)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("%s: %w", path, err), f.Close())
	}
	return er, f.Close, nil
}
