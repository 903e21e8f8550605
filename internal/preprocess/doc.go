// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package preprocess transforms single EDF recordings into new files.
//
// Standard trims a recording to the largest allowed duration that fits in it
// and decimates it, streaming the source in bounded chunks so memory does not
// grow with recording length. Spindle projects a recording onto a chosen,
// possibly reordered, set of channels.
//
// Neither transformation modifies its source. Output files are written
// through edf.WriteFile, so a failed run leaves no file under the output name.
package preprocess
