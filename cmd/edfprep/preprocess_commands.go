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
	"github.com/spf13/cobra"

	"github.com/OpenPSG/edfprep/internal/preprocess"
)

func newStandardCommand(ctx *commandContext) *cobra.Command {
	var flags batchFlags
	var fs float64
	var downsample, chunkSize int
	var trimTo []float64

	cmd := &cobra.Command{
		Use:   "standard <dir|file>",
		Short: "Trim recordings to an allowed duration and downsample them",
		Long: `Trim each recording to the largest --trim-to duration (hours) that does not
exceed its length, then decimate it by --downsample. Output files are named
<stem>_PREPROCESSED.edf and written as plain EDF.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config.Standard
			if cmd.Flags().Changed("fs") {
				cfg.FS = fs
			}
			if cmd.Flags().Changed("downsample") {
				cfg.Downsample = downsample
			}
			if cmd.Flags().Changed("trim-to") {
				cfg.TrimTo = trimTo
			}
			if cmd.Flags().Changed("chunk-size") {
				cfg.ChunkSize = chunkSize
			}
			ctx.config.Standard = cfg
			if err := ctx.config.Validate(); err != nil {
				return err
			}

			t := preprocess.Standard{
				FS:         cfg.FS,
				Downsample: cfg.Downsample,
				TrimTo:     cfg.TrimTo,
				ChunkSize:  cfg.ChunkSize,
				Verbose:    !ctx.quiet,
				Log:        ctx.logger,
			}
			return ctx.run(cmd, t, args[0], flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64Var(&fs, "fs", 0, "Source sample rate in Hz (default: read from the header)")
	cmd.Flags().IntVarP(&downsample, "downsample", "d", 0, "Decimation factor")
	cmd.Flags().Float64SliceVar(&trimTo, "trim-to", nil, "Allowed durations in hours, ascending")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Samples per channel read at a time")

	return cmd
}

func newSpindleCommand(ctx *commandContext) *cobra.Command {
	var flags batchFlags
	var channels []int

	cmd := &cobra.Command{
		Use:   "spindle <dir|file>",
		Short: "Keep only the selected channels of each recording",
		Long: `Write a copy of each recording holding only --channels, in the given order.
Samples and header fields are copied unchanged. Output files are named
<stem>_SPINDLE.edf.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("channels") {
				ctx.config.Spindle.Channels = channels
			}
			if err := ctx.config.Validate(); err != nil {
				return err
			}

			t := preprocess.Spindle{
				Channels: ctx.config.Spindle.Channels,
				Verbose:  !ctx.quiet,
				Log:      ctx.logger,
			}
			return ctx.run(cmd, t, args[0], flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntSliceVar(&channels, "channels", nil, "Channel indices to keep, in output order")

	return cmd
}
