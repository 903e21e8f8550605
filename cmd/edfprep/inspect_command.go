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
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/OpenPSG/edfprep/edf"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "inspect <file>...",
		Short:       "Show the header of EDF recordings",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, path := range args {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := inspectFile(cmd, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func inspectFile(cmd *cobra.Command, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	er, closeFn, err := edf.OpenFile(path)
	if err != nil {
		return err
	}
	defer closeFn()

	hdr := er.Header()
	format := "EDF"
	if hdr.IsEDFPlus() {
		format = hdr.Reserved
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s, %s)\n", path, format, humanize.Bytes(uint64(info.Size())))
	fmt.Fprintf(out, "Start:    %s\n", hdr.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Records:  %d x %s\n", hdr.DataRecords, hdr.DataRecordDuration)
	fmt.Fprintf(out, "Duration: %s (%.2f hrs)\n", hdr.Duration(), hdr.Duration().Hours())

	headers := []string{"#", "Label", "Unit", "Physical", "Digital", "Samples/Rec", "Rate (Hz)"}
	rows := make([][]string, len(hdr.Signals))
	for i, sig := range hdr.Signals {
		rows[i] = []string{
			strconv.Itoa(i),
			sig.Label,
			sig.PhysicalDimension,
			fmt.Sprintf("%g .. %g", sig.PhysicalMin, sig.PhysicalMax),
			fmt.Sprintf("%d .. %d", sig.DigitalMin, sig.DigitalMax),
			strconv.Itoa(sig.SamplesPerRecord),
			strconv.FormatFloat(hdr.SampleRate(i), 'f', -1, 64),
		}
	}
	fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}))
	return nil
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range header {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
