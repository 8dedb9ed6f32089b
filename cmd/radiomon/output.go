package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"radiomon/internal/api"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable lays rows out under headers. Short rows are padded.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render() + "\n"
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deviceRows(devices []api.DeviceInfo) [][]string {
	rows := make([][]string, 0, len(devices))
	for _, dev := range devices {
		rows = append(rows, []string{
			dev.Name,
			dev.Path,
			dashIfEmpty(dev.Manufacturer),
			dashIfEmpty(dev.Model),
			dashIfEmpty(dev.Revision),
			titleLabel(dev.SIM),
		})
	}
	return rows
}

var deviceHeaders = []string{"Device", "Path", "Manufacturer", "Model", "Revision", "SIM"}

func printDevices(out io.Writer, devices []api.DeviceInfo) {
	if len(devices) == 0 {
		fmt.Fprintln(out, "No modems registered")
		return
	}
	fmt.Fprint(out, renderTable(deviceHeaders, deviceRows(devices), nil))
}

func dashIfEmpty(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

// formatDisplayTime renders an API timestamp in local time. Unparseable
// values are returned unchanged.
func formatDisplayTime(value string) string {
	if value == "" {
		return "-"
	}
	ts, ok := api.ParseTime(value)
	if !ok {
		return value
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func formatSeconds(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}
