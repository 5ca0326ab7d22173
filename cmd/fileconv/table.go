package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

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
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// colorEnabled reports whether w is an interactive terminal.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// checkLabel renders a pass/warn/fail marker for diagnostic tables.
func checkLabel(passed, optional, color bool) string {
	label, colors := "ok", text.Colors{text.FgGreen}
	switch {
	case passed:
	case optional:
		label, colors = "warn", text.Colors{text.FgYellow}
	default:
		label, colors = "fail", text.Colors{text.FgRed, text.Bold}
	}
	if !color {
		return label
	}
	return colors.Sprint(label)
}

// statusLabel colors a job status the way checkLabel colors checks.
func statusLabel(status string, color bool) string {
	if !color {
		return status
	}
	switch status {
	case "completed":
		return text.FgGreen.Sprint(status)
	case "failed":
		return text.FgRed.Sprint(status)
	case "processing":
		return text.FgCyan.Sprint(status)
	default:
		return status
	}
}
