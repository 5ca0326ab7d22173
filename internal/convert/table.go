package convert

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

var columnGap = regexp.MustCompile(`\t+| {2,}`)

// splitColumns turns layout-preserving text into rows, treating tabs or runs
// of two or more spaces as column breaks. Rows are padded to equal width.
func splitColumns(text string) [][]string {
	var rows [][]string
	width := 0
	for _, line := range strings.Split(strings.ReplaceAll(text, "\f", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cells := columnGap.Split(line, -1)
		if len(cells) > width {
			width = len(cells)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return [][]string{{""}}
	}
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	return rows
}

// writeTable stores rows without a header as csv or xlsx.
func writeTable(dest, format string, rows [][]string) (retErr error) {
	switch format {
	case "csv":
		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); retErr == nil {
				retErr = cerr
			}
		}()
		w := csv.NewWriter(f)
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		return w.Error()
	case "xlsx":
		book := excelize.NewFile()
		defer book.Close()
		sheet := book.GetSheetName(0)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			values := make([]any, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := book.SetSheetRow(sheet, cell, &values); err != nil {
				return err
			}
		}
		return book.SaveAs(dest)
	default:
		return fmt.Errorf("unsupported table format %q", format)
	}
}
