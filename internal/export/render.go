// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is an output file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a query value to a Format. Empty means XLSX.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename is <classCode>_attendance_<start>_to_<end>.<ext>.
func Filename(classCode, start, end string, f Format) string {
	return fmt.Sprintf("%s_attendance_%s_to_%s.%s", classCode, start, end, f)
}

// Write renders g in format f.
func Write(w io.Writer, g *Grid, f Format, sheetTitle string) error {
	if f == FormatCSV {
		return WriteCSV(w, g)
	}
	return WriteXLSX(w, g, sheetTitle)
}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, g *Grid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(g.Header()); err != nil {
		return err
	}
	for _, row := range g.Rows {
		if err := cw.Write(row.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook with a bold header row. Absent cells
// are filled red and the percentage column carries a % suffix.
func WriteXLSX(w io.Writer, g *Grid, sheetTitle string) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sheet := sheetName(sheetTitle)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	absent, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
		Font: &excelize.Font{Color: "9C0006"},
	})
	if err != nil {
		return err
	}

	header := g.Header()
	if err := setRow(f, sheet, 1, toCells(header)); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, row := range g.Rows {
		r := i + 2
		cells := make([]any, 0, len(header))
		cells = append(cells, row.Name, row.Email)
		for _, m := range row.Marks {
			cells = append(cells, m)
		}
		cells = append(cells, row.Present, row.Absent, row.Percentage+"%")
		if err := setRow(f, sheet, r, cells); err != nil {
			return err
		}

		for j, m := range row.Marks {
			if m != Absent {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+3, r)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, absent); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, start, &cells)
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// sheetName strips characters Excel forbids and truncates to 31 runes.
func sheetName(title string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	if title == "" {
		title = "Attendance"
	}
	if runes := []rune(title); len(runes) > 31 {
		title = string(runes[:31])
	}
	return title
}
