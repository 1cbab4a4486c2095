// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package export

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/rollcall/internal/models"
)

func testGrid() *Grid {
	return BuildPivot([]models.AttendanceRecord{
		record(d1, "S1"),
		record(d2, "S1", "S2"),
	}, testRoster, DayFormatter(time.UTC))
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, testGrid()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(rows))
	}
	want := []string{"Bea", "bea@example.com", "A", "P", "1", "1", "50.00"}
	if !reflect.DeepEqual(rows[2], want) {
		t.Errorf("row = %v, want %v", rows[2], want)
	}
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, testGrid(), "CS101 Attendance"); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("CS101 Attendance")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][2] != "2026-03-02" {
		t.Errorf("first date header = %q", rows[0][2])
	}
	if got := rows[1][len(rows[1])-1]; got != "100.00%" {
		t.Errorf("S1 percentage = %q", got)
	}

	plain, err := f.GetCellStyle("CS101 Attendance", "D3")
	if err != nil {
		t.Fatalf("GetCellStyle: %v", err)
	}
	highlighted, err := f.GetCellStyle("CS101 Attendance", "C3")
	if err != nil {
		t.Fatalf("GetCellStyle: %v", err)
	}
	if plain == highlighted {
		t.Error("absent cell should carry a distinct style")
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatXLSX, false},
		{"XLSX", FormatXLSX, false},
		{"csv", FormatCSV, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFilenameAndSheetName(t *testing.T) {
	t.Parallel()

	if got := Filename("CS101", "2026-03-01", "2026-03-31", FormatXLSX); got != "CS101_attendance_2026-03-01_to_2026-03-31.xlsx" {
		t.Errorf("Filename = %s", got)
	}
	if got := sheetName("A/B: " + strings.Repeat("x", 40)); len([]rune(got)) != 31 || strings.ContainsAny(got, "/:") {
		t.Errorf("sheetName = %q", got)
	}
	if FormatCSV.ContentType() != "text/csv; charset=utf-8" {
		t.Error("unexpected CSV content type")
	}
}
