// Package report renders tabular results as downloadable spreadsheets or PDF
// documents. Output is built in memory.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatSpreadsheet Format = "xlsx"
	FormatDocument    Format = "pdf"
)

const (
	sheetName   = "Reporte"
	maxCellRune = 25
)

// Error is returned when a report cannot be produced. No partial output
// accompanies it.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "report: " + e.Reason + ": " + e.Err.Error()
	}
	return "report: " + e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "excel", "xlsx", "spreadsheet":
		return FormatSpreadsheet, nil
	case "pdf", "document":
		return FormatDocument, nil
	}
	return "", &Error{Reason: fmt.Sprintf("unknown format %q", raw)}
}

func (f Format) Extension() string {
	return string(f)
}

func ContentType(f Format) string {
	if f == FormatDocument {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename builds "<prefix>_YYYYMMDD_HHMMSS.<ext>".
func Filename(prefix string, f Format, now time.Time) string {
	return prefix + "_" + now.Format("20060102_150405") + "." + f.Extension()
}

// Generate renders rows under the column labels. An empty row set produces a
// header-only file; an empty column set or a ragged row is an *Error.
func Generate(rows [][]any, columns []string, format Format, title string) ([]byte, error) {
	if len(columns) == 0 {
		return nil, &Error{Reason: "no columns"}
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, &Error{Reason: fmt.Sprintf("row %d has %d cells, want %d", i, len(row), len(columns))}
		}
	}
	switch format {
	case FormatSpreadsheet:
		return spreadsheet(rows, columns)
	case FormatDocument:
		return document(rows, columns, title)
	}
	return nil, &Error{Reason: fmt.Sprintf("unknown format %q", format)}
}

func spreadsheet(rows [][]any, columns []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, &Error{Reason: "spreadsheet", Err: err}
	}
	header := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		header = append(header, col)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, &Error{Reason: "spreadsheet", Err: err}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, &Error{Reason: "spreadsheet", Err: err}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return nil, &Error{Reason: "spreadsheet", Err: err}
	}
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, bold); err != nil {
		return nil, &Error{Reason: "spreadsheet", Err: err}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, &Error{Reason: "spreadsheet", Err: err}
		}
		values := make([]interface{}, len(row))
		copy(values, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, &Error{Reason: "spreadsheet", Err: err}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &Error{Reason: "spreadsheet", Err: err}
	}
	return buf.Bytes(), nil
}

func document(rows [][]any, columns []string, title string) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(columns))

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 8)
	for _, col := range columns {
		pdf.CellFormat(colWidth, 7, tr(col), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range rows {
		for _, value := range row {
			pdf.CellFormat(colWidth, 6, tr(Truncate(fmt.Sprint(value), maxCellRune)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &Error{Reason: "document", Err: err}
	}
	return buf.Bytes(), nil
}

// Truncate shortens text longer than limit runes and appends "...".
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
