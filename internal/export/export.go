// Package export renders travel document lists as CSV, XLSX or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"immigration/internal/model"

	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatJSON  Format = "json"
	FormatPDF   Format = "pdf"
)

// ErrUnsupported is returned for formats that are recognised but not produced.
var ErrUnsupported = errors.New("format not yet implemented")

// Headers are the columns of tabular exports.
var Headers = []string{
	"Document Number", "Full Name", "Date", "Region",
	"District", "Sponsor", "Status", "Created At",
}

const maxColumnWidth = 50

// ContentType and file extension of a format.
func (f Format) ContentType() (string, string) {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8", "csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
	case FormatJSON:
		return "application/json", "json"
	}
	return "application/octet-stream", "bin"
}

// Filename is the attachment name of an export made at t.
func (f Format) Filename(t time.Time) string {
	_, ext := f.ContentType()
	return fmt.Sprintf("travel_documents_%s.%s", t.Format("20060102_150405"), ext)
}

// Write renders docs in format f.
func Write(w io.Writer, f Format, docs []model.TravelDocument) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, docs)
	case FormatExcel:
		return WriteXLSX(w, docs)
	case FormatJSON:
		return WriteJSON(w, docs)
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, f)
}

func row(d *model.TravelDocument) []string {
	date := ""
	if d.Date != nil {
		date = d.Date.Format(time.DateOnly)
	}
	return []string{
		d.DocumentNumber,
		d.FullName,
		date,
		d.Region,
		d.District,
		d.SponsorName,
		d.Status.Label(),
		d.CreatedAt.UTC().Format("2006-01-02 15:04"),
	}
}

func WriteCSV(w io.Writer, docs []model.TravelDocument) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for i := range docs {
		if err := cw.Write(row(&docs[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes one "Travel Documents" sheet with a bold header row and
// columns sized to their content.
func WriteXLSX(w io.Writer, docs []model.TravelDocument) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Travel Documents"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	widths := make([]int, len(Headers))
	put := func(rowNum int, values []string) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			if n := utf8.RuneCountInString(v); n > widths[col] {
				widths[col] = n
			}
		}
		return nil
	}

	if err := put(1, Headers); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	for i := range docs {
		if err := put(i+2, row(&docs[i])); err != nil {
			return err
		}
	}
	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, float64(columnWidth(width))); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func columnWidth(content int) int {
	w := content + 2
	if w > maxColumnWidth {
		return maxColumnWidth
	}
	return w
}

// WriteJSON writes {"documents": [...]}.
func WriteJSON(w io.Writer, docs []model.TravelDocument) error {
	if docs == nil {
		docs = []model.TravelDocument{}
	}
	return json.NewEncoder(w).Encode(struct {
		Documents []model.TravelDocument `json:"documents"`
	}{docs})
}
