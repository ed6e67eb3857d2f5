// Package importer reads transaction rows from uploaded CSV and XLSX files.
package importer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"fintrack/internal/services"
)

var (
	ErrEmptyFile     = errors.New("file has no header row")
	ErrMissingColumn = errors.New("missing required column")
)

// Row is one data record of a file. Line is the 1-based record number
// counting the header; the CSV reader does not count empty lines.
type Row struct {
	Line        int
	Date        string
	Description string
	Amount      string
	Category    string
	Type        string
}

// Record converts the row for the ingestion pipeline.
func (r Row) Record() services.Record {
	return services.Record{
		Date:        r.Date,
		Description: r.Description,
		Amount:      r.Amount,
		Category:    r.Category,
		Type:        r.Type,
	}
}

// Records converts rows in order.
func Records(rows []Row) []services.Record {
	out := make([]services.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out
}

// Source yields the data rows of one file.
type Source interface {
	Rows() ([]Row, error)
}

// Detect picks a Source from the file name or content type. Anything that is
// not a spreadsheet is read as CSV.
func Detect(filename, contentType string, r io.Reader) Source {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xlsx" || strings.Contains(contentType, "spreadsheetml") {
		return NewXLSX(r)
	}
	return NewCSV(r)
}

type columns struct {
	date, description, amount, category, kind int
}

var headerAliases = map[string]string{
	"date":             "date",
	"transaction date": "date",
	"description":      "description",
	"desc":             "description",
	"narration":        "description",
	"details":          "description",
	"amount":           "amount",
	"category":         "category",
	"type":             "type",
}

// mapHeader locates columns by case-insensitive header names. date,
// description and amount are required.
func mapHeader(header []string) (columns, error) {
	cols := columns{date: -1, description: -1, amount: -1, category: -1, kind: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch headerAliases[name] {
		case "date":
			if cols.date < 0 {
				cols.date = i
			}
		case "description":
			if cols.description < 0 {
				cols.description = i
			}
		case "amount":
			cols.amount = i
		case "category":
			cols.category = i
		case "type":
			cols.kind = i
		}
	}

	var missing []string
	if cols.date < 0 {
		missing = append(missing, "date")
	}
	if cols.description < 0 {
		missing = append(missing, "description")
	}
	if cols.amount < 0 {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) row(line int, record []string) Row {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return Row{
		Line:        line,
		Date:        cell(c.date),
		Description: cell(c.description),
		Amount:      cell(c.amount),
		Category:    cell(c.category),
		Type:        cell(c.kind),
	}
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// rowsFrom maps a header plus data records, skipping blank lines.
func rowsFrom(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	cols, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, cols.row(i+2, rec))
	}
	return rows, nil
}
