// Package importer reads vocabulary word lists from spreadsheets.
//
// The first column holds the term and the second the definition. A leading
// "term, definition" header row is skipped, as are rows missing either value.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv.
var ErrUnsupportedFormat = errors.New("unsupported file format: use .xlsx or .csv")

// ErrEmptyFile is returned when the file has no sheet or no rows at all.
var ErrEmptyFile = errors.New("file contains no rows")

// Row is one term/definition pair.
type Row struct {
	Term       string
	Definition string
}

// Result is the parsed content of a file.
type Result struct {
	Rows    []Row
	Skipped int
}

// Parse reads r as a spreadsheet, choosing the format from name's extension.
func Parse(name string, r io.Reader) (*Result, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	return collect(records), nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func collect(records [][]string) *Result {
	res := &Result{}
	for i, rec := range records {
		term, def := cell(rec, 0), cell(rec, 1)
		if i == 0 && isHeader(term, def) {
			continue
		}
		if term == "" && def == "" {
			continue
		}
		if term == "" || def == "" {
			res.Skipped++
			continue
		}
		res.Rows = append(res.Rows, Row{Term: term, Definition: def})
	}
	return res
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(rec[i], "\ufeff"))
}

func isHeader(term, def string) bool {
	return strings.EqualFold(term, "term") && strings.EqualFold(def, "definition")
}
