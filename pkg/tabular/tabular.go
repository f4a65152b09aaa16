// Package tabular reads spreadsheet files into rows keyed by their header.
// CSV and XLSX are supported; the first line (or the first row of the first
// sheet) is the header.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/papercomputeco/pitch/pkg/chunk"
)

var (
	// ErrUnsupportedFormat is returned for a file extension with no reader.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoHeader is returned for an empty file.
	ErrNoHeader = errors.New("file has no header row")
)

const bom = "\ufeff"

// Extensions lists the file extensions Read understands.
var Extensions = []string{".csv", ".xlsx"}

// Supported reports whether name has a readable extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load opens path and reads its rows.
func Load(path string) ([]chunk.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return Read(filepath.Base(path), f)
}

// Read picks a reader from name's extension.
func Read(name string, r io.Reader) ([]chunk.Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// ReadCSV reads comma separated rows. Rows may be shorter than the header;
// absent cells are left out of the row.
func ReadCSV(r io.Reader) ([]chunk.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return toRows(records)
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) ([]chunk.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return toRows(records)
}

func toRows(records [][]string) ([]chunk.Row, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, bom))
	}

	rows := make([]chunk.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(chunk.Row, len(header))
		for i, v := range rec {
			if i >= len(header) || header[i] == "" {
				break
			}
			row[header[i]] = strings.TrimSpace(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
