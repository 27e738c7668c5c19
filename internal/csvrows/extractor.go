// Package csvrows turns an uploaded CSV into ordered product rows.
package csvrows

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"imagebatch/internal/models"
)

const (
	ColumnSerialNumber = "Serial Number"
	ColumnProductName  = "Product Name"
	ColumnInputURLs    = "Input Image Urls"

	urlSeparator = ","
)

// RequiredColumns in the order they are checked.
var RequiredColumns = []string{ColumnSerialNumber, ColumnProductName, ColumnInputURLs}

// Extract parses data into rows keyed by the header line. Rows without any
// populated field are skipped. It returns models.ErrEmptyInput when no data
// rows remain and a *models.SchemaError for the first missing required column.
// Quoting errors are reported as models.ErrMalformedCSV. Row.Line counts data
// records from 1, skipped blank ones included.
func Extract(data []byte) ([]models.Row, error) {
	const op = "csvrows.Extract"

	records, err := readRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrMalformedCSV, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrEmptyInput)
	}

	header := normalizeHeader(records[0])
	var fields []map[string]string
	var lines []int
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		m := make(map[string]string, len(header))
		for j, name := range header {
			if j < len(rec) {
				m[name] = rec[j]
			} else {
				m[name] = ""
			}
		}
		fields = append(fields, m)
		lines = append(lines, i+1)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrEmptyInput)
	}

	index := make(map[string]struct{}, len(header))
	for _, name := range header {
		index[name] = struct{}{}
	}
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: %w", op, &models.SchemaError{Column: col})
		}
	}

	rows := make([]models.Row, 0, len(fields))
	for i, m := range fields {
		raw := m[ColumnInputURLs]
		rows = append(rows, models.Row{
			Line:         lines[i],
			SerialNumber: m[ColumnSerialNumber],
			ProductName:  m[ColumnProductName],
			InputURLs:    raw,
			URLs:         SplitURLs(raw),
		})
	}
	return rows, nil
}

// SplitURLs splits a delimited URL field and trims each entry. Empty entries
// are kept so that a trailing separator still fails the row downstream.
func SplitURLs(raw string) []string {
	parts := strings.Split(raw, urlSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func readRecords(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

func normalizeHeader(h []string) []string {
	out := make([]string, len(h))
	for i, name := range h {
		out[i] = strings.TrimSpace(name)
	}
	return out
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
