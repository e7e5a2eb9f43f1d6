package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies an import file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnknownFormat = errors.New("catalog: unknown import format")

// ParseFormat maps a flag value or file extension to a Format.
func ParseFormat(value string) (Format, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, ".")
	switch value {
	case "csv", "text/csv":
		return FormatCSV, nil
	case "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, value)
}

// FormatFromFilename infers the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return ParseFormat(name[idx+1:])
}

// Row is a spreadsheet line keyed by normalized header.
type Row struct {
	Number int
	Values map[string]string
}

// Get returns the first non-empty value among keys.
func (r Row) Get(keys ...string) string {
	for _, key := range keys {
		if v := r.Values[key]; v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether any of the keys has a column in the row.
func (r Row) Has(keys ...string) bool {
	for _, key := range keys {
		if _, ok := r.Values[key]; ok {
			return true
		}
	}
	return false
}

// ReadRows decodes an import file. Headers are trimmed and lower-cased; a trailing " *" required
// marker is dropped. Blank rows are skipped but still advance the row number.
func ReadRows(r io.Reader, format Format) ([]Row, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatXLSX:
		return readXLSX(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func readCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: read csv header: %w", err)
	}
	headers = normalizeHeaders(headers)

	var rows []Row
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("catalog: read csv line %d: %w", line, err)
		}
		if row, ok := buildRow(headers, record, line); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("catalog: xlsx has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("catalog: read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := normalizeHeaders(records[0])
	var rows []Row
	for idx, record := range records[1:] {
		if row, ok := buildRow(headers, record, idx+2); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ToLower(strings.TrimSpace(h))
		out[i] = strings.TrimSpace(strings.TrimSuffix(h, " *"))
	}
	return out
}

func buildRow(headers, record []string, number int) (Row, bool) {
	values := make(map[string]string, len(headers))
	blank := true
	for i, header := range headers {
		if header == "" {
			continue
		}
		var v string
		if i < len(record) {
			v = strings.TrimSpace(record[i])
		}
		if v != "" {
			blank = false
		}
		values[header] = v
	}
	if blank {
		return Row{}, false
	}
	return Row{Number: number, Values: values}, true
}
