package normalizer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// parseDelimited extracts entries from comma- or pipe-separated text.
// The delimiter is sniffed from the header line.
func parseDelimited(data []byte) ([]Entry, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse delimited text: %v", ErrMalformedSheet, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformedSheet)
	}

	positions, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if rowEmpty(row) {
			continue
		}
		entry, err := rowToEntry(row, positions, i+2)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSheet, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func sniffDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}
	if strings.Count(string(line), "|") > strings.Count(string(line), ",") {
		return '|'
	}
	return ','
}
