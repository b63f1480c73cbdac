package normalizer

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// parseTabular extracts entries from an xlsx export. The first worksheet is
// authoritative; the first non-empty row is the header.
func parseTabular(data []byte) ([]Entry, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrMalformedSheet, err)
	}
	defer f.Close()

	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedSheet)
	}

	rows, err := f.GetRows(sheetList[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read rows: %v", ErrMalformedSheet, err)
	}

	headerIdx := -1
	for i, row := range rows {
		if len(row) > 0 && !rowEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, fmt.Errorf("%w: workbook has no header row", ErrMalformedSheet)
	}

	positions, err := mapHeader(rows[headerIdx])
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows)-headerIdx-1)
	for i, row := range rows[headerIdx+1:] {
		if rowEmpty(row) {
			continue
		}
		entry, err := rowToEntry(row, positions, headerIdx+i+2)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSheet, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
