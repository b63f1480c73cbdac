package normalizer

import (
	"bytes"
	"fmt"

	"github.com/finchhealth/denialwatch/internal/sheets"
)

// xlsx files are zip containers
var zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}

// DetectFormat identifies the source shape of a raw sheet by its content
// signature: a zip header means a tabular export, a leading JSON token means
// a structured bundle, anything else is treated as delimited text.
func DetectFormat(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrMalformedSheet)
	}

	if bytes.HasPrefix(data, zipSignature) {
		return sheets.FormatTabular, nil
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return sheets.FormatBundle, nil
	}

	return sheets.FormatDelimited, nil
}

// Parse detects the format and extracts entries with the matching parser.
func Parse(data []byte) (string, []Entry, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return sheets.FormatUnknown, nil, err
	}

	var entries []Entry
	switch format {
	case sheets.FormatTabular:
		entries, err = parseTabular(data)
	case sheets.FormatBundle:
		entries, err = parseBundle(data)
	default:
		entries, err = parseDelimited(data)
	}

	if err != nil {
		return format, nil, err
	}
	return format, entries, nil
}
