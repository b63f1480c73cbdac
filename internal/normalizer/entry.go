package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one extracted claim line before taxonomy mapping.
type Entry struct {
	ClaimID     string
	Branch      string
	PayerCode   string
	ReasonText  string
	Amount      decimal.Decimal
	ServiceDate time.Time
}

// Column roles recognized in tabular and delimited sources. Header aliases
// cover the spellings the payers actually use.
const (
	colClaimID = iota
	colBranch
	colPayerCode
	colReason
	colAmount
	colServiceDate
	colCount
)

var headerAliases = map[string]int{
	"claim id":     colClaimID,
	"claim_id":     colClaimID,
	"claim no":     colClaimID,
	"claim number": colClaimID,
	"claimid":      colClaimID,

	"branch":      colBranch,
	"branch name": colBranch,
	"facility":    colBranch,
	"provider":    colBranch,

	"denial code":    colPayerCode,
	"rejection code": colPayerCode,
	"reason code":    colPayerCode,
	"code":           colPayerCode,

	"reason":        colReason,
	"denial reason": colReason,
	"description":   colReason,
	"remarks":       colReason,

	"amount":          colAmount,
	"net amount":      colAmount,
	"rejected amount": colAmount,
	"claimed amount":  colAmount,

	"service date":    colServiceDate,
	"date of service": colServiceDate,
	"encounter date":  colServiceDate,
	"dos":             colServiceDate,
}

// mapHeader resolves a header row to column positions. Claim id, code, and
// amount are required; branch, reason, and service date are optional.
func mapHeader(cells []string) (map[int]int, error) {
	positions := make(map[int]int, colCount)
	for i, cell := range cells {
		key := strings.ToLower(strings.TrimSpace(cell))
		if role, ok := headerAliases[key]; ok {
			if _, seen := positions[role]; !seen {
				positions[role] = i
			}
		}
	}

	for _, required := range []int{colClaimID, colPayerCode, colAmount} {
		if _, ok := positions[required]; !ok {
			return nil, fmt.Errorf("%w: missing required column (claim id, code, amount)", ErrMalformedSheet)
		}
	}
	return positions, nil
}

func cellAt(cells []string, positions map[int]int, role int) string {
	idx, ok := positions[role]
	if !ok || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// rowToEntry converts one data row into an Entry using mapped positions.
func rowToEntry(cells []string, positions map[int]int, rowNum int) (Entry, error) {
	claimID := cellAt(cells, positions, colClaimID)
	if claimID == "" {
		return Entry{}, fmt.Errorf("row %d: empty claim id", rowNum)
	}

	amount, err := parseAmount(cellAt(cells, positions, colAmount))
	if err != nil {
		return Entry{}, fmt.Errorf("row %d: %w", rowNum, err)
	}

	serviceDate, err := parseDate(cellAt(cells, positions, colServiceDate))
	if err != nil {
		return Entry{}, fmt.Errorf("row %d: %w", rowNum, err)
	}

	return Entry{
		ClaimID:     claimID,
		Branch:      cellAt(cells, positions, colBranch),
		PayerCode:   cellAt(cells, positions, colPayerCode),
		ReasonText:  cellAt(cells, positions, colReason),
		Amount:      amount,
		ServiceDate: serviceDate,
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

var dateLayouts = []string{
	time.DateOnly,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	time.RFC3339,
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid service date %q", s)
}
