package normalizer

import (
	"encoding/json"
	"fmt"
)

// bundleDoc is the structured export shape some payers publish: a JSON
// document with one object per denied claim line.
type bundleDoc struct {
	Claims []bundleClaim `json:"claims"`
}

type bundleClaim struct {
	ClaimID     string `json:"claim_id"`
	Branch      string `json:"branch"`
	DenialCode  string `json:"denial_code"`
	Reason      string `json:"reason"`
	Amount      string `json:"amount"`
	ServiceDate string `json:"service_date"`
}

// parseBundle extracts entries from a structured JSON bundle. A bare array
// of claims is accepted alongside the enveloped form.
func parseBundle(data []byte) ([]Entry, error) {
	var doc bundleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		var claims []bundleClaim
		if arrErr := json.Unmarshal(data, &claims); arrErr != nil {
			return nil, fmt.Errorf("%w: parse bundle: %v", ErrMalformedSheet, err)
		}
		doc.Claims = claims
	}

	if len(doc.Claims) == 0 {
		return nil, fmt.Errorf("%w: bundle has no claims", ErrMalformedSheet)
	}

	entries := make([]Entry, 0, len(doc.Claims))
	for i, c := range doc.Claims {
		if c.ClaimID == "" {
			return nil, fmt.Errorf("%w: claim %d: empty claim id", ErrMalformedSheet, i)
		}

		amount, err := parseAmount(c.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: claim %d: %v", ErrMalformedSheet, i, err)
		}

		serviceDate, err := parseDate(c.ServiceDate)
		if err != nil {
			return nil, fmt.Errorf("%w: claim %d: %v", ErrMalformedSheet, i, err)
		}

		entries = append(entries, Entry{
			ClaimID:     c.ClaimID,
			Branch:      c.Branch,
			PayerCode:   c.DenialCode,
			ReasonText:  c.Reason,
			Amount:      amount,
			ServiceDate: serviceDate,
		})
	}

	return entries, nil
}
