package taxonomy

import "github.com/shopspring/decimal"

// Severity grades the operational urgency of a rejection.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRule matches a reason-code class with an amount-at-risk floor.
// Rules are evaluated in order; the first match wins, so each class lists
// its highest floor first. A nil floor matches any amount.
type severityRule struct {
	class     Class
	minAmount *decimal.Decimal
	severity  Severity
}

func amt(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var severityRules = []severityRule{
	{ClassClinical, amt("5000"), SeverityCritical},
	{ClassClinical, nil, SeverityHigh},
	{ClassCoverage, amt("10000"), SeverityCritical},
	{ClassCoverage, amt("1000"), SeverityHigh},
	{ClassCoverage, nil, SeverityMedium},
	{ClassAdministrative, amt("5000"), SeverityHigh},
	{ClassAdministrative, nil, SeverityMedium},
	{ClassTechnical, amt("5000"), SeverityHigh},
	{ClassTechnical, nil, SeverityLow},
	{ClassUnknown, amt("1000"), SeverityHigh},
	{ClassUnknown, nil, SeverityMedium},
}

// SeverityFor assigns a severity from the fixed rule table, keyed on the
// reason-code class and the amount at risk. Deterministic for a given input.
func SeverityFor(code Code, amount decimal.Decimal) Severity {
	class := ClassOf(code)
	for _, r := range severityRules {
		if r.class != class {
			continue
		}
		if r.minAmount == nil || amount.GreaterThanOrEqual(*r.minAmount) {
			return r.severity
		}
	}
	return SeverityMedium
}
