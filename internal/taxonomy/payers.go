package taxonomy

import "strings"

// payerCodeMaps translate payer-specific denial codes into the shared
// taxonomy, one table per payer. Codes absent from a payer's table resolve
// to CodeUncategorized.
var payerCodeMaps = map[string]map[string]Code{
	"bupa": {
		"BV-01": CodeEligibility,
		"BV-02": CodePriorAuth,
		"BV-03": CodeNonCovered,
		"BV-04": CodeCoordinationOfBen,
		"BC-10": CodeMedicalNecessity,
		"BC-11": CodeDocumentation,
		"BA-20": CodeDuplicateClaim,
		"BA-21": CodeTimelyFiling,
		"BA-22": CodePatientIdentity,
		"BT-30": CodeCodingInvalid,
		"BT-31": CodeBundling,
		"BT-32": CodeModifierInvalid,
		"BT-33": CodeUnitsExceeded,
		"BT-34": CodePricingDispute,
	},
	"tawuniya": {
		"TW100": CodeEligibility,
		"TW101": CodePriorAuth,
		"TW102": CodeReferralMissing,
		"TW103": CodeNonCovered,
		"TW200": CodeMedicalNecessity,
		"TW201": CodeDocumentation,
		"TW300": CodeDuplicateClaim,
		"TW301": CodeTimelyFiling,
		"TW302": CodeProviderEnrollment,
		"TW303": CodeClaimFormat,
		"TW400": CodeCodingInvalid,
		"TW401": CodePlaceOfService,
		"TW402": CodePricingDispute,
	},
	"medgulf": {
		"MG-EL": CodeEligibility,
		"MG-PA": CodePriorAuth,
		"MG-NC": CodeNonCovered,
		"MG-MN": CodeMedicalNecessity,
		"MG-DC": CodeDocumentation,
		"MG-DP": CodeDuplicateClaim,
		"MG-TF": CodeTimelyFiling,
		"MG-CD": CodeCodingInvalid,
		"MG-BN": CodeBundling,
		"MG-UN": CodeUnitsExceeded,
		"MG-PR": CodePricingDispute,
	},
}

// ResolveReason maps a payer's denial code to the shared taxonomy.
// Unmapped codes resolve to CodeUncategorized with mapped=false; the caller
// keeps the record and flags it for review.
func ResolveReason(payerID, payerCode string) (code Code, mapped bool) {
	table, ok := payerCodeMaps[strings.ToLower(strings.TrimSpace(payerID))]
	if !ok {
		return CodeUncategorized, false
	}
	if c, found := table[strings.ToUpper(strings.TrimSpace(payerCode))]; found {
		return c, true
	}
	return CodeUncategorized, false
}

// KnownPayer reports whether a denial-code mapping table exists for payerID.
func KnownPayer(payerID string) bool {
	_, ok := payerCodeMaps[strings.ToLower(strings.TrimSpace(payerID))]
	return ok
}
