// Package taxonomy defines the shared denial-reason taxonomy used across all
// payers, together with the lookup tables that normalize payer-specific
// vocabulary into it: per-payer denial-code mappings, canonical branch
// aliases, and the deterministic severity rule table.
package taxonomy

// Code is a standardized denial-reason code from the shared taxonomy.
type Code string

// The fixed reason taxonomy. Every normalized record carries exactly one of
// these codes; payer codes that resolve to nothing map to CodeUncategorized.
const (
	CodeEligibility        Code = "ELIG"
	CodePriorAuth          Code = "AUTH"
	CodeNonCovered         Code = "NCOV"
	CodeCoordinationOfBen  Code = "COB"
	CodeReferralMissing    Code = "REFL"
	CodeMedicalNecessity   Code = "MEDN"
	CodeDocumentation      Code = "DOCS"
	CodeDuplicateClaim     Code = "DUP"
	CodeTimelyFiling       Code = "TIME"
	CodePatientIdentity    Code = "PTID"
	CodeProviderEnrollment Code = "PENR"
	CodeClaimFormat        Code = "FRMT"
	CodeCodingInvalid      Code = "CODE"
	CodeBundling           Code = "BNDL"
	CodeModifierInvalid    Code = "MODF"
	CodeUnitsExceeded      Code = "UNIT"
	CodePlaceOfService     Code = "POS"
	CodePricingDispute     Code = "PRCE"

	// CodeUncategorized marks a record whose payer code had no taxonomy
	// mapping. It is an explicit marker, never an error.
	CodeUncategorized Code = "UNCAT"
)

// Class groups taxonomy codes by the kind of failure they represent.
// Severity rules and recommendation templates key on class.
type Class string

const (
	ClassCoverage       Class = "coverage"
	ClassClinical       Class = "clinical"
	ClassAdministrative Class = "administrative"
	ClassTechnical      Class = "technical"
	ClassUnknown        Class = "unknown"
)

var classes = map[Code]Class{
	CodeEligibility:        ClassCoverage,
	CodePriorAuth:          ClassCoverage,
	CodeNonCovered:         ClassCoverage,
	CodeCoordinationOfBen:  ClassCoverage,
	CodeReferralMissing:    ClassCoverage,
	CodeMedicalNecessity:   ClassClinical,
	CodeDocumentation:      ClassClinical,
	CodeDuplicateClaim:     ClassAdministrative,
	CodeTimelyFiling:       ClassAdministrative,
	CodePatientIdentity:    ClassAdministrative,
	CodeProviderEnrollment: ClassAdministrative,
	CodeClaimFormat:        ClassAdministrative,
	CodeCodingInvalid:      ClassTechnical,
	CodeBundling:           ClassTechnical,
	CodeModifierInvalid:    ClassTechnical,
	CodeUnitsExceeded:      ClassTechnical,
	CodePlaceOfService:     ClassTechnical,
	CodePricingDispute:     ClassTechnical,
	CodeUncategorized:      ClassUnknown,
}

var descriptions = map[Code]string{
	CodeEligibility:        "member not eligible on service date",
	CodePriorAuth:          "prior authorization missing or expired",
	CodeNonCovered:         "service not covered under policy",
	CodeCoordinationOfBen:  "coordination of benefits required",
	CodeReferralMissing:    "referral missing or invalid",
	CodeMedicalNecessity:   "medical necessity not established",
	CodeDocumentation:      "supporting documentation insufficient",
	CodeDuplicateClaim:     "duplicate of a previously submitted claim",
	CodeTimelyFiling:       "claim submitted past the filing window",
	CodePatientIdentity:    "patient identity mismatch",
	CodeProviderEnrollment: "provider not enrolled or credentialed",
	CodeClaimFormat:        "claim format or required field invalid",
	CodeCodingInvalid:      "diagnosis or procedure coding invalid",
	CodeBundling:           "service bundled into another procedure",
	CodeModifierInvalid:    "modifier missing or inconsistent",
	CodeUnitsExceeded:      "billed units exceed the allowed maximum",
	CodePlaceOfService:     "place of service inconsistent with procedure",
	CodePricingDispute:     "billed amount disagrees with contract pricing",
	CodeUncategorized:      "payer reason not mapped to the shared taxonomy",
}

// Valid reports whether c belongs to the taxonomy (including the
// uncategorized marker).
func Valid(c Code) bool {
	_, ok := classes[c]
	return ok
}

// ClassOf returns the class for a taxonomy code, ClassUnknown for anything
// outside the taxonomy.
func ClassOf(c Code) Class {
	if class, ok := classes[c]; ok {
		return class
	}
	return ClassUnknown
}

// Describe returns the human-readable description for a taxonomy code.
func Describe(c Code) string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return descriptions[CodeUncategorized]
}

// Codes returns all taxonomy codes, uncategorized marker included, in a
// stable order.
func Codes() []Code {
	return []Code{
		CodeEligibility, CodePriorAuth, CodeNonCovered, CodeCoordinationOfBen,
		CodeReferralMissing, CodeMedicalNecessity, CodeDocumentation,
		CodeDuplicateClaim, CodeTimelyFiling, CodePatientIdentity,
		CodeProviderEnrollment, CodeClaimFormat, CodeCodingInvalid,
		CodeBundling, CodeModifierInvalid, CodeUnitsExceeded,
		CodePlaceOfService, CodePricingDispute, CodeUncategorized,
	}
}
