package validate

import (
	"regexp"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

// fieldRule is a format check applied to a single field when it is present.
type fieldRule struct {
	field   string
	pattern *regexp.Regexp
	// altPattern, when set, also accepts the value (used by license numbers
	// that appear in two official formats).
	altPattern *regexp.Regexp
}

var (
	panPattern        = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadhaarPattern    = regexp.MustCompile(`^\d{4}\s?\d{4}\s?\d{4}$`)
	passportPattern   = regexp.MustCompile(`^[A-Z]\d{7}$`)
	voterIDPattern    = regexp.MustCompile(`^[A-Z]{3}\d{7}$`)
	licensePattern    = regexp.MustCompile(`^[A-Z]{2}[-/]?\d{2}[-/]?\d{4}[-/]?\d{7}$`)
	licenseAltPattern = regexp.MustCompile(`^[A-Z]{2}\d{13,16}$`)
)

// requiredFields lists the fields that must be present for each document type.
var requiredFields = map[domain.DocumentType][]string{
	domain.TypeAadhaar:        {"name", "aadhaar_number", "dob"},
	domain.TypePAN:            {"name", "pan_number", "father_name"},
	domain.TypeDrivingLicense: {"name", "license_number", "dob"},
	domain.TypePassport:       {"name", "passport_number", "dob"},
	domain.TypeVoterID:        {"name", "voter_id"},
	domain.TypeBill:           {"merchant_name", "total_amount"},
}

// optionalFields lists the extra fields the extraction stage is asked for.
var optionalFields = map[domain.DocumentType][]string{
	domain.TypeAadhaar:        {"gender", "address"},
	domain.TypePAN:            {"dob"},
	domain.TypeDrivingLicense: {"issue_date", "validity", "address", "blood_group"},
	domain.TypePassport:       {"issue_date", "expiry_date", "place_of_birth", "nationality"},
	domain.TypeVoterID:        {"dob", "gender", "address"},
	domain.TypeBill:           {"bill_date", "bill_number", "line_items"},
}

var formatRules = map[domain.DocumentType][]fieldRule{
	domain.TypePAN:      {{field: "pan_number", pattern: panPattern}},
	domain.TypeAadhaar:  {{field: "aadhaar_number", pattern: aadhaarPattern}},
	domain.TypePassport: {{field: "passport_number", pattern: passportPattern}},
	domain.TypeVoterID:  {{field: "voter_id", pattern: voterIDPattern}},
	domain.TypeDrivingLicense: {
		{field: "license_number", pattern: licensePattern, altPattern: licenseAltPattern},
	},
}

// RequiredFields returns the required field names for a document type.
func RequiredFields(t domain.DocumentType) []string {
	fields := requiredFields[t]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// OptionalFields returns the optional field names requested during extraction.
func OptionalFields(t domain.DocumentType) []string {
	fields := optionalFields[t]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}
