package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name        string
		docType     domain.DocumentType
		fields      map[string]string
		wantValid   bool
		wantMissing []string
	}{
		{
			name:    "aadhaar with all required fields",
			docType: domain.TypeAadhaar,
			fields: map[string]string{
				"name":           "Priya Sharma",
				"aadhaar_number": "1234 5678 9012",
				"dob":            "15/08/1992",
			},
			wantValid:   true,
			wantMissing: []string{},
		},
		{
			name:    "aadhaar missing dob",
			docType: domain.TypeAadhaar,
			fields: map[string]string{
				"name":           "Priya Sharma",
				"aadhaar_number": "1234 5678 9012",
			},
			wantValid:   false,
			wantMissing: []string{"dob"},
		},
		{
			name:        "pan with no fields at all",
			docType:     domain.TypePAN,
			fields:      map[string]string{},
			wantValid:   false,
			wantMissing: []string{"name", "pan_number", "father_name"},
		},
		{
			name:    "whitespace-only value counts as missing",
			docType: domain.TypeVoterID,
			fields: map[string]string{
				"name":     "Arun Patel",
				"voter_id": "   ",
			},
			wantValid:   false,
			wantMissing: []string{"voter_id"},
		},
		{
			name:    "bill with merchant and total",
			docType: domain.TypeBill,
			fields: map[string]string{
				"merchant_name": "Hotel Sagar",
				"total_amount":  "540.00",
			},
			wantValid:   true,
			wantMissing: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.fields, tt.docType)

			assert.Equal(t, tt.wantValid, result.IsValid)
			assert.Equal(t, tt.wantMissing, result.MissingRequiredFields)
		})
	}
}

func TestValidate_FormatRules(t *testing.T) {
	tests := []struct {
		name        string
		docType     domain.DocumentType
		field       string
		value       string
		wantInvalid bool
	}{
		{"valid pan", domain.TypePAN, "pan_number", "ABCDE1234F", false},
		{"pan lowercase rejected", domain.TypePAN, "pan_number", "abcde1234f", true},
		{"pan wrong digit count", domain.TypePAN, "pan_number", "ABCDE123F", true},
		{"pan trailing digit instead of letter", domain.TypePAN, "pan_number", "ABCDE12345", true},

		{"valid aadhaar with spaces", domain.TypeAadhaar, "aadhaar_number", "1234 5678 9012", false},
		{"valid aadhaar without spaces", domain.TypeAadhaar, "aadhaar_number", "123456789012", false},
		{"aadhaar too short", domain.TypeAadhaar, "aadhaar_number", "1234 5678 901", true},
		{"aadhaar with letter", domain.TypeAadhaar, "aadhaar_number", "1234 5678 901A", true},

		{"valid passport", domain.TypePassport, "passport_number", "A1234567", false},
		{"passport two leading letters", domain.TypePassport, "passport_number", "AB123456", true},
		{"passport too long", domain.TypePassport, "passport_number", "A12345678", true},

		{"valid voter id", domain.TypeVoterID, "voter_id", "ABC1234567", false},
		{"voter id short prefix", domain.TypeVoterID, "voter_id", "AB1234567", true},

		{"valid license with separators", domain.TypeDrivingLicense, "license_number", "MH-12-2015-1234567", false},
		{"valid license with slashes", domain.TypeDrivingLicense, "license_number", "MH/12/2015/1234567", false},
		{"valid license compact alternate", domain.TypeDrivingLicense, "license_number", "MH1220151234567", false},
		{"license bad state code", domain.TypeDrivingLicense, "license_number", "M1-12-2015-1234567", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]string{tt.field: tt.value}
			for _, req := range RequiredFields(tt.docType) {
				if _, ok := fields[req]; !ok {
					fields[req] = "placeholder"
				}
			}
			if tt.docType != domain.TypeBill {
				fields["dob"] = "01/01/1990"
			}

			result := Validate(fields, tt.docType)

			if tt.wantInvalid {
				assert.Contains(t, result.InvalidFields, tt.field)
				assert.False(t, result.IsValid)
			} else {
				assert.NotContains(t, result.InvalidFields, tt.field)
			}
		})
	}
}

func TestValidate_DOB(t *testing.T) {
	tests := []struct {
		name        string
		dob         string
		wantInvalid bool
	}{
		{"slash separated four digit year", "15/08/1992", false},
		{"dash separated four digit year", "15-08-1992", false},
		{"slash separated two digit year", "15/08/92", false},
		{"dash separated two digit year", "15-08-92", false},
		{"iso format rejected", "1992-08-15", true},
		{"textual month rejected", "15 Aug 1992", true},
		{"future date rejected", "01/01/2099", true},
		{"garbage rejected", "not-a-date", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]string{
				"name":            "Test Holder",
				"passport_number": "A1234567",
				"dob":             tt.dob,
			}

			result := Validate(fields, domain.TypePassport)

			if tt.wantInvalid {
				assert.Contains(t, result.InvalidFields, "dob")
			} else {
				assert.NotContains(t, result.InvalidFields, "dob")
				assert.True(t, result.IsValid)
			}
		})
	}
}

func TestValidate_BillTotals(t *testing.T) {
	tests := []struct {
		name             string
		fields           map[string]string
		wantValid        bool
		wantInconsistent bool
	}{
		{
			name: "total matches line item sum",
			fields: map[string]string{
				"merchant_name": "Cafe Madras",
				"total_amount":  "300.00",
				"line_items":    `[{"description":"dosa","amount":120},{"description":"coffee","amount":180}]`,
			},
			wantValid: true,
		},
		{
			name: "total within rounding tolerance",
			fields: map[string]string{
				"merchant_name": "Cafe Madras",
				"total_amount":  "300.01",
				"line_items":    `[{"description":"dosa","amount":120},{"description":"coffee","amount":180}]`,
			},
			wantValid: true,
		},
		{
			name: "total off beyond tolerance",
			fields: map[string]string{
				"merchant_name": "Cafe Madras",
				"total_amount":  "350.00",
				"line_items":    `[{"description":"dosa","amount":120},{"description":"coffee","amount":180}]`,
			},
			wantValid:        false,
			wantInconsistent: true,
		},
		{
			name: "non-numeric total",
			fields: map[string]string{
				"merchant_name": "Cafe Madras",
				"total_amount":  "three hundred",
				"line_items":    `[{"description":"dosa","amount":120}]`,
			},
			wantValid:        false,
			wantInconsistent: true,
		},
		{
			name: "unparsable line items",
			fields: map[string]string{
				"merchant_name": "Cafe Madras",
				"total_amount":  "300.00",
				"line_items":    "dosa 120, coffee 180",
			},
			wantValid:        false,
			wantInconsistent: true,
		},
		{
			name: "no line items skips the check",
			fields: map[string]string{
				"merchant_name": "Cafe Madras",
				"total_amount":  "300.00",
			},
			wantValid: true,
		},
		{
			name: "empty line item array skips the check",
			fields: map[string]string{
				"merchant_name": "Cafe Madras",
				"total_amount":  "300.00",
				"line_items":    `[]`,
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.fields, domain.TypeBill)

			assert.Equal(t, tt.wantValid, result.IsValid)
			if tt.wantInconsistent {
				assert.NotEmpty(t, result.Inconsistencies)
			} else {
				assert.Empty(t, result.Inconsistencies)
			}
		})
	}
}

func TestRequiredFields_ReturnsCopy(t *testing.T) {
	fields := RequiredFields(domain.TypeAadhaar)
	assert.Equal(t, []string{"name", "aadhaar_number", "dob"}, fields)

	fields[0] = "mutated"
	assert.Equal(t, []string{"name", "aadhaar_number", "dob"}, RequiredFields(domain.TypeAadhaar))
}

func TestOptionalFields(t *testing.T) {
	assert.Equal(t, []string{"gender", "address"}, OptionalFields(domain.TypeAadhaar))
	assert.Equal(t, []string{"bill_date", "bill_number", "line_items"}, OptionalFields(domain.TypeBill))
	assert.Empty(t, OptionalFields(domain.DocumentType("unknown")))
}
