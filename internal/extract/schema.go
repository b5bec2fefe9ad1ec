package extract

import (
	"fmt"
	"strings"

	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/asharma-dev/docverify-be/internal/validate"
)

// fieldHints gives the vision model per-field formatting guidance. Fields
// without a hint are requested as free text.
var fieldHints = map[string]string{
	"aadhaar_number":  "12-digit number (format: XXXX XXXX XXXX)",
	"pan_number":      "10-character PAN (format: ABCDE1234F)",
	"passport_number": "passport number (format: A1234567)",
	"voter_id":        "voter ID number (format: ABC1234567)",
	"license_number":  "driving license number",
	"dob":             "date of birth (DD/MM/YYYY)",
	"name":            "full name",
	"father_name":     "father's name",
	"gender":          "Male/Female",
	"address":         "full address",
	"issue_date":      "issue date (DD/MM/YYYY)",
	"expiry_date":     "date of expiry (DD/MM/YYYY)",
	"validity":        "validity date (DD/MM/YYYY)",
	"blood_group":     "blood group",
	"place_of_birth":  "place of birth",
	"nationality":     "nationality",
	"merchant_name":   "merchant or vendor name",
	"total_amount":    "grand total as a plain decimal number",
	"bill_date":       "bill date (DD/MM/YYYY)",
	"bill_number":     "bill or invoice number",
	"line_items":      "array of {description, amount} for every line item",
}

var typeTitles = map[domain.DocumentType]string{
	domain.TypeAadhaar:        "Indian Aadhaar Card",
	domain.TypePAN:            "Indian PAN Card",
	domain.TypeDrivingLicense: "Indian Driving License",
	domain.TypePassport:       "Indian Passport",
	domain.TypeVoterID:        "Indian Voter ID Card",
	domain.TypeBill:           "itemized bill or invoice",
}

// BuildPrompt constructs the document-type-specific extraction prompt. The
// model is asked for strict JSON so the response can be schema-validated.
func BuildPrompt(docType domain.DocumentType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This is an %s. Extract the following information in JSON format:\n{\n", typeTitles[docType])

	fields := append(validate.RequiredFields(docType), validate.OptionalFields(docType)...)
	for i, field := range fields {
		hint := fieldHints[field]
		if hint == "" {
			hint = strings.ReplaceAll(field, "_", " ")
		}
		fmt.Fprintf(&b, "    %q: %q", field, hint)
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	b.WriteString("}\nOnly return valid JSON. If a field is not found, use null.")
	return b.String()
}

// BuildFieldSchema returns the JSON Schema the model's response must satisfy
// for the given document type. Required fields must be present but may be
// null; the validator decides later whether nulls make the document invalid.
func BuildFieldSchema(docType domain.DocumentType) map[string]any {
	properties := map[string]any{}

	for _, field := range append(validate.RequiredFields(docType), validate.OptionalFields(docType)...) {
		if field == "line_items" {
			properties[field] = map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": map[string]any{"type": []string{"string", "null"}},
						"amount":      map[string]any{"type": "number"},
					},
					"required": []string{"amount"},
				},
			}
			continue
		}
		if field == "total_amount" {
			properties[field] = map[string]any{"type": []string{"string", "number", "null"}}
			continue
		}
		properties[field] = map[string]any{"type": []string{"string", "null"}}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   validate.RequiredFields(docType),
	}
}

// authenticityPrompt asks the model to assess generation and tampering signs.
// Answered as strict JSON so failures are detectable.
const authenticityPrompt = `Analyze this document image for authenticity:
1. Is the image clear and readable?
2. Does it appear to be a genuine document?
3. Are there any signs of AI generation, tampering, or forgery?
4. Overall confidence in this assessment (0-100).

Provide the response in JSON format:
{
    "is_clear": true,
    "is_ai_generated": false,
    "tampering_detected": false,
    "confidence_score": 0,
    "anomalies": ["short descriptions of any suspicious signs"]
}
Only return valid JSON.`

// authenticitySchema validates the authenticity probe response.
var authenticitySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"is_clear":           map[string]any{"type": "boolean"},
		"is_ai_generated":    map[string]any{"type": "boolean"},
		"tampering_detected": map[string]any{"type": "boolean"},
		"confidence_score":   map[string]any{"type": "number"},
		"anomalies": map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{"is_ai_generated", "confidence_score"},
}

// stripCodeFences extracts JSON from markdown code blocks when the model
// wraps its answer despite the strict-JSON instruction.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
	} else {
		return text
	}
	if end := strings.Index(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
