package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

// dobFormats are the accepted date-of-birth layouts, tried in order.
var dobFormats = []string{"02/01/2006", "02-01-2006", "02/01/06", "02-01-06"}

// totalTolerance is the rounding slack allowed between a bill's declared
// total and the sum of its line items.
const totalTolerance = 0.01

// lineItem mirrors one entry of the extracted line_items JSON array.
type lineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Validate applies document-type-specific rules to extracted fields.
// It is a pure function and never fails: malformed input produces an
// IsValid=false result so the pipeline can always proceed to scoring.
func Validate(fields map[string]string, docType domain.DocumentType) domain.ValidationResult {
	result := domain.ValidationResult{
		MissingRequiredFields: []string{},
		InvalidFields:         []string{},
	}

	for _, field := range requiredFields[docType] {
		if strings.TrimSpace(fields[field]) == "" {
			result.MissingRequiredFields = append(result.MissingRequiredFields, field)
		}
	}

	for _, rule := range formatRules[docType] {
		value, ok := fields[rule.field]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if rule.pattern.MatchString(value) {
			continue
		}
		if rule.altPattern != nil && rule.altPattern.MatchString(value) {
			continue
		}
		result.InvalidFields = append(result.InvalidFields, rule.field)
	}

	if dob, ok := fields["dob"]; ok && strings.TrimSpace(dob) != "" {
		if err := validateDOB(strings.TrimSpace(dob)); err != nil {
			result.InvalidFields = append(result.InvalidFields, "dob")
		}
	}

	if docType == domain.TypeBill {
		if inconsistency := checkBillTotal(fields); inconsistency != "" {
			result.Inconsistencies = append(result.Inconsistencies, inconsistency)
		}
	}

	result.IsValid = len(result.MissingRequiredFields) == 0 &&
		len(result.InvalidFields) == 0 &&
		len(result.Inconsistencies) == 0

	return result
}

// validateDOB parses the date of birth and rejects futures.
func validateDOB(dob string) error {
	var parsed time.Time
	var err error
	for _, layout := range dobFormats {
		parsed, err = time.Parse(layout, dob)
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("unrecognized date format: %s", dob)
	}
	if parsed.After(time.Now()) {
		return fmt.Errorf("date of birth is in the future: %s", dob)
	}
	return nil
}

// checkBillTotal compares the declared total against the sum of line items.
// A mismatch is an inconsistency, not a missing or invalid field. An empty
// return string means no inconsistency was found.
func checkBillTotal(fields map[string]string) string {
	totalStr := strings.TrimSpace(fields["total_amount"])
	itemsStr := strings.TrimSpace(fields["line_items"])
	if totalStr == "" || itemsStr == "" {
		return ""
	}

	declared, err := strconv.ParseFloat(totalStr, 64)
	if err != nil {
		return fmt.Sprintf("declared total %q is not a number", totalStr)
	}

	var items []lineItem
	if err := json.Unmarshal([]byte(itemsStr), &items); err != nil {
		return "line items could not be parsed"
	}
	if len(items) == 0 {
		return ""
	}

	var sum float64
	for _, item := range items {
		sum += item.Amount
	}

	if math.Abs(declared-sum) > totalTolerance {
		return fmt.Sprintf("declared total %.2f does not match line item sum %.2f", declared, sum)
	}
	return ""
}
