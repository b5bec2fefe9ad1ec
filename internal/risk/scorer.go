// Package risk fuses extraction, validation, and face-match signals into an
// authenticity verdict. The three-tier separation (forged vs needs-review vs
// authentic) is deliberate: a document with no forgery signal but messy data
// must not be collapsed into either extreme, or downstream reviewers are
// misled about what they are looking at.
package risk

import (
	"github.com/asharma-dev/docverify-be/internal/domain"
)

// highRiskConfidenceFloor splits tier one between high and medium: a tampering
// signal backed by strong field coverage is treated as a confident forgery
// call, a weak one only warrants review.
const highRiskConfidenceFloor = 75

// Input carries the fused signals for one job. FaceMatch is nil when the
// face stage did not run; FaceRequired records whether it should have.
type Input struct {
	Extraction   *domain.ExtractionResult
	Validation   *domain.ValidationResult
	FaceMatch    *domain.FaceMatchResult
	FaceRequired bool
}

// Score evaluates the decision policy in priority order, first match wins.
func Score(in Input) domain.Verdict {
	suspicious := in.Extraction.SuspiciousAnomalies()

	// Tier 1: forgery signal. A tampering flag is a forgery call on its
	// own; the AI-generated flag needs a suspicious anomaly to back it.
	if in.Extraction.TamperingDetected || (in.Extraction.IsAIGenerated && len(suspicious) > 0) {
		level := domain.RiskMedium
		if in.Extraction.ConfidenceScore > highRiskConfidenceFloor {
			level = domain.RiskHigh
		}
		var flagged []string
		if in.Extraction.IsAIGenerated {
			flagged = append(flagged, "extraction flagged the image as AI-generated")
		}
		if in.Extraction.TamperingDetected {
			flagged = append(flagged, "extraction flagged signs of tampering")
		}
		return domain.Verdict{
			RiskLevel:           level,
			ConfidenceScore:     in.Extraction.ConfidenceScore,
			Explanation:         "document appears generated or tampered",
			ContributingReasons: append(flagged, suspicious...),
		}
	}

	// Tier 2: no forgery signal, but a quality or consistency gap.
	var reasons []string
	if !in.Validation.IsValid {
		reasons = append(reasons, "field validation failed")
		for _, f := range in.Validation.MissingRequiredFields {
			reasons = append(reasons, "missing required field: "+f)
		}
		for _, f := range in.Validation.InvalidFields {
			reasons = append(reasons, "invalid field format: "+f)
		}
		reasons = append(reasons, in.Validation.Inconsistencies...)
	}
	if in.FaceRequired {
		if in.FaceMatch == nil {
			reasons = append(reasons, "required face match could not be performed")
		} else if !in.FaceMatch.IsMatch {
			reasons = append(reasons, "face does not match the live capture")
		}
	}
	if len(reasons) > 0 {
		return domain.Verdict{
			RiskLevel:           domain.RiskMedium,
			ConfidenceScore:     in.Extraction.ConfidenceScore,
			Explanation:         "needs manual review",
			ContributingReasons: reasons,
		}
	}

	// Tier 3: nothing stood out.
	return domain.Verdict{
		RiskLevel:           domain.RiskLow,
		ConfidenceScore:     in.Extraction.ConfidenceScore,
		Explanation:         "appears authentic",
		ContributingReasons: []string{"all checks passed"},
	}
}
