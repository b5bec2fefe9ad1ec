package domain

import "strings"

// ExtractionResult is produced once per job by the extraction client and
// read-only afterward. ConfidenceScore is always derived from required-field
// coverage, never from the model's self-reported confidence.
type ExtractionResult struct {
	RawText           string            `json:"raw_text"`
	Fields            map[string]string `json:"fields"`
	IsAIGenerated     bool              `json:"is_ai_generated"`
	TamperingDetected bool              `json:"tampering_detected,omitempty"`
	Anomalies         []string          `json:"anomalies,omitempty"`
	ConfidenceScore   int               `json:"confidence_score"`
	ModelID           string            `json:"model_id"`
	Degraded          bool              `json:"degraded,omitempty"`
}

// QualityNoticePrefix marks anomaly strings that are quality observations
// rather than forgery signals. The risk scorer ignores them in tier 1.
const QualityNoticePrefix = "quality:"

// SuspiciousAnomalies returns the anomalies that are not pure quality notices.
func (r *ExtractionResult) SuspiciousAnomalies() []string {
	var out []string
	for _, a := range r.Anomalies {
		if !strings.HasPrefix(a, QualityNoticePrefix) {
			out = append(out, a)
		}
	}
	return out
}

// ValidationResult is a deterministic function of extracted fields and the
// document type. It is never an error: invalid input yields IsValid=false.
type ValidationResult struct {
	IsValid               bool     `json:"is_valid"`
	MissingRequiredFields []string `json:"missing_required_fields"`
	InvalidFields         []string `json:"invalid_fields"`
	Inconsistencies       []string `json:"inconsistencies,omitempty"`
}

// BoundingBox is a pixel-space rectangle within a document image.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DescriptorSource tags which strategy produced a face region.
type DescriptorSource string

const (
	SourceDetector  DescriptorSource = "detector"
	SourceHeuristic DescriptorSource = "heuristic"
)

// FaceMatchResult compares two descriptors by Euclidean distance.
// ConfidencePercent is a relative ranking signal, not a calibrated probability.
type FaceMatchResult struct {
	Distance          float64 `json:"distance"`
	Threshold         float64 `json:"threshold"`
	IsMatch           bool    `json:"is_match"`
	ConfidencePercent float64 `json:"confidence_percent"`
}

// RiskLevel is the coarse authenticity classification.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Verdict is the fused authenticity assessment attached to a completed job.
type Verdict struct {
	RiskLevel           RiskLevel `json:"risk_level"`
	ConfidenceScore     int       `json:"confidence_score"`
	Explanation         string    `json:"explanation"`
	ContributingReasons []string  `json:"contributing_reasons"`
}

// VerificationResult bundles everything persisted for a completed job.
type VerificationResult struct {
	DocumentID string              `json:"document_id"`
	JobID      string              `json:"job_id"`
	Verdict    Verdict             `json:"verdict"`
	Extraction ExtractionResult    `json:"extraction"`
	Validation ValidationResult    `json:"validation"`
	FaceMatch  *FaceMatchResult    `json:"face_match,omitempty"`
	FaceBox    *FaceDescriptorMeta `json:"face_box,omitempty"`
}

// FaceDescriptorMeta records where a face was found and how. The raw
// descriptor vector is never persisted.
type FaceDescriptorMeta struct {
	Box        BoundingBox      `json:"box"`
	Confidence float64          `json:"confidence"`
	Source     DescriptorSource `json:"source"`
}
