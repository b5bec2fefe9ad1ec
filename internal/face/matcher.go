package face

import (
	"fmt"
	"math"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

// MatchThreshold is the empirically chosen operating point: two descriptors
// closer than this distance are classified as the same person. The comparison
// is strict, a distance exactly at the threshold is not a match.
const MatchThreshold = 0.6

// Compare measures the Euclidean distance between two descriptors and
// classifies the pair. The mapping from distance to confidence is monotonic
// but not a calibrated probability; callers may only use it as a relative
// ranking signal.
func Compare(a, b []float64) (domain.FaceMatchResult, error) {
	if len(a) == 0 || len(b) == 0 {
		return domain.FaceMatchResult{}, domain.ErrNoFaceDetected
	}
	if len(a) != len(b) {
		return domain.FaceMatchResult{}, fmt.Errorf("descriptor length mismatch: %d vs %d", len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	distance := math.Sqrt(sum)

	confidence := (1 - distance) * 100
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return domain.FaceMatchResult{
		Distance:          distance,
		Threshold:         MatchThreshold,
		IsMatch:           distance < MatchThreshold,
		ConfidencePercent: confidence,
	}, nil
}
