package face

import (
	"context"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

// Detection is one candidate face region reported by the detector.
type Detection struct {
	Box        domain.BoundingBox `json:"box"`
	Confidence float64            `json:"confidence"`
}

// Engine is the capability interface over the pre-trained face detector and
// descriptor extractor. Both models are black boxes: implementations load or
// connect to them once at process startup and are shared read-only between
// jobs. Nothing in the pipeline mutates model state.
type Engine interface {
	// Detect returns all candidate face regions in the image, unordered.
	Detect(ctx context.Context, image []byte) ([]Detection, error)

	// Describe computes a fixed-length descriptor for the face inside box.
	Describe(ctx context.Context, image []byte, box domain.BoundingBox) ([]float64, error)
}
