package face

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

// DefaultMinConfidence is the floor a trained detection must clear before it
// is preferred over the heuristic region.
const DefaultMinConfidence = 0.5

// Location is a located face region tagged with the strategy that found it.
// The tag keeps the fallback path directly unit-testable.
type Location struct {
	Box        domain.BoundingBox
	Confidence float64
	Source     domain.DescriptorSource
}

// Locator finds the most probable face region in a document image. Tier one
// is the trained detector; tier two is a static expected-region heuristic
// keyed by document type, used when the detector finds nothing above the
// floor. The detector is unreliable on low-resolution scans and the heuristic
// alone is too imprecise for portrait documents, so both tiers are needed.
type Locator struct {
	engine        Engine
	minConfidence float64
	logger        *slog.Logger
}

// NewLocator creates a Locator over the shared engine.
func NewLocator(engine Engine, minConfidence float64, logger *slog.Logger) *Locator {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Locator{
		engine:        engine,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// Locate returns the best face region for the image, or ErrNoFaceDetected
// when neither tier yields a usable region.
func (l *Locator) Locate(ctx context.Context, img []byte, docType domain.DocumentType) (*Location, error) {
	detections, err := l.engine.Detect(ctx, img)
	if err != nil {
		l.logger.Warn("Face detector unavailable, falling back to heuristic region",
			slog.String("document_type", string(docType)),
			slog.Any("error", err),
		)
	} else if best := bestDetection(detections, l.minConfidence); best != nil {
		return &Location{
			Box:        best.Box,
			Confidence: best.Confidence,
			Source:     domain.SourceDetector,
		}, nil
	}

	region, err := l.heuristicRegion(img, docType)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("Using heuristic face region",
		slog.String("document_type", string(docType)),
		slog.Int("x", region.X),
		slog.Int("y", region.Y),
	)

	return &Location{
		Box:        *region,
		Confidence: 0,
		Source:     domain.SourceHeuristic,
	}, nil
}

// LocateSelfie returns the best face region for a live capture. Selfies
// have no document layout, so the fallback is a centered region.
func (l *Locator) LocateSelfie(ctx context.Context, img []byte) (*Location, error) {
	detections, err := l.engine.Detect(ctx, img)
	if err != nil {
		l.logger.Warn("Face detector unavailable for selfie, falling back to centered region",
			slog.Any("error", err),
		)
	} else if best := bestDetection(detections, l.minConfidence); best != nil {
		return &Location{
			Box:        best.Box,
			Confidence: best.Confidence,
			Source:     domain.SourceDetector,
		}, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to determine image dimensions: %v", domain.ErrNoFaceDetected, err)
	}

	return &Location{
		Box: domain.BoundingBox{
			X:      cfg.Width * 25 / 100,
			Y:      cfg.Height * 15 / 100,
			Width:  cfg.Width * 50 / 100,
			Height: cfg.Height * 55 / 100,
		},
		Confidence: 0,
		Source:     domain.SourceHeuristic,
	}, nil
}

// bestDetection returns the highest-confidence detection at or above floor.
func bestDetection(detections []Detection, floor float64) *Detection {
	var best *Detection
	for i := range detections {
		d := &detections[i]
		if d.Confidence < floor {
			continue
		}
		if best == nil || d.Confidence > best.Confidence {
			best = d
		}
	}
	return best
}

// heuristicRegion returns the static expected photo region for the document
// layout: the left third for landscape cards, the upper center for portrait
// documents.
func (l *Locator) heuristicRegion(img []byte, docType domain.DocumentType) (*domain.BoundingBox, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to determine image dimensions: %v", domain.ErrNoFaceDetected, err)
	}

	w, h := cfg.Width, cfg.Height

	switch docType.Layout() {
	case domain.OrientationPortrait:
		return &domain.BoundingBox{
			X:      w * 30 / 100,
			Y:      h * 10 / 100,
			Width:  w * 40 / 100,
			Height: h * 35 / 100,
		}, nil
	default:
		return &domain.BoundingBox{
			X:      w * 5 / 100,
			Y:      h * 25 / 100,
			Width:  w * 30 / 100,
			Height: h * 50 / 100,
		}, nil
	}
}
