package face

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name           string
		a              []float64
		b              []float64
		wantDistance   float64
		wantMatch      bool
		wantConfidence float64
	}{
		{
			name:           "identical descriptors",
			a:              []float64{0.1, 0.2, 0.3},
			b:              []float64{0.1, 0.2, 0.3},
			wantDistance:   0,
			wantMatch:      true,
			wantConfidence: 100,
		},
		{
			name:           "close descriptors match",
			a:              []float64{0.3, 0.4},
			b:              []float64{0.3, 0.5},
			wantDistance:   0.1,
			wantMatch:      true,
			wantConfidence: 90,
		},
		{
			name:           "distance exactly at threshold is not a match",
			a:              []float64{0, 0},
			b:              []float64{0.6, 0},
			wantDistance:   0.6,
			wantMatch:      false,
			wantConfidence: 40,
		},
		{
			name:           "just under threshold matches",
			a:              []float64{0, 0},
			b:              []float64{0.59, 0},
			wantDistance:   0.59,
			wantMatch:      true,
			wantConfidence: 41,
		},
		{
			name:           "far descriptors",
			a:              []float64{0, 0, 0},
			b:              []float64{1, 1, 1},
			wantDistance:   math.Sqrt(3),
			wantMatch:      false,
			wantConfidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Compare(tt.a, tt.b)
			require.NoError(t, err)

			assert.InDelta(t, tt.wantDistance, result.Distance, 1e-9)
			assert.Equal(t, tt.wantMatch, result.IsMatch)
			assert.InDelta(t, tt.wantConfidence, result.ConfidencePercent, 1e-9)
			assert.Equal(t, MatchThreshold, result.Threshold)
		})
	}
}

func TestCompare_Symmetric(t *testing.T) {
	a := []float64{0.12, 0.55, 0.9, 0.31}
	b := []float64{0.4, 0.5, 0.7, 0.2}

	ab, err := Compare(a, b)
	require.NoError(t, err)
	ba, err := Compare(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab.Distance, ba.Distance)
	assert.Equal(t, ab.IsMatch, ba.IsMatch)
	assert.Equal(t, ab.ConfidencePercent, ba.ConfidencePercent)
}

func TestCompare_Errors(t *testing.T) {
	tests := []struct {
		name    string
		a       []float64
		b       []float64
		wantErr error
	}{
		{
			name:    "empty first descriptor",
			a:       nil,
			b:       []float64{0.1},
			wantErr: domain.ErrNoFaceDetected,
		},
		{
			name:    "empty second descriptor",
			a:       []float64{0.1},
			b:       []float64{},
			wantErr: domain.ErrNoFaceDetected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(tt.a, tt.b)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Compare([]float64{0.1, 0.2}, []float64{0.1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "length mismatch")
	})
}
