package face

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

func TestHTTPEngine_Detect(t *testing.T) {
	imageBytes := []byte("fake image")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/detect", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Image string `json:"image"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, base64.StdEncoding.EncodeToString(imageBytes), req.Image)

		json.NewEncoder(w).Encode(map[string]any{
			"faces": []map[string]any{
				{"box": map[string]int{"x": 10, "y": 20, "width": 30, "height": 40}, "confidence": 0.9},
			},
		})
	}))
	defer server.Close()

	engine := NewHTTPEngine(&Config{BaseURL: server.URL, APIKey: "test-key", Timeout: 5 * time.Second})

	detections, err := engine.Detect(context.Background(), imageBytes)
	require.NoError(t, err)

	require.Len(t, detections, 1)
	assert.Equal(t, domain.BoundingBox{X: 10, Y: 20, Width: 30, Height: 40}, detections[0].Box)
	assert.Equal(t, 0.9, detections[0].Confidence)
}

func TestHTTPEngine_Describe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/describe", r.URL.Path)

		var req struct {
			Box domain.BoundingBox `json:"box"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, domain.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}, req.Box)

		json.NewEncoder(w).Encode(map[string]any{"descriptor": []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	engine := NewHTTPEngine(&Config{BaseURL: server.URL, Timeout: 5 * time.Second})

	descriptor, err := engine.Describe(context.Background(), []byte("img"), domain.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, descriptor)
}

func TestHTTPEngine_Errors(t *testing.T) {
	t.Run("service error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		engine := NewHTTPEngine(&Config{BaseURL: server.URL, Timeout: 5 * time.Second})

		_, err := engine.Detect(context.Background(), []byte("img"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 503")
	})

	t.Run("empty descriptor", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"descriptor": []float64{}})
		}))
		defer server.Close()

		engine := NewHTTPEngine(&Config{BaseURL: server.URL, Timeout: 5 * time.Second})

		_, err := engine.Describe(context.Background(), []byte("img"), domain.BoundingBox{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty descriptor")
	})

	t.Run("unreachable service", func(t *testing.T) {
		engine := NewHTTPEngine(&Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

		_, err := engine.Detect(context.Background(), []byte("img"))
		require.Error(t, err)
	})
}
