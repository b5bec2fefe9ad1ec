package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asharma-dev/docverify-be/internal/domain"
)

// Config holds settings for the face inference service client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPEngine talks to an external face inference service exposing the
// pre-trained detector and descriptor models. Constructed once in main and
// passed by handle to every stage that needs it.
type HTTPEngine struct {
	config     *Config
	httpClient *http.Client
}

// NewHTTPEngine creates a face inference client.
func NewHTTPEngine(cfg *Config) *HTTPEngine {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEngine{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type detectRequest struct {
	Image string `json:"image"` // base64-encoded
}

type detectResponse struct {
	Faces []Detection `json:"faces"`
}

type describeRequest struct {
	Image string             `json:"image"`
	Box   domain.BoundingBox `json:"box"`
}

type describeResponse struct {
	Descriptor []float64 `json:"descriptor"`
}

// Detect runs the trained multi-scale detector over the full image.
func (e *HTTPEngine) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	var resp detectResponse
	req := detectRequest{Image: base64.StdEncoding.EncodeToString(image)}
	if err := e.post(ctx, "/v1/detect", req, &resp); err != nil {
		return nil, err
	}
	return resp.Faces, nil
}

// Describe computes the fixed-length descriptor for a face crop.
func (e *HTTPEngine) Describe(ctx context.Context, image []byte, box domain.BoundingBox) ([]float64, error) {
	var resp describeResponse
	req := describeRequest{Image: base64.StdEncoding.EncodeToString(image), Box: box}
	if err := e.post(ctx, "/v1/describe", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Descriptor) == 0 {
		return nil, fmt.Errorf("inference service returned an empty descriptor")
	}
	return resp.Descriptor, nil
}

func (e *HTTPEngine) post(ctx context.Context, path string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("inference service status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
