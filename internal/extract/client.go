package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/asharma-dev/docverify-be/internal/domain"
	"github.com/asharma-dev/docverify-be/internal/validate"
)

// Config holds settings for the vision model client.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	FallbackModels []string
	Timeout        time.Duration
	MaxConcurrent  int64
	AllowDegraded  bool
}

// Request describes one extraction call.
type Request struct {
	Image         []byte
	MimeType      string
	DocumentType  domain.DocumentType
	AllowDegraded bool
}

// Client extracts structured fields from document images through an external
// vision model. A weighted semaphore caps concurrent calls process-wide to
// respect the provider's rate limits.
type Client struct {
	config     *Config
	httpClient *http.Client
	sem        *semaphore.Weighted
	logger     *slog.Logger
}

// NewClient creates an extraction client.
func NewClient(cfg *Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		sem:        semaphore.NewWeighted(maxConcurrent),
		logger:     logger,
	}
}

// generateContent request/response shapes for the vision API.
type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type generateRequest struct {
	Contents []struct {
		Parts []contentPart `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Extract turns an image into structured field guesses plus an authenticity
// assessment. The primary model is tried first; on transport or schema
// failure each fallback model is tried in order. When every model is
// unreachable and the request opted into degraded mode, a placeholder result
// with Degraded=true is returned instead of an error.
func (c *Client) Extract(ctx context.Context, req *Request) (*domain.ExtractionResult, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for extraction slot: %w", err)
	}
	defer c.sem.Release(1)

	models := append([]string{c.config.Model}, c.config.FallbackModels...)
	schema := BuildFieldSchema(req.DocumentType)
	prompt := BuildPrompt(req.DocumentType)

	reachedAny := false
	for _, model := range models {
		rawText, err := c.generate(ctx, model, prompt, req)
		if err != nil {
			c.logger.Warn("Extraction model unreachable",
				slog.String("model", model),
				slog.String("document_type", string(req.DocumentType)),
				slog.Any("error", err),
			)
			continue
		}
		reachedAny = true

		jsonText := stripCodeFences(rawText)
		if err := validateAgainstSchema(schema, []byte(jsonText)); err != nil {
			c.logger.Warn("Extraction response failed schema validation",
				slog.String("model", model),
				slog.Any("error", err),
			)
			continue
		}

		fields, err := parseFields([]byte(jsonText))
		if err != nil {
			c.logger.Warn("Extraction response could not be decoded",
				slog.String("model", model),
				slog.Any("error", err),
			)
			continue
		}

		result := &domain.ExtractionResult{
			RawText:         rawText,
			Fields:          fields,
			ConfidenceScore: confidenceScore(fields, req.DocumentType),
			ModelID:         model,
		}

		c.probeAuthenticity(ctx, model, req, result)

		c.logger.Info("Extraction succeeded",
			slog.String("model", model),
			slog.String("document_type", string(req.DocumentType)),
			slog.Int("fields", len(fields)),
			slog.Int("confidence_score", result.ConfidenceScore),
		)
		return result, nil
	}

	if reachedAny {
		return nil, domain.ErrMalformedResponse
	}

	if req.AllowDegraded && c.config.AllowDegraded {
		c.logger.Warn("All extraction models unreachable, returning degraded result",
			slog.String("document_type", string(req.DocumentType)),
		)
		return degradedResult(req.DocumentType), nil
	}

	return nil, domain.ErrExtractionUnavailable
}

// generate issues a single vision request and returns the model's text reply.
func (c *Client) generate(ctx context.Context, model, prompt string, req *Request) (string, error) {
	var body generateRequest
	body.Contents = append(body.Contents, struct {
		Parts []contentPart `json:"parts"`
	}{
		Parts: []contentPart{
			{Text: prompt},
			{InlineData: &inlineData{
				MimeType: req.MimeType,
				Data:     base64.StdEncoding.EncodeToString(req.Image),
			}},
		},
	})

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.config.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vision API status %d: %s", resp.StatusCode, string(respBody))
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("failed to parse response envelope: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("vision API returned no candidates")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}

// probeAuthenticity asks the model for generation/tampering signals. The
// probe is best-effort: on any failure the result carries a quality notice
// instead of an error, never failing the extraction stage.
func (c *Client) probeAuthenticity(ctx context.Context, model string, req *Request, result *domain.ExtractionResult) {
	rawText, err := c.generate(ctx, model, authenticityPrompt, req)
	if err != nil {
		result.Anomalies = append(result.Anomalies, domain.QualityNoticePrefix+" authenticity check unavailable")
		return
	}

	jsonText := stripCodeFences(rawText)
	if err := validateAgainstSchema(authenticitySchema, []byte(jsonText)); err != nil {
		result.Anomalies = append(result.Anomalies, domain.QualityNoticePrefix+" authenticity check unparsable")
		return
	}

	var probe struct {
		IsClear           *bool    `json:"is_clear"`
		IsAIGenerated     bool     `json:"is_ai_generated"`
		TamperingDetected bool     `json:"tampering_detected"`
		Anomalies         []string `json:"anomalies"`
	}
	if err := json.Unmarshal([]byte(jsonText), &probe); err != nil {
		result.Anomalies = append(result.Anomalies, domain.QualityNoticePrefix+" authenticity check unparsable")
		return
	}

	result.IsAIGenerated = probe.IsAIGenerated
	result.TamperingDetected = probe.TamperingDetected
	if probe.TamperingDetected {
		result.Anomalies = append(result.Anomalies, "possible tampering detected")
	}
	for _, a := range probe.Anomalies {
		if a = strings.TrimSpace(a); a != "" {
			result.Anomalies = append(result.Anomalies, a)
		}
	}
	if probe.IsClear != nil && !*probe.IsClear {
		result.Anomalies = append(result.Anomalies, domain.QualityNoticePrefix+" image unclear or low resolution")
	}
}

// parseFields flattens the model's JSON object into string fields. Nulls and
// empty strings are dropped; arrays and objects are kept as compact JSON.
func parseFields(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			v = strings.TrimSpace(v)
			if v == "" || strings.EqualFold(v, "null") {
				continue
			}
			fields[key] = v
		case float64:
			fields[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			fields[key] = strconv.FormatBool(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			fields[key] = string(encoded)
		}
	}
	return fields, nil
}

// confidenceScore is the fraction of required fields populated, 0-100. It is
// deliberately independent of any confidence the model itself reports, which
// keeps scores deterministic even when the model's confidence is noisy.
func confidenceScore(fields map[string]string, docType domain.DocumentType) int {
	required := validate.RequiredFields(docType)
	if len(required) == 0 {
		return 0
	}
	filled := 0
	for _, field := range required {
		if strings.TrimSpace(fields[field]) != "" {
			filled++
		}
	}
	return filled * 100 / len(required)
}

// degradedResult is the explicit placeholder substituted when no model is
// reachable and the caller opted in. Degraded=true is the only way callers
// may distinguish it, so it must never be cleared downstream.
func degradedResult(docType domain.DocumentType) *domain.ExtractionResult {
	fields := make(map[string]string)
	for _, field := range validate.RequiredFields(docType) {
		fields[field] = "UNAVAILABLE"
	}
	return &domain.ExtractionResult{
		Fields:          fields,
		ConfidenceScore: 0,
		ModelID:         "degraded",
		Degraded:        true,
		Anomalies:       []string{domain.QualityNoticePrefix + " extraction ran in degraded mode"},
	}
}
