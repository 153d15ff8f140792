// Package engine is the HTTP client for a user-configured AI Engine: the
// external service that renders videos from generation prompts. Only two
// contracts are consumed, a health check and a generation request.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	healthTimeout   = 5 * time.Second
	generateTimeout = 30 * time.Second
)

// Client communicates with an AI Engine instance over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0, // per-call context timeouts below
		},
	}
}

// BaseURL returns the normalized base URL the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthInfo mirrors the JSON returned by GET /api/health.
type HealthInfo struct {
	Status string `json:"status"`
	Device string `json:"device"`
}

// Health probes the engine. Any network failure or non-2xx status is an
// error; callers treat an error as "not connected".
func (c *Client) Health(ctx context.Context) (HealthInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return HealthInfo{}, fmt.Errorf("creating health request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthInfo{}, fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return HealthInfo{}, fmt.Errorf("health check: unexpected status %d", resp.StatusCode)
	}

	var info HealthInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return HealthInfo{}, fmt.Errorf("decoding health response: %w", err)
	}
	return info, nil
}

// IsRunning reports whether the engine responds to the health check.
func (c *Client) IsRunning(ctx context.Context) bool {
	_, err := c.Health(ctx)
	return err == nil
}

// GenerateRequest is the JSON body for POST /api/generate-video.
type GenerateRequest struct {
	Prompt          string   `json:"prompt"`
	Duration        int      `json:"duration"`
	ContentType     string   `json:"content_type"`
	TargetAudience  string   `json:"target_audience"`
	Voice           string   `json:"voice"`
	SEOOptimization bool     `json:"seo_optimization"`
	Tags            []string `json:"tags"`
}

// GenerateResult is the JSON returned by POST /api/generate-video.
type GenerateResult struct {
	Status                string  `json:"status"`
	Message               string  `json:"message,omitempty"`
	GenerationTimeMinutes float64 `json:"generation_time_minutes,omitempty"`
}

// Succeeded reports whether the engine accepted the generation request.
func (r GenerateResult) Succeeded() bool {
	return r.Status == "success"
}

// GenerateVideo submits a generation request. A non-2xx status is a hard
// failure; a 2xx response with status != "success" is returned to the
// caller for inspection, not turned into an error.
func (c *Client) GenerateVideo(ctx context.Context, genReq GenerateRequest) (GenerateResult, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return GenerateResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate-video", bytes.NewReader(body))
	if err != nil {
		return GenerateResult{}, fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return GenerateResult{}, fmt.Errorf("generate: unexpected status %d", resp.StatusCode)
	}

	var result GenerateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return GenerateResult{}, fmt.Errorf("decoding generate response: %w", err)
	}
	return result, nil
}
