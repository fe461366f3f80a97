package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CrossEncoder scores (query, document) pairs jointly. Implementations
// return one score per document, in input order.
type CrossEncoder interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// HTTPCrossEncoderConfig configures the sidecar client
type HTTPCrossEncoderConfig struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// HTTPCrossEncoder talks to a reranker sidecar over HTTP. The sidecar
// hosts the cross-encoder model; keeping it out of process avoids
// binding model inference into the service binary.
type HTTPCrossEncoder struct {
	client   *http.Client
	endpoint string
	model    string
	timeout  time.Duration
}

// NewHTTPCrossEncoder creates a sidecar client
func NewHTTPCrossEncoder(cfg HTTPCrossEncoderConfig) *HTTPCrossEncoder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPCrossEncoder{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		timeout:  timeout,
	}
}

// HealthCheck verifies the sidecar is reachable
func (c *HTTPCrossEncoder) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to reranker sidecar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reranker sidecar unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

type scoreRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

// Score implements CrossEncoder
func (c *HTTPCrossEncoder) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	body, err := json.Marshal(scoreRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	if len(parsed.Scores) != len(documents) {
		return nil, fmt.Errorf("rerank returned %d scores for %d documents", len(parsed.Scores), len(documents))
	}

	return parsed.Scores, nil
}
