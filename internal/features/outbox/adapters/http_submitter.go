package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"doodhly-fieldops/internal/core/httpclient"
	"doodhly-fieldops/internal/features/outbox/domain"
)

// HTTPSubmitter submits action batches to the core platform's
// reconciliation endpoint over HTTP.
type HTTPSubmitter struct {
	url    string
	client *http.Client
}

// NewHTTPSubmitter creates a submitter for the given endpoint URL.
func NewHTTPSubmitter(url string, timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{
		url:    url,
		client: httpclient.NewClient(timeout),
	}
}

// SubmitBatch implements ports.Submitter.
func (s *HTTPSubmitter) SubmitBatch(ctx context.Context, actions []domain.OfflineAction) (*domain.BatchResponse, error) {
	body, err := json.Marshal(domain.BatchRequest{Updates: actions})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("batch request returned status %d", resp.StatusCode)
	}

	var batchResp domain.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batchResp); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	return &batchResp, nil
}
