package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BackofficeClient posts register closing summaries to the back-office API.
// The back office is a separate system; its failures are isolated from the
// till by the circuit breaker and the async worker pool.
type BackofficeClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBackofficeClient(baseURL string) *BackofficeClient {
	return &BackofficeClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NotifyRegisterClosed sends a POST with the closing summary.
// Any non-2xx response counts as a failure.
func (c *BackofficeClient) NotifyRegisterClosed(ctx context.Context, summary interface{}) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("backoffice: marshal summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/registers/closed", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("backoffice: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backoffice: unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backoffice: returned %d", resp.StatusCode)
	}
	return nil
}
