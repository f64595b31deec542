// Package client provides an HTTP client for the twin control plane.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/wondertwin-ai/shopkit/pkg/admin"
)

// AdminClient talks to a twin's /_admin/* endpoints.
type AdminClient struct {
	baseURL string
	http    *http.Client
}

// New creates an AdminClient for the twin at baseURL with a 5-second timeout.
func New(baseURL string) *AdminClient {
	return &AdminClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Health checks GET /_admin/health. Returns (ok, response body or error message).
func (c *AdminClient) Health(ctx context.Context) (bool, string) {
	status, body, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false, err.Error()
	}
	if status == http.StatusOK {
		return true, body
	}
	return false, fmt.Sprintf("status %d: %s", status, body)
}

// Reset calls POST /_admin/reset, restoring the twin's default fixtures.
func (c *AdminClient) Reset(ctx context.Context) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/reset", nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("reset returned status %d: %s", status, body)
	}
	return body, nil
}

// Seed POSTs a YAML or JSON fixture file to /_admin/seed. Records are
// added to the current state.
func (c *AdminClient) Seed(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("reading seed file: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, "/seed", data)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("seed failed (status %d): %s", status, body)
	}
	return body, nil
}

// State returns the raw JSON of GET /_admin/state.
func (c *AdminClient) State(ctx context.Context) (string, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/state", nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("state returned status %d: %s", status, body)
	}
	return body, nil
}

func (c *AdminClient) do(ctx context.Context, method, path string, payload []byte) (int, string, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+admin.Prefix+path, body)
	if err != nil {
		return 0, "", err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(respBody)), nil
}
