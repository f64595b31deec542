// Package testutil provides an HTTP client, a control-plane client and
// assertion helpers for testing the Shopify twin.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wondertwin-ai/shopkit/pkg/admin"
)

// TokenHeader carries the shop access token.
const TokenHeader = "X-Shopify-Access-Token"

// TwinClient is an HTTP client for interacting with the twin in tests.
// When Token is set it is sent on every request.
type TwinClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	t          *testing.T
}

// NewTwinClient creates a client pointed at a test server.
func NewTwinClient(t *testing.T, server *httptest.Server) *TwinClient {
	return &TwinClient{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		t:          t,
	}
}

// NewTwinClientURL creates a client pointed at a specific URL.
func NewTwinClientURL(t *testing.T, baseURL string) *TwinClient {
	return &TwinClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		t:          t,
	}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *TwinClient) WithToken(token string) *TwinClient {
	cp := *c
	cp.Token = token
	return &cp
}

// Response wraps an HTTP response with helper methods.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	t          *testing.T
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) {
	r.t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		r.t.Fatalf("failed to unmarshal response: %v\nbody: %s", err, string(r.Body))
	}
}

// JSONMap returns the response body as a map.
func (r *Response) JSONMap() map[string]any {
	r.t.Helper()
	var m map[string]any
	r.JSON(&m)
	return m
}

// Envelope returns the object under key, e.g. "order" for a single order
// response.
func (r *Response) Envelope(key string) map[string]any {
	r.t.Helper()
	obj, ok := r.JSONMap()[key].(map[string]any)
	if !ok {
		r.t.Fatalf("expected %q object in body: %s", key, string(r.Body))
	}
	return obj
}

// List returns the array under key, e.g. "orders" for a collection response.
func (r *Response) List(key string) []any {
	r.t.Helper()
	items, ok := r.JSONMap()[key].([]any)
	if !ok {
		r.t.Fatalf("expected %q array in body: %s", key, string(r.Body))
	}
	return items
}

// Count returns N from a {"count": N} body, failing unless the status is 200.
func (r *Response) Count() int {
	r.t.Helper()
	r.AssertStatus(http.StatusOK)
	n, ok := r.JSONMap()["count"].(float64)
	if !ok {
		r.t.Fatalf("expected numeric count in body: %s", string(r.Body))
	}
	return int(n)
}

// AssertError asserts a plain Shopify error body, {"errors": message}.
func (r *Response) AssertError(message string) *Response {
	r.t.Helper()
	if got, _ := r.JSONMap()["errors"].(string); got != message {
		r.t.Errorf("expected errors %q, got: %s", message, string(r.Body))
	}
	return r
}

// AssertFieldError asserts a 422 body listing message under field, as in
// {"errors": {"title": ["can't be blank"]}}.
func (r *Response) AssertFieldError(field, message string) *Response {
	r.t.Helper()
	r.AssertStatus(http.StatusUnprocessableEntity)
	errs, _ := r.JSONMap()["errors"].(map[string]any)
	msgs, _ := errs[field].([]any)
	for _, m := range msgs {
		if m == message {
			return r
		}
	}
	r.t.Errorf("expected %s error %q, got: %s", field, message, string(r.Body))
	return r
}

// AssertStatus asserts the response has the expected status code.
func (r *Response) AssertStatus(expected int) *Response {
	r.t.Helper()
	if r.StatusCode != expected {
		r.t.Errorf("expected status %d, got %d\nbody: %s", expected, r.StatusCode, string(r.Body))
	}
	return r
}

// AssertBodyContains asserts the response body contains the given substring.
func (r *Response) AssertBodyContains(substr string) *Response {
	r.t.Helper()
	if !strings.Contains(string(r.Body), substr) {
		r.t.Errorf("expected body to contain %q, got: %s", substr, string(r.Body))
	}
	return r
}

// Get performs a GET request.
func (c *TwinClient) Get(path string) *Response {
	c.t.Helper()
	return c.do(http.MethodGet, path, nil, nil)
}

// Post performs a POST request with a JSON body.
func (c *TwinClient) Post(path string, body any) *Response {
	c.t.Helper()
	return c.do(http.MethodPost, path, body, nil)
}

// Put performs a PUT request with a JSON body.
func (c *TwinClient) Put(path string, body any) *Response {
	c.t.Helper()
	return c.do(http.MethodPut, path, body, nil)
}

// Delete performs a DELETE request.
func (c *TwinClient) Delete(path string) *Response {
	c.t.Helper()
	return c.do(http.MethodDelete, path, nil, nil)
}

// DoWithHeaders performs a request with custom headers.
func (c *TwinClient) DoWithHeaders(method, path string, body any, headers map[string]string) *Response {
	c.t.Helper()
	return c.do(method, path, body, headers)
}

func (c *TwinClient) do(method, path string, body any, headers map[string]string) *Response {
	c.t.Helper()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		c.t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set(TokenHeader, c.Token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.doReq(req)
}

func (c *TwinClient) doReq(req *http.Request) *Response {
	c.t.Helper()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("failed to read response: %v", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
		t:          c.t,
	}
}

// AdminClient provides convenience methods for the /_admin/* control plane.
type AdminClient struct {
	*TwinClient
}

// NewAdminClient creates an admin client from a twin client.
func NewAdminClient(tc *TwinClient) *AdminClient {
	return &AdminClient{tc}
}

// Reset calls POST /_admin/reset.
func (ac *AdminClient) Reset() *Response {
	ac.t.Helper()
	return ac.Post(admin.Prefix+"/reset", nil)
}

// GetState calls GET /_admin/state.
func (ac *AdminClient) GetState() *Response {
	ac.t.Helper()
	return ac.Get(admin.Prefix + "/state")
}

// LoadState calls POST /_admin/state with the given state data.
func (ac *AdminClient) LoadState(state any) *Response {
	ac.t.Helper()
	return ac.Post(admin.Prefix+"/state", state)
}

// InjectFault calls POST /_admin/fault/{endpoint}.
func (ac *AdminClient) InjectFault(endpoint string, fault any) *Response {
	ac.t.Helper()
	return ac.Post(admin.Prefix+"/fault/"+strings.TrimPrefix(endpoint, "/"), fault)
}

// RemoveFault calls DELETE /_admin/fault/{endpoint}.
func (ac *AdminClient) RemoveFault(endpoint string) *Response {
	ac.t.Helper()
	return ac.Delete(admin.Prefix + "/fault/" + strings.TrimPrefix(endpoint, "/"))
}

// GetRequests calls GET /_admin/requests.
func (ac *AdminClient) GetRequests() *Response {
	ac.t.Helper()
	return ac.Get(admin.Prefix + "/requests")
}

// Seed calls POST /_admin/seed with a fixture document.
func (ac *AdminClient) Seed(fixture any) *Response {
	ac.t.Helper()
	return ac.Post(admin.Prefix+"/seed", fixture)
}

// SetConfig calls PUT /_admin/config, e.g. {"call_limit": 40}.
func (ac *AdminClient) SetConfig(updates map[string]any) *Response {
	ac.t.Helper()
	return ac.Put(admin.Prefix+"/config", updates)
}

// AdvanceTime calls POST /_admin/time/advance.
func (ac *AdminClient) AdvanceTime(duration string) *Response {
	ac.t.Helper()
	return ac.Post(admin.Prefix+"/time/advance", map[string]string{"duration": duration})
}

// Health calls GET /_admin/health.
func (ac *AdminClient) Health() *Response {
	ac.t.Helper()
	return ac.Get(admin.Prefix + "/health")
}
