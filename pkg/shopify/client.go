package shopify

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	// AccessTokenHeader carries the access token on every request.
	AccessTokenHeader = "X-Shopify-Access-Token"
	// RequestIDHeader is read from responses for logging and errors.
	RequestIDHeader = "X-Request-Id"

	shopDomain       = ".myshopify.com"
	defaultUserAgent = "shopkit-go"
	defaultTimeout   = 30 * time.Second
)

var shopHandle = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Client talks to one shop. It holds no per-resource state and is safe
// for concurrent use.
type Client struct {
	baseURL   string
	token     string
	namespace string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger for per-request debug records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBaseURL points the client at a different host, e.g. a local twin.
// The shop argument of New is then only validated, not used for routing.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithAPIVersion switches the namespace to admin/api/<version>.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.namespace = DefaultNamespace + "/api/" + version
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client for shop, which may be a bare handle ("acme"), a
// domain ("acme.myshopify.com") or a URL.
func New(shop, token string, opts ...Option) (*Client, error) {
	base, err := NormalizeShopURL(shop)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errors.New("shopify: access token is required")
	}

	c := &Client{
		baseURL:   base,
		token:     token,
		namespace: DefaultNamespace,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: defaultTimeout},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NormalizeShopURL returns https://<handle>.myshopify.com for any accepted
// spelling of a shop.
func NormalizeShopURL(shop string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(shop))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, shopDomain)
	if !shopHandle.MatchString(s) {
		return "", errors.Wrapf(ErrInvalidShop, "%q", shop)
	}
	return "https://" + s + shopDomain, nil
}

// BaseURL returns the scheme and host requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Namespace returns the leading path segment(s) of every endpoint.
func (c *Client) Namespace() string { return c.namespace }

func (c *Client) endpoint(d Descriptor, params []string, suffix, action string) (string, error) {
	return Endpoint(c.namespace, d.Template, params, suffix, action)
}

// do sends one request and decodes the JSON object in the response.
// An empty body decodes to an empty map.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (map[string]any, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "shopify: encoding request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrapf(err, "shopify: building %s %s", method, path)
	}
	req.Header.Set(AccessTokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "shopify: %s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "shopify: reading %s %s", method, path)
	}

	requestID := resp.Header.Get(RequestIDHeader)
	c.logger.DebugContext(ctx, "shopify request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newResponseError(method, path, resp.StatusCode, requestID, raw)
	}

	out, err := decodeObject(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "shopify: %s %s", method, path)
	}
	return out, nil
}

func newResponseError(method, path string, status int, requestID string, raw []byte) *ResponseError {
	re := &ResponseError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		RequestID:  requestID,
		Body:       raw,
	}
	if body, err := decodeObject(raw); err == nil {
		re.Errors = body["errors"]
	}
	return re
}

// decodeObject decodes a JSON object keeping numbers as json.Number, so
// 64-bit ids survive intact.
func decodeObject(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decoding response body")
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
