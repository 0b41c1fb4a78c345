// Package graph is the Meta Graph API client. It exposes one retrying call
// primitive plus the typed response shapes the collectors decode into; the
// collectors own endpoint paths and query parameters.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultBaseURL pins the Graph API version every collector speaks.
	DefaultBaseURL = "https://graph.facebook.com/v21.0"

	defaultMaxAttempts = 3
	defaultTimeout     = 30 * time.Second
)

// Caller is the request surface collectors depend on. Tests substitute a
// canned implementation; production uses Client.
type Caller interface {
	Call(ctx context.Context, endpoint string, params url.Values, token string) (json.RawMessage, error)
}

// Client calls the Graph API with a bounded retry budget. Transient failures
// (rate limit, 5xx, network errors, non-JSON bodies) are retried with
// exponential backoff; anything else fails the call immediately.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	maxAttempts   uint64
	debugPayloads bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API origin, used by tests against httptest.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient substitutes the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDebugPayloads logs every raw response body at debug level.
func WithDebugPayloads(enabled bool) Option {
	return func(c *Client) { c.debugPayloads = enabled }
}

// WithMaxAttempts bounds the total tries per call, including the first.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = uint64(n)
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		baseURL:     DefaultBaseURL,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs GET <base>/<endpoint>?<params>&access_token=<token> and
// returns the raw JSON body. The token travels as a query parameter, never in
// the endpoint, so it cannot leak through error messages or logs.
func (c *Client) Call(ctx context.Context, endpoint string, params url.Values, token string) (json.RawMessage, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("access_token", token)
	requestURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/") + "?" + query.Encode()

	var payload json.RawMessage
	operation := func() error {
		body, err := c.doOnce(ctx, requestURL, endpoint)
		if err != nil {
			return err
		}
		payload = body
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxAttempts-1), ctx)
	notify := func(err error, wait time.Duration) {
		slog.Warn("[Graph] Retrying call", "endpoint", endpoint, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) doOnce(ctx context.Context, requestURL, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build graph request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are transient by definition.
		return nil, fmt.Errorf("graph request for %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read graph response for %s: %w", endpoint, err)
	}
	if c.debugPayloads {
		slog.Debug("[Graph] Response payload", "endpoint", endpoint, "status", resp.StatusCode, "body", string(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body),
			transient:  retryableStatus(resp.StatusCode),
		}
		if !apiErr.transient {
			return nil, backoff.Permanent(apiErr)
		}
		return nil, apiErr
	}

	if !json.Valid(body) {
		// A 200 with a non-JSON body is an upstream hiccup, not a caller bug.
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "response body is not JSON", transient: true}
	}
	return json.RawMessage(body), nil
}

// errorEnvelope is the Graph API error body.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func upstreamMessage(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Sprintf("%s (code %d)", envelope.Error.Message, envelope.Error.Code)
	}
	return "unrecognized error body"
}
