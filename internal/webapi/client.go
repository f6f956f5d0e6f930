// Package webapi is a small JSON-over-HTTP client for outbound calls made by
// background tasks.
package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxResponseBytes caps how much of a response body is read.
const DefaultMaxResponseBytes = 1 << 20

const userAgent = "agroscan-worker/1.0"

// Request describes one outbound call. Method defaults to GET.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response holds the status and the (possibly truncated) body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRetryable reports statuses worth trying again later: 408, 429 and 5xx.
func (r *Response) IsRetryable() bool {
	return r.StatusCode == http.StatusRequestTimeout ||
		r.StatusCode == http.StatusTooManyRequests ||
		r.StatusCode >= 500
}

// Client performs outbound requests.
type Client struct {
	http     *http.Client
	maxBytes int64
}

// New creates a Client. A zero timeout leaves requests bounded only by the
// caller's context.
func New(timeout time.Duration) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxResponseBytes,
	}
}

// Do sends req. Transport failures are returned as errors; any HTTP status is
// returned as a Response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil && json.Valid(req.Body) {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// GetString fetches url and returns the body, failing on a non-2xx status.
func (c *Client) GetString(ctx context.Context, url string, headers map[string]string) (string, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, URL: url, Headers: headers})
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return string(resp.Body), nil
}

// PostJSON marshals v and posts it to url.
func (c *Client) PostJSON(ctx context.Context, url string, v interface{}, headers map[string]string) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return c.Do(ctx, Request{Method: http.MethodPost, URL: url, Headers: headers, Body: body})
}
