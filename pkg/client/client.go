// Package client talks to an opencode server over its HTTP API.
//
// Responses are read leniently: an empty or null body means "no data" and
// missing fields decode to zero values. Only transport failures and non-2xx
// statuses are errors.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const defaultUserAgent = "opencode-provider/1.0"

// maxBodySize bounds how much of a response is read.
const maxBodySize = 16 << 20

var ErrInvalidBaseURL = errors.New("client: invalid base URL")

type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	log        *slog.Logger
}

type Option func(*Client)

// WithHTTPClient sets the HTTP client. A nil client leaves the default.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithHeader(key, value string) Option {
	return func(cl *Client) {
		cl.headers.Set(key, value)
	}
}

func WithUserAgent(ua string) Option {
	return WithHeader("User-Agent", ua)
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// New returns a client bound to baseURL. No request is made.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		headers:    http.Header{},
		log:        slog.With("service", "opencode-client"),
	}
	c.headers.Set("User-Agent", defaultUserAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends a request and returns the parsed body. A nil result with a nil
// error means the server answered without data.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("client: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(data),
		}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s %s", ErrMalformedResponse, method, path)
	}
	result := gjson.ParseBytes(data)
	if result.Type == gjson.Null {
		return nil, nil
	}
	return &result, nil
}
