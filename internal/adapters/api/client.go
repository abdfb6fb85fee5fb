package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/console/internal/infrastructure/config"
	"github.com/taskmaster/console/internal/infrastructure/logger"
)

// TokenSource yields the current credential, or "" when there is none.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client issues requests to the REST backend. It does not retry and does
// not cache.
type Client struct {
	baseURL    string
	transport  string
	cookieName string
	http       *http.Client
	tokens     TokenSource
	logger     *logger.Logger
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent("api") }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a client for the configured backend.
func New(cfg config.BackendConfig, opts ...Option) *Client {
	transport := cfg.AuthTransport
	if transport == "" {
		transport = config.TransportBearer
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		transport:  transport,
		cookieName: cfg.CookieName,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokenSource returns a copy of the client bound to another credential.
// The HTTP client, logger and metrics are shared.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the backend root every path is joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UsesCookie reports whether the credential travels as a cookie.
func (c *Client) UsesCookie() bool {
	return c.transport == config.TransportCookie
}

// Do sends one request and decodes a JSON success body into out. Bodies of
// type *Multipart are sent as multipart/form-data, anything else non-nil as
// JSON. An empty success body leaves out untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.do(ctx, method, path, body, out)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (*http.Response, error) {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.attachCredential(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		netErr := newNetworkError(err)
		c.metrics.observe(method, path, 0, elapsed.Seconds())
		c.logger.LogBackendCall(method, path, 0, float64(elapsed.Milliseconds()), netErr)
		return nil, netErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.metrics.observe(method, path, resp.StatusCode, elapsed.Seconds())
	if err != nil {
		netErr := newNetworkError(err)
		c.logger.LogBackendCall(method, path, resp.StatusCode, float64(elapsed.Milliseconds()), netErr)
		return resp, netErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newStatusError(resp.StatusCode, data)
		c.logger.LogBackendCall(method, path, resp.StatusCode, float64(elapsed.Milliseconds()), apiErr)
		return resp, apiErr
	}
	c.logger.LogBackendCall(method, path, resp.StatusCode, float64(elapsed.Milliseconds()), nil)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp, fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) attachCredential(req *http.Request) {
	if c.tokens == nil {
		return
	}
	token := c.tokens.Token()
	if token == "" {
		return
	}
	if c.UsesCookie() {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: token})
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// sessionCookie pulls the backend's session cookie out of a response, for
// the cookie transport's login.
func (c *Client) sessionCookie(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName && ck.Value != "" {
			return ck.Value
		}
	}
	return ""
}

func encodeBody(body interface{}) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return b.encode()
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}
