package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when a request does not set its own User-Agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ErrInvalidURL is returned for URLs that can never succeed, such as a
// missing host or an unsupported scheme.
var ErrInvalidURL = errors.New("invalid URL")

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.Code, e.Status, e.URL)
}

// Client is the shared session used for every MOOV request.
//
// Client provides:
//   - A cookie jar, so the login session carries over to later calls
//   - A default User-Agent that individual requests can override
//   - An optional request rate limit
//   - Timeout handling
//
// Example usage:
//
//	client := NewClient(WithRateLimit(5), WithLogger(logger))
//
//	// Fetch a manifest with a custom User-Agent
//	text, err := client.GetString(ctx, playlistURL, &RequestOptions{
//	    Header: http.Header{"User-Agent": {"Moov-Android/1.0/hls-hr"}},
//	})
//
//	// Fetch a segment, retrying transient failures
//	data, err := client.FetchWithRetry(ctx, segmentURL, DefaultRetryPolicy(), nil)
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit limits the client to rps requests per second. Zero or a
// negative value disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for retries and request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - 60 second timeout
//   - an in-memory cookie jar
//   - a desktop browser User-Agent
//   - no rate limit
func NewClient(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Jar:     jar,
		},
		userAgent: DefaultUserAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestOptions customises a single request. The zero value is a plain
// request.
type RequestOptions struct {
	// Header values are added to the request; a User-Agent here replaces
	// the client default.
	Header http.Header

	// Query values are merged into the URL query string.
	Query url.Values

	// Form, when set, is sent as an application/x-www-form-urlencoded body.
	Form url.Values
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do performs a request and reads the whole body.
//
// Returns an error if:
//   - The URL is invalid (wraps ErrInvalidURL)
//   - The request fails
//   - The response status is not 2xx (*StatusError)
//   - Reading the body fails
func (c *Client) Do(ctx context.Context, method, rawURL string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	u, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if len(opts.Query) > 0 {
		q := u.Query()
		for k, vs := range opts.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if opts.Form != nil {
		body = strings.NewReader(opts.Form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if opts.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, vs := range opts.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("http request", zap.String("method", method), zap.String("url", u.Redacted()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: u.Redacted(), Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Get performs a GET request and returns the response body as bytes.
//
// Example:
//
//	data, err := client.Get(ctx, "https://example.com/image.jpg", nil)
func (c *Client) Get(ctx context.Context, rawURL string, opts *RequestOptions) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, rawURL, opts)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetString performs a GET request and returns the response body as a string.
func (c *Client) GetString(ctx context.Context, rawURL string, opts *RequestOptions) (string, error) {
	body, err := c.Get(ctx, rawURL, opts)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// PostForm sends form as a urlencoded POST body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, opts *RequestOptions) (*Response, error) {
	var o RequestOptions
	if opts != nil {
		o = *opts
	}
	o.Form = form
	return c.Do(ctx, http.MethodPost, rawURL, &o)
}

// DownloadBytes downloads a small file, such as cover art, into memory.
func (c *Client) DownloadBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Get(ctx, rawURL, nil)
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, rawURL)
	}
	return u, nil
}
