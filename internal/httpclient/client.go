package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default identity headers. Image hosts routinely reject requests without a
// browser-looking User-Agent, and some check for a Referer.
const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"
	DefaultReferer   = "http://localhost"
)

// Options configures the transfer client.
type Options struct {
	// Timeout bounds the whole request, connect through body read.
	// Default: 60s
	Timeout time.Duration

	// UserAgent sent with every request.
	// Default: DefaultUserAgent
	UserAgent string

	// Referer sent with every request.
	// Default: DefaultReferer
	Referer string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:   60 * time.Second,
		UserAgent: DefaultUserAgent,
		Referer:   DefaultReferer,
	}
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %s", e.Status)
}

// Response is a successful transfer: an open body stream plus the declared
// content length, 0 when the server did not declare one.
type Response struct {
	Body          io.ReadCloser
	ContentLength int64
}

// Client executes single download attempts.
type Client struct {
	client *http.Client
	opts   Options
}

// New creates a transfer client with the given options.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Referer == "" {
		opts.Referer = DefaultReferer
	}

	return &Client{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Get performs one GET against url. A non-2xx status is returned as a
// *StatusError with the response body drained and closed. The caller owns
// Response.Body on success.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Referer", c.opts.Referer)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	return &Response{Body: resp.Body, ContentLength: total}, nil
}
