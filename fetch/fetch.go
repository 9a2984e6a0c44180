// Package fetch retrieves a page body for auditing. It distinguishes the
// three failure signals the audit pipeline cares about: timeout, non-2xx
// status, and everything else.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ErrTimeout reports that the page fetch exceeded the configured timeout.
var ErrTimeout = errors.New("request timed out")

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Result is a fetched page: the URL after redirects, the status code, and
// the body capped at the configured maximum.
type Result struct {
	FinalURL   string
	StatusCode int
	Body       []byte
}

// Client fetches pages with a bounded timeout and body size.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
}

// New creates a fetch client. The transport keeps idle connections around
// so repeated audits of the same host reuse connections.
func New(timeout time.Duration, maxBody int64, userAgent string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: userAgent,
		maxBody:   maxBody,
	}
}

// Fetch retrieves rawURL. Redirects are followed; the final URL lands in
// the result. A timeout surfaces as ErrTimeout, a non-2xx response as
// *StatusError; both abort the audit.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("fetching %s: %w", rawURL, ErrTimeout)
		}
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("reading %s: %w", rawURL, ErrTimeout)
		}
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}

	return &Result{
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
