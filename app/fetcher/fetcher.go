// Package fetcher retrieves upstream payloads concurrently. Every request
// settles into an Outcome; one failing source never aborts the batch.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultUserAgent = "MemoComb/1.0"
	DefaultTimeout   = 15 * time.Second

	JSONAccept = "application/json"
	FeedAccept = "application/rss+xml, application/atom+xml, application/xml, application/json"

	// maxBodySize bounds a single upstream payload.
	maxBodySize = 16 << 20
)

// HTTPClient allows the transport to be replaced in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*Client)

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

type Client struct {
	httpClient HTTPClient
	userAgent  string
	timeout    time.Duration
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request is one upstream call on behalf of a source.
type Request struct {
	SourceID string
	URL      string
	Accept   string
}

// Outcome is the settled result of a Request. Err is nil on success.
type Outcome struct {
	SourceID    string
	URL         string
	Payload     []byte
	ContentType string
	Status      int
	Err         error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Status int
	Text   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.Status, e.Text)
}

// FetchAll issues every request at once and waits for all of them to settle.
// Outcomes are returned in request order regardless of completion order.
func (c *Client) FetchAll(ctx context.Context, requests []Request) []Outcome {
	outcomes := make([]Outcome, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = c.Fetch(ctx, req)
		}()
	}
	wg.Wait()

	return outcomes
}

// Fetch performs a single GET. Any failure is reported through Outcome.Err.
func (c *Client) Fetch(ctx context.Context, request Request) Outcome {
	outcome := Outcome{SourceID: request.SourceID, URL: request.URL}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, request.URL, nil)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to create request: %w", err)
		return outcome
	}

	req.Header.Set("User-Agent", c.userAgent)
	if request.Accept != "" {
		req.Header.Set("Accept", request.Accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to fetch %s: %w", request.URL, err)
		return outcome
	}
	defer resp.Body.Close()

	outcome.Status = resp.StatusCode
	outcome.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome.Err = &StatusError{Status: resp.StatusCode, Text: http.StatusText(resp.StatusCode)}
		return outcome
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		outcome.Err = fmt.Errorf("failed to read response body: %w", err)
		return outcome
	}
	outcome.Payload = data

	return outcome
}
