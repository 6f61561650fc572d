package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lysyi3m/memo-comb/app/fetcher"
	"github.com/lysyi3m/memo-comb/app/memo"
)

var (
	ErrNotConfigured   = errors.New("memos API URL is not configured")
	ErrUnauthorized    = errors.New("authorization token is missing")
	ErrContentRequired = errors.New("content is required")
	ErrEmptyUpdate     = errors.New("request body is empty, nothing to update")
	ErrMemoIDMissing   = errors.New("memo ID is missing")
)

// Reply is the upstream answer to a successful write, passed back verbatim.
type Reply struct {
	Status int
	Body   []byte
}

// Passthrough forwards memo writes to a single upstream instance. The caller's
// Authorization header is forwarded unchanged.
type Passthrough struct {
	baseURL    string
	httpClient fetcher.HTTPClient
	timeout    time.Duration
}

func NewPassthrough(baseURL string, httpClient fetcher.HTTPClient, timeout time.Duration) *Passthrough {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = fetcher.DefaultTimeout
	}
	return &Passthrough{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Create posts a new memo. visibility defaults to PUBLIC and resourceIdList
// to an empty list; every other field is forwarded as given.
func (p *Passthrough) Create(ctx context.Context, token string, fields map[string]any) (*Reply, error) {
	if err := p.Check(token); err != nil {
		return nil, err
	}

	content, _ := fields["content"].(string)
	if content == "" {
		return nil, ErrContentRequired
	}

	body := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	if v, ok := body["visibility"].(string); !ok || v == "" {
		body["visibility"] = memo.VisibilityPublic
	}
	if body["resourceIdList"] == nil {
		body["resourceIdList"] = []int{}
	}

	return p.send(ctx, http.MethodPost, "/api/v1/memo", token, body, "Failed to create memo in Memos API.")
}

// Update patches memoID with fields, which must not be empty.
func (p *Passthrough) Update(ctx context.Context, token, memoID string, fields map[string]any) (*Reply, error) {
	if err := p.Check(token); err != nil {
		return nil, err
	}
	if memoID == "" {
		return nil, ErrMemoIDMissing
	}
	if len(fields) == 0 {
		return nil, ErrEmptyUpdate
	}

	return p.send(ctx, http.MethodPatch, "/api/v1/memo/"+url.PathEscape(memoID), token, fields,
		fmt.Sprintf("Failed to update memo %s in Memos API.", memoID))
}

func (p *Passthrough) Delete(ctx context.Context, token, memoID string) (*Reply, error) {
	if err := p.Check(token); err != nil {
		return nil, err
	}
	if memoID == "" {
		return nil, ErrMemoIDMissing
	}

	return p.send(ctx, http.MethodDelete, "/api/v1/memo/"+url.PathEscape(memoID), token, nil,
		fmt.Sprintf("Failed to delete memo %s in Memos API.", memoID))
}

// Check reports whether a write can be forwarded at all.
func (p *Passthrough) Check(token string) error {
	if p.baseURL == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(token) == "" {
		return ErrUnauthorized
	}
	return nil
}

func (p *Passthrough) send(ctx context.Context, method, path, token string, payload any, failure string) (*Reply, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode memo body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(timeoutCtx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Status: http.StatusBadGateway, Message: fmt.Sprintf("%s %v", failure, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: failure, Body: data}
	}

	return &Reply{Status: resp.StatusCode, Body: data}, nil
}
