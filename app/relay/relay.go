// Package relay forwards client requests to upstream hosts: feed documents
// through Forward, and memo writes through Passthrough.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/lysyi3m/memo-comb/app/fetcher"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const DefaultUserAgent = "MemoBBSFeedProxy/1.0"

const (
	ContentTypeXML  = "application/xml; charset=utf-8"
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
)

var (
	ErrTargetMissing   = errors.New("feed URL is required")
	ErrTargetInvalid   = errors.New("feed URL must be an absolute http(s) URL")
	ErrTargetForbidden = errors.New("feed host is not allowed")
)

// UpstreamError carries the status of a failed upstream call. Status is
// http.StatusBadGateway when the upstream never answered.
type UpstreamError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Fetcher is the subset of fetcher.Client the relay needs.
type Fetcher interface {
	Fetch(ctx context.Context, request fetcher.Request) fetcher.Outcome
}

var _ Fetcher = (*fetcher.Client)(nil)

// Response is a relayed body with its normalized content type.
type Response struct {
	Body        []byte
	ContentType string
}

type Relay struct {
	fetcher Fetcher
	allowed []string
}

// New builds a relay. allowed restricts target hosts (suffix match); empty
// allows any host.
func New(f Fetcher, allowed []string) *Relay {
	hosts := make([]string, 0, len(allowed))
	for _, host := range allowed {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			hosts = append(hosts, host)
		}
	}
	return &Relay{fetcher: f, allowed: hosts}
}

// Forward fetches target and returns its body. XML and JSON keep their
// family; anything else is returned as plain text.
func (r *Relay) Forward(ctx context.Context, target string) (*Response, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, ErrTargetMissing
	}

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrTargetInvalid
	}
	if !r.permitted(u.Hostname()) {
		return nil, ErrTargetForbidden
	}

	outcome := r.fetcher.Fetch(ctx, fetcher.Request{URL: target, Accept: fetcher.FeedAccept})
	if !outcome.OK() {
		var statusErr *fetcher.StatusError
		if errors.As(outcome.Err, &statusErr) {
			return nil, &UpstreamError{
				Status:  statusErr.Status,
				Message: "Failed to fetch feed: " + statusErr.Text,
			}
		}
		return nil, &UpstreamError{
			Status:  http.StatusBadGateway,
			Message: fmt.Sprintf("Failed to proxy feed: %v", outcome.Err),
		}
	}

	mediaType, params, _ := mime.ParseMediaType(outcome.ContentType)
	switch {
	case isXML(mediaType):
		body, err := toUTF8(outcome.Payload, params["charset"])
		if err != nil {
			return nil, &UpstreamError{Status: http.StatusBadGateway, Message: fmt.Sprintf("Failed to proxy feed: %v", err)}
		}
		return &Response{Body: body, ContentType: ContentTypeXML}, nil
	case strings.Contains(mediaType, "application/json"):
		if !json.Valid(outcome.Payload) {
			return nil, &UpstreamError{Status: http.StatusBadGateway, Message: "Failed to proxy feed: invalid JSON"}
		}
		return &Response{Body: outcome.Payload, ContentType: ContentTypeJSON}, nil
	default:
		slog.Warn("Unknown content type for relayed feed, returning as text", "url", target, "content_type", outcome.ContentType)
		body, err := toUTF8(outcome.Payload, params["charset"])
		if err != nil {
			body = outcome.Payload
		}
		return &Response{Body: body, ContentType: ContentTypeText}, nil
	}
}

func (r *Relay) permitted(host string) bool {
	if len(r.allowed) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, allowed := range r.allowed {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func isXML(mediaType string) bool {
	switch mediaType {
	case "application/xml", "text/xml", "application/rss+xml", "application/atom+xml":
		return true
	}
	return false
}

// toUTF8 decodes body from the declared charset. Unknown or absent charsets
// leave the body untouched.
func toUTF8(body []byte, charset string) ([]byte, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return body, nil
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", charset, err)
	}
	return bytes.TrimPrefix(decoded, []byte("\xef\xbb\xbf")), nil
}
