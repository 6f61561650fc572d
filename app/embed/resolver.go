package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lysyi3m/memo-comb/app/fetcher"
)

var ErrInvalidURL = errors.New("url must be an absolute http(s) URL")

type Fetcher interface {
	Fetch(ctx context.Context, request fetcher.Request) fetcher.Outcome
}

var _ Fetcher = (*fetcher.Client)(nil)

// Resolver fetches pages and extracts their metadata through a shared Cache.
type Resolver struct {
	fetcher   Fetcher
	extractor *Extractor
	cache     *Cache
}

func NewResolver(f Fetcher, cache *Cache) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{fetcher: f, extractor: NewExtractor(), cache: cache}
}

func (r *Resolver) Resolve(ctx context.Context, rawURL string) (Metadata, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Metadata{}, ErrInvalidURL
	}
	key := u.String()

	if meta, ok := r.cache.Get(key); ok {
		slog.Debug("Embed cache hit", "url", key)
		return meta, nil
	}

	outcome := r.fetcher.Fetch(ctx, fetcher.Request{URL: key, Accept: "text/html,application/xhtml+xml"})
	if !outcome.OK() {
		return Metadata{}, fmt.Errorf("failed to fetch %s: %w", key, outcome.Err)
	}

	meta, err := r.extractor.Run(u, outcome.Payload)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to extract metadata: %w", err)
	}

	return r.cache.Put(key, meta), nil
}
