package source

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/lysyi3m/memo-comb/app/filter"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/*
var defaultsFS embed.FS

// ErrConfigMissing marks a source file that is absent or unusable.
var ErrConfigMissing = errors.New("source configuration missing")

var (
	MemoFilterFields = map[string]bool{"content": true, "creator": true}
	FeedFilterFields = map[string]bool{"title": true, "summary": true, "author": true, "link": true}
)

type LoadOptions struct {
	MemosPath  string
	FeedsPath  string
	NoDefaults bool
}

type Registry struct {
	memos []Descriptor
	feeds []Descriptor
}

func NewRegistry(memos, feeds []Descriptor) *Registry {
	return &Registry{memos: memos, feeds: feeds}
}

// Load reads both source files. A missing or malformed file falls back to
// the built-in defaults unless NoDefaults is set, in which case that kind is
// left empty.
func Load(opts LoadOptions) (*Registry, error) {
	memos, err := loadWithFallback(opts.MemosPath, "defaults/memos.json", opts.NoDefaults, ParseMemos)
	if err != nil {
		return nil, err
	}

	feeds, err := loadWithFallback(opts.FeedsPath, "defaults/feeds.yml", opts.NoDefaults, ParseFeeds)
	if err != nil {
		return nil, err
	}

	slog.Debug("Source registry loaded", "memos", len(memos), "feeds", len(feeds))

	return NewRegistry(memos, feeds), nil
}

func loadWithFallback(path, defaultName string, noDefaults bool, parse func([]byte) ([]Descriptor, error)) ([]Descriptor, error) {
	descriptors, err := loadFile(path, parse)
	if err == nil && len(descriptors) > 0 {
		return descriptors, nil
	}

	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Source configuration unusable", "path", path, "error", err)
	}

	if noDefaults {
		return []Descriptor{}, nil
	}

	data, err := defaultsFS.ReadFile(defaultName)
	if err != nil {
		return nil, fmt.Errorf("reading embedded defaults %s: %w", defaultName, err)
	}
	descriptors, err = parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded defaults %s: %w", defaultName, err)
	}
	return descriptors, nil
}

func loadFile(path string, parse func([]byte) ([]Descriptor, error)) ([]Descriptor, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no path configured", fs.ErrNotExist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	descriptors, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigMissing, err)
	}
	return descriptors, nil
}

type memoFile struct {
	MyMemoList []memoEntry `json:"myMemoList"`
}

type memoEntry struct {
	ID          string        `json:"id"`
	CreatorName string        `json:"creatorName"`
	Website     string        `json:"website"`
	Link        string        `json:"link"`
	CreatorID   looseString   `json:"creatorId"`
	Avatar      string        `json:"avatar"`
	Twikoo      string        `json:"twikoo"`
	Artalk      string        `json:"artalk"`
	ArtSite     string        `json:"artSite"`
	APIType     string        `json:"apiType"`
	Filters     []filter.Rule `json:"filters"`
}

// looseString accepts both JSON strings and numbers.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = looseString(num.String())
	return nil
}

// ParseMemos decodes a memos.json document into memo source descriptors.
func ParseMemos(data []byte) ([]Descriptor, error) {
	var doc memoFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(doc.MyMemoList))
	ids := make(map[string]int, len(doc.MyMemoList))

	for i, entry := range doc.MyMemoList {
		endpoint, err := normalizeEndpoint(entry.Link)
		if err != nil {
			slog.Warn("Skipping memo source", "index", i, "creator", entry.CreatorName, "error", err)
			continue
		}

		if err := filter.Validate(entry.Filters, MemoFilterFields); err != nil {
			slog.Warn("Skipping memo source", "index", i, "creator", entry.CreatorName, "error", err)
			continue
		}

		// The v1 listing is scoped by creator; without one the source is
		// read through the unscoped legacy listing instead.
		dialect := DialectLegacyAll
		if strings.EqualFold(entry.APIType, "v1") {
			if entry.CreatorID != "" {
				dialect = DialectV1Filtered
			} else {
				slog.Warn("Memo source has apiType v1 but no creatorId, using legacy listing", "index", i, "creator", entry.CreatorName)
			}
		}

		id := entry.ID
		if id == "" {
			id = deriveID(endpoint, string(entry.CreatorID))
		}

		descriptors = append(descriptors, Descriptor{
			ID:          uniqueID(ids, id),
			DisplayName: entry.CreatorName,
			Endpoint:    endpoint,
			Dialect:     dialect,
			CreatorID:   string(entry.CreatorID),
			Enabled:     true,
			Aux: AuxMeta{
				AvatarURL:  entry.Avatar,
				WebsiteURL: entry.Website,
				Comments: CommentConfig{
					TwikooEnvID:  entry.Twikoo,
					ArtalkServer: entry.Artalk,
					ArtalkSite:   entry.ArtSite,
				},
			},
			Filters: entry.Filters,
		})
	}

	return descriptors, nil
}

type feedFile struct {
	Feeds []feedEntry `yaml:"feeds"`
}

type feedEntry struct {
	ID      string        `yaml:"id"`
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Type    string        `yaml:"type"`
	Enabled *bool         `yaml:"enabled"`
	Filters []filter.Rule `yaml:"filters"`
}

// ParseFeeds decodes a feeds YAML document into feed source descriptors.
func ParseFeeds(data []byte) ([]Descriptor, error) {
	var doc feedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(doc.Feeds))
	ids := make(map[string]int, len(doc.Feeds))

	for i, entry := range doc.Feeds {
		if _, err := normalizeEndpoint(entry.URL); err != nil {
			slog.Warn("Skipping feed source", "index", i, "feed", entry.Name, "error", err)
			continue
		}

		dialect := Dialect(strings.ToLower(entry.Type))
		if dialect == "" {
			dialect = DialectXML
		}
		if !dialect.Valid() || dialect.Kind() != KindFeed {
			slog.Warn("Skipping feed source", "index", i, "feed", entry.Name, "error", fmt.Sprintf("unsupported type %q", entry.Type))
			continue
		}

		if err := filter.Validate(entry.Filters, FeedFilterFields); err != nil {
			slog.Warn("Skipping feed source", "index", i, "feed", entry.Name, "error", err)
			continue
		}

		id := entry.ID
		if id == "" {
			id = deriveID(entry.URL, "")
		}

		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}

		descriptors = append(descriptors, Descriptor{
			ID:          uniqueID(ids, id),
			DisplayName: entry.Name,
			Endpoint:    strings.TrimSpace(entry.URL),
			Dialect:     dialect,
			Enabled:     enabled,
			Filters:     entry.Filters,
		})
	}

	return descriptors, nil
}

func normalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid link %q: http(s) URL required", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func deriveID(endpoint, creatorID string) string {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	if creatorID == "" {
		return host
	}
	return host + "-" + creatorID
}

func uniqueID(seen map[string]int, id string) string {
	seen[id]++
	if n := seen[id]; n > 1 {
		return uniqueID(seen, id+"-"+strconv.Itoa(n))
	}
	return id
}

// Memos returns every memo source in configuration order.
func (r *Registry) Memos() []Descriptor {
	return r.memos
}

// Feeds returns every enabled feed source in configuration order.
func (r *Registry) Feeds() []Descriptor {
	feeds := make([]Descriptor, 0, len(r.feeds))
	for _, d := range r.feeds {
		if d.Enabled {
			feeds = append(feeds, d)
		}
	}
	return feeds
}

// All returns every source of both kinds, including disabled feeds.
func (r *Registry) All() []Descriptor {
	all := make([]Descriptor, 0, len(r.memos)+len(r.feeds))
	all = append(all, r.memos...)
	return append(all, r.feeds...)
}

func (r *Registry) Get(id string) (Descriptor, bool) {
	for _, d := range r.All() {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

func (r *Registry) Feed(id string) (Descriptor, bool) {
	for _, d := range r.Feeds() {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Select picks the memo sources shown by a view. user matches a source id,
// creator id or creator name and is only consulted by ViewUser.
func (r *Registry) Select(view View, user string) []Descriptor {
	if len(r.memos) == 0 {
		return []Descriptor{}
	}

	switch view {
	case ViewHome:
		return r.memos[:1]
	case ViewRandom:
		return []Descriptor{r.memos[rand.IntN(len(r.memos))]}
	case ViewUser:
		for _, d := range r.memos {
			if d.ID == user || d.CreatorID == user || strings.EqualFold(d.DisplayName, user) {
				return []Descriptor{d}
			}
		}
		return []Descriptor{}
	default:
		return r.memos
	}
}

// Hosts returns the distinct endpoint hosts of every configured source.
func (r *Registry) Hosts() []string {
	seen := make(map[string]bool)
	hosts := []string{}
	for _, d := range r.All() {
		u, err := url.Parse(d.Endpoint)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if !seen[host] {
			seen[host] = true
			hosts = append(hosts, host)
		}
	}
	return hosts
}
