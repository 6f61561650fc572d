package feed

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/memo-comb/app/source"
	"github.com/mmcdole/gofeed"
)

const DefaultFaviconService = "https://favicon.memobbs.app"

type dialectFunc func(p *Parser, payload []byte, desc source.Descriptor) ([]Item, error)

var dialects = map[source.Dialect]dialectFunc{
	source.DialectXML:         parseXML,
	source.DialectJSONCustomA: parseCustomA,
	source.DialectJSONCustomB: parseCustomB,
}

type Parser struct {
	gofeedParser   *gofeed.Parser
	faviconService string
	now            func() time.Time
	newID          func() string
}

func NewParser(faviconService string) *Parser {
	if faviconService == "" {
		faviconService = DefaultFaviconService
	}
	return &Parser{
		gofeedParser:   gofeed.NewParser(),
		faviconService: strings.TrimRight(faviconService, "/"),
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// Run normalizes one feed payload. At most MaxItems are returned, in upstream
// order.
func (p *Parser) Run(dialect source.Dialect, payload []byte, desc source.Descriptor) ([]Item, error) {
	parse, ok := dialects[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported feed dialect %q", dialect)
	}

	items, err := parse(p, payload, desc)
	if err != nil {
		return nil, err
	}

	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	for i := range items {
		items[i].SourceID = desc.ID
	}
	return items, nil
}

// itemID returns the first non-empty candidate. A token is generated only
// when every candidate is empty.
func (p *Parser) itemID(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return p.newID()
}

// faviconURL points the favicon service at the host of link, or of the
// source endpoint when link is unusable.
func (p *Parser) faviconURL(link string, desc source.Descriptor) string {
	host := hostname(link)
	if host == "" {
		host = hostname(desc.Endpoint)
	}
	if host == "" {
		return ""
	}
	return p.faviconService + "?url=" + url.QueryEscape(host)
}

func hostname(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}
