package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/lysyi3m/memo-comb/app/source"
	"github.com/mmcdole/gofeed"
)

func parseXML(p *Parser, payload []byte, desc source.Descriptor) ([]Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	siteTitle := cmp.Or(strings.TrimSpace(parsed.Title), desc.DisplayName)

	count := min(len(parsed.Items), MaxItems)
	items := make([]Item, 0, count)
	for _, entry := range parsed.Items[:count] {
		if entry == nil {
			continue
		}

		item := Item{
			ID:         p.itemID(strings.TrimSpace(entry.GUID), strings.TrimSpace(entry.Link)),
			Title:      strings.TrimSpace(entry.Title),
			Link:       strings.TrimSpace(entry.Link),
			Summary:    summarize(cmp.Or(entry.Description, entry.Content)),
			AuthorName: authorName(entry),
			SiteTitle:  siteTitle,
		}

		switch {
		case entry.PublishedParsed != nil:
			item.PublishedAt = entry.PublishedParsed.UTC()
		case entry.UpdatedParsed != nil:
			item.PublishedAt = entry.UpdatedParsed.UTC()
		default:
			item.PublishedAt = p.now().UTC()
		}

		item.FaviconURL = p.faviconURL(item.Link, desc)
		items = append(items, item)
	}

	return items, nil
}

func authorName(entry *gofeed.Item) string {
	if entry.Author != nil && strings.TrimSpace(entry.Author.Name) != "" {
		return strings.TrimSpace(entry.Author.Name)
	}
	for _, author := range entry.Authors {
		if author != nil && strings.TrimSpace(author.Name) != "" {
			return strings.TrimSpace(author.Name)
		}
	}
	if entry.DublinCoreExt != nil && len(entry.DublinCoreExt.Creator) > 0 {
		return strings.TrimSpace(entry.DublinCoreExt.Creator[0])
	}
	return ""
}
