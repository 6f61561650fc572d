package feed

import (
	"cmp"
	"time"
)

// MaxItems caps the items taken from one source per fetch.
const MaxItems = 20

// SummaryLength is the rune limit of a stripped summary.
const SummaryLength = 200

// Item is a blog post normalized from any feed dialect.
type Item struct {
	ID              string    `json:"id"`
	SourceID        string    `json:"sourceId"`
	Title           string    `json:"title"`
	Link            string    `json:"link"`
	PublishedAt     time.Time `json:"publishedAt"`
	Summary         string    `json:"summary"`
	AuthorName      string    `json:"authorName,omitempty"`
	AuthorAvatarURL string    `json:"authorAvatarUrl,omitempty"`
	SiteTitle       string    `json:"siteTitle"`
	FaviconURL      string    `json:"faviconUrl,omitempty"`
}

// Key identifies a post by its link, falling back to the upstream id.
func (i Item) Key() string {
	return cmp.Or(i.Link, i.SourceID+"/"+i.ID)
}

func (i Item) SortKey() int64 {
	return i.PublishedAt.Unix()
}

func (i Item) FieldValue(field string) string {
	switch field {
	case "title":
		return i.Title
	case "summary":
		return i.Summary
	case "author":
		return i.AuthorName
	case "link":
		return i.Link
	default:
		return ""
	}
}

// SearchFields are matched by free-text queries.
var SearchFields = []string{"title", "summary", "author"}
