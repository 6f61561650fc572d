package embed

import (
	"bytes"
	"cmp"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"
)

// descriptionLength bounds the description taken from page text.
const descriptionLength = 160

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Run reads metadata from an HTML page. Open Graph tags are preferred; the
// readability article fills whatever they leave out.
func (e *Extractor) Run(pageURL *url.URL, data []byte) (Metadata, error) {
	if len(data) == 0 {
		return Metadata{}, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	meta := Metadata{
		URL:         pageURL.String(),
		Title:       metaContent(doc, "og:title", "twitter:title"),
		Description: metaContent(doc, "og:description", "twitter:description", "description"),
		Image:       metaContent(doc, "og:image", "twitter:image"),
		SiteName:    metaContent(doc, "og:site_name"),
	}

	if meta.Title == "" || meta.Description == "" || meta.Image == "" || meta.SiteName == "" {
		article, err := readability.FromReader(bytes.NewReader(data), pageURL)
		if err != nil {
			slog.Debug("Readability extraction failed", "url", meta.URL, "error", err)
		} else {
			meta.Title = cmp.Or(meta.Title, strings.TrimSpace(article.Title))
			meta.Description = cmp.Or(meta.Description, strings.TrimSpace(article.Excerpt))
			meta.Image = cmp.Or(meta.Image, article.Image)
			meta.SiteName = cmp.Or(meta.SiteName, article.SiteName)
		}
	}

	meta.Title = cmp.Or(meta.Title, strings.TrimSpace(doc.Find("title").First().Text()), pageURL.Hostname())
	meta.Description = clip(strings.Join(strings.Fields(meta.Description), " "), descriptionLength)
	meta.Image = absolute(pageURL, meta.Image)

	return meta, nil
}

func metaContent(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		selector := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)
		if v, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func absolute(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
