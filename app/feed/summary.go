package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// summarize strips markup, collapses whitespace and cuts to SummaryLength runes.
func summarize(s string) string {
	return truncate(stripHTML(s), SummaryLength)
}

func stripHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	text := s
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
		doc.Find("script, style").Remove()
		text = doc.Text()
	}

	return strings.Join(strings.Fields(text), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
