// Package rss renders merged memo timelines as RSS 2.0 documents.
package rss

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/lysyi3m/memo-comb/app/cfg"
	"github.com/lysyi3m/memo-comb/app/memo"
)

// titleLength bounds item titles derived from memo content.
const titleLength = 60

var tagPattern = regexp.MustCompile(`(?:^|\s)#([^\s#]+)`)

// Channel describes the exported timeline.
type Channel struct {
	Title       string
	Link        string
	Description string
	// Path is the request path of the document, used for the self link.
	Path string
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(channel Channel, records []memo.Record) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", g.baseURL(), 4)
	description := channel.Description
	if description == "" {
		description = "Merged public memos"
	}
	g.writeElement(&buf, "description", description, 4)

	fmt.Fprintf(&buf, "    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(g.baseURL()+channel.Path))

	lastBuildDate := time.Now().In(time.Local)
	if len(records) > 0 {
		lastBuildDate = time.Unix(records[0].DisplayTs, 0).In(time.Local)
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("MemoComb/%s", cfg.Get().Version), 4)

	for _, record := range records {
		g.writeItem(&buf, record)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, record memo.Record) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(record.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", itemTitle(record), 6)
	if record.Link != "" {
		g.writeElement(buf, "link", strings.TrimRight(record.Link, "/")+"/m/"+record.UpstreamID, 6)
	}
	g.writeElement(buf, "description", record.Content, 6)
	g.writeElement(buf, "pubDate", time.Unix(record.DisplayTs, 0).In(time.Local).Format(time.RFC1123Z), 6)
	g.writeElement(buf, "author", record.CreatorName, 6)

	for _, tag := range tags(record.Content) {
		g.writeElement(buf, "category", tag, 6)
	}

	for _, attachment := range record.Attachments {
		if attachment.ResolvedURL == "" || attachment.MimeType == "" {
			continue
		}
		fmt.Fprintf(buf, "      <enclosure url=\"%s\" length=\"%d\" type=\"%s\" />\n",
			html.EscapeString(attachment.ResolvedURL),
			attachment.SizeBytes,
			html.EscapeString(attachment.MimeType))
		// RSS 2.0 allows a single enclosure per item
		break
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) baseURL() string {
	if base := cfg.Get().BaseUrl; base != "" {
		return strings.TrimRight(base, "/")
	}
	return fmt.Sprintf("http://localhost:%s", cfg.Get().Port)
}

// itemTitle is the first non-empty line of the memo, clipped.
func itemTitle(record memo.Record) string {
	for _, line := range strings.Split(record.Content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#>-* "))
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > titleLength {
			return string(runes[:titleLength]) + "…"
		}
		return line
	}
	return record.CreatorName
}

func tags(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		tag := strings.TrimRight(m[1], ".,;:!?")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
