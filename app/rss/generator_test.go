package rss

import (
	"encoding/xml"
	"os"
	"strings"
	"testing"

	"github.com/lysyi3m/memo-comb/app/cfg"
	"github.com/lysyi3m/memo-comb/app/memo"
)

func setupTestConfig(t *testing.T) {
	t.Helper()

	oldArgs := os.Args
	os.Args = []string{"test"}
	defer func() { os.Args = oldArgs }()

	t.Setenv("BASE_URL", "https://memos.example.com/")
	t.Setenv("TZ", "UTC")

	if _, err := cfg.Load(); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
}

func sampleRecords() []memo.Record {
	return []memo.Record{
		{
			ID:          "alice/2",
			UpstreamID:  "2",
			SourceID:    "alice",
			Content:     "Second memo about #golang & <xml>\nmore text",
			DisplayTs:   1700000100,
			CreatorName: "Alice",
			Link:        "https://alice.example.com",
			Attachments: []memo.Attachment{
				{ID: "9", Filename: "a.png", MimeType: "image/png", SizeBytes: 1234, ResolvedURL: "https://alice.example.com/o/r/9"},
				{ID: "10", Filename: "b.png", MimeType: "image/png", SizeBytes: 99, ResolvedURL: "https://alice.example.com/o/r/10"},
			},
		},
		{
			ID:          "bob/1",
			UpstreamID:  "1",
			SourceID:    "bob",
			Content:     "",
			DisplayTs:   1700000000,
			CreatorName: "Bob",
			Attachments: []memo.Attachment{},
		},
	}
}

func TestGenerateRSS(t *testing.T) {
	setupTestConfig(t)

	out, err := NewGenerator().Run(Channel{Title: "Memo BBS", Path: "/rss"}, sampleRecords())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("RSS should start with XML declaration")
	}
	if !strings.Contains(out, `<atom:link href="https://memos.example.com/rss" rel="self"`) {
		t.Error("RSS should contain self link built from base URL")
	}
	if !strings.Contains(out, `<guid isPermaLink="false">alice/2</guid>`) {
		t.Error("RSS should contain memo id as guid")
	}
	if !strings.Contains(out, "<link>https://alice.example.com/m/2</link>") {
		t.Error("RSS should link to the memo on its instance")
	}
	if !strings.Contains(out, "<title>Second memo about #golang &amp; &lt;xml&gt;</title>") {
		t.Error("RSS should derive an escaped title from the first line")
	}
	if !strings.Contains(out, "<category>golang</category>") {
		t.Error("RSS should export hashtags as categories")
	}
	if strings.Count(out, "<enclosure") != 1 {
		t.Error("RSS should carry exactly one enclosure per item")
	}
	if !strings.Contains(out, `<enclosure url="https://alice.example.com/o/r/9" length="1234" type="image/png" />`) {
		t.Error("RSS should use the first attachment as enclosure")
	}
	if !strings.Contains(out, "<title>Bob</title>") {
		t.Error("RSS should fall back to creator name for empty memos")
	}
	if !strings.Contains(out, "<lastBuildDate>Tue, 14 Nov 2023 22:15:00 +0000</lastBuildDate>") {
		t.Error("RSS lastBuildDate should follow the newest memo")
	}

	var doc struct {
		Channel struct {
			Items []struct {
				GUID string `xml:"guid"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("RSS should be well-formed XML: %v", err)
	}
	if len(doc.Channel.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(doc.Channel.Items))
	}
}

func TestGenerateRSS_Empty(t *testing.T) {
	setupTestConfig(t)

	out, err := NewGenerator().Run(Channel{Title: "Empty"}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if strings.Contains(out, "<item>") {
		t.Error("Empty timeline should have no items")
	}
	if !strings.Contains(out, "<description>Merged public memos</description>") {
		t.Error("Expected default description")
	}
}

func TestTags(t *testing.T) {
	got := tags("#one text #two, #one again\n#three")
	want := []string{"one", "two", "three"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
