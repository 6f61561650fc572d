package feed

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/memo-comb/app/source"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testParser() *Parser {
	p := NewParser("https://favicon.example.com/")
	p.now = func() time.Time { return fixedNow }
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("generated-%d", n)
	}
	return p
}

func TestParseXML_RSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <item>
      <title> Test Item 1 </title>
      <link>https://example.com/item1</link>
      <description>&lt;p&gt;Hello   &lt;b&gt;world&lt;/b&gt;&lt;/p&gt;</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <dc:creator>Jane</dc:creator>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
    </item>
  </channel>
</rss>`

	desc := source.Descriptor{ID: "blogs", DisplayName: "Blogs", Endpoint: "https://feeds.example.org/rss", Dialect: source.DialectXML}
	items, err := testParser().Run(source.DialectXML, []byte(rssData), desc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	first := items[0]
	if first.ID != "item-1" {
		t.Errorf("Expected id 'item-1', got: %s", first.ID)
	}
	if first.Title != "Test Item 1" {
		t.Errorf("Expected trimmed title, got: %q", first.Title)
	}
	if first.Summary != "Hello world" {
		t.Errorf("Expected summary 'Hello world', got: %q", first.Summary)
	}
	if first.AuthorName != "Jane" {
		t.Errorf("Expected author 'Jane', got: %s", first.AuthorName)
	}
	if first.SiteTitle != "Test Feed" {
		t.Errorf("Expected site title 'Test Feed', got: %s", first.SiteTitle)
	}
	if first.SourceID != "blogs" {
		t.Errorf("Expected source id 'blogs', got: %s", first.SourceID)
	}
	if want := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC); !first.PublishedAt.Equal(want) {
		t.Errorf("Expected published %v, got: %v", want, first.PublishedAt)
	}
	if first.FaviconURL != "https://favicon.example.com?url=example.com" {
		t.Errorf("Expected favicon for example.com, got: %s", first.FaviconURL)
	}

	second := items[1]
	if second.ID != "https://example.com/item2" {
		t.Errorf("Expected id to fall back to link, got: %s", second.ID)
	}
	if !second.PublishedAt.Equal(fixedNow) {
		t.Errorf("Expected missing date to default to now, got: %v", second.PublishedAt)
	}
}

func TestParseXML_Atom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Site</title>
  <entry>
    <title>Entry</title>
    <link href="https://atom.example.com/e1"/>
    <id>urn:e1</id>
    <updated>2024-01-02T03:04:05Z</updated>
    <author><name>Ann</name></author>
    <content type="html">&lt;div&gt;Body&lt;/div&gt;</content>
  </entry>
</feed>`

	items, err := testParser().Run(source.DialectXML, []byte(atomData), source.Descriptor{ID: "atom"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}
	if items[0].AuthorName != "Ann" {
		t.Errorf("Expected author 'Ann', got: %s", items[0].AuthorName)
	}
	if want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC); !items[0].PublishedAt.Equal(want) {
		t.Errorf("Expected updated date %v, got: %v", want, items[0].PublishedAt)
	}
	if items[0].Summary != "Body" {
		t.Errorf("Expected summary from content, got: %q", items[0].Summary)
	}
}

func TestParseXML_CapsItems(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Many</title>`)
	for i := range 30 {
		fmt.Fprintf(&b, "<item><title>Item %d</title><link>https://example.com/%d</link></item>", i, i)
	}
	b.WriteString(`</channel></rss>`)

	items, err := testParser().Run(source.DialectXML, []byte(b.String()), source.Descriptor{ID: "many"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != MaxItems {
		t.Errorf("Expected %d items, got: %d", MaxItems, len(items))
	}
	if items[0].Title != "Item 0" {
		t.Errorf("Expected upstream order to be kept, got first: %s", items[0].Title)
	}
}

func TestParseXML_Invalid(t *testing.T) {
	_, err := testParser().Run(source.DialectXML, []byte("not a feed"), source.Descriptor{ID: "bad"})
	if err == nil {
		t.Error("Expected error for invalid feed")
	}
}

func TestParseCustomA(t *testing.T) {
	payload := `{"article_data":[
		{"title":"Post","link":"https://a.example.com/p","created":"2024-03-01","updated":"2024-03-02 10:00:00","author":"Bob","avatar":"https://a.example.com/bob.png","floor":3},
		{"title":"No link","created":"garbage"}
	]}`

	desc := source.Descriptor{ID: "cf", DisplayName: "Friends", Endpoint: "https://cf.example.com/all.json"}
	items, err := testParser().Run(source.DialectJSONCustomA, []byte(payload), desc)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	first := items[0]
	if first.ID != "https://a.example.com/p" {
		t.Errorf("Expected id from link, got: %s", first.ID)
	}
	if want := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC); !first.PublishedAt.Equal(want) {
		t.Errorf("Expected updated date %v, got: %v", want, first.PublishedAt)
	}
	if first.AuthorName != "Bob" {
		t.Errorf("Expected author 'Bob', got: %s", first.AuthorName)
	}
	if first.SiteTitle != "3" {
		t.Errorf("Expected site title from floor, got: %s", first.SiteTitle)
	}

	second := items[1]
	if second.ID != "generated-1" {
		t.Errorf("Expected generated id, got: %s", second.ID)
	}
	if !second.PublishedAt.Equal(fixedNow) {
		t.Errorf("Expected unparseable date to default to now, got: %v", second.PublishedAt)
	}
	if second.SiteTitle != "Friends" {
		t.Errorf("Expected site title to fall back to source name, got: %s", second.SiteTitle)
	}
	if second.FaviconURL != "https://favicon.example.com?url=cf.example.com" {
		t.Errorf("Expected favicon from endpoint host, got: %s", second.FaviconURL)
	}
}

func TestParseCustomB(t *testing.T) {
	payload := `{"data":{"data":[
		{"title":"Ten","link":"https://b.example.com/t","created_at":"2024-02-01T08:00:00Z","nickname":"Carol","email":" Carol@Example.com ","blog_name":"Carol's"},
		{"title":"Hash","link":"https://b.example.com/h","author_name":"Dan","email_md5":"ABC123"},
		{"title":"Anon","link":"https://b.example.com/a"}
	]}}`

	items, err := testParser().Run(source.DialectJSONCustomB, []byte(payload), source.Descriptor{ID: "ten", DisplayName: "Pact"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got: %d", len(items))
	}

	sum := md5.Sum([]byte("carol@example.com"))
	if want := "https://gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"; items[0].AuthorAvatarURL != want {
		t.Errorf("Expected avatar %s, got: %s", want, items[0].AuthorAvatarURL)
	}
	if items[0].AuthorName != "Carol" {
		t.Errorf("Expected author 'Carol', got: %s", items[0].AuthorName)
	}
	if items[0].SiteTitle != "Carol's" {
		t.Errorf("Expected blog name as site title, got: %s", items[0].SiteTitle)
	}
	if items[1].AuthorAvatarURL != "https://gravatar.com/avatar/abc123?d=identicon" {
		t.Errorf("Expected precomputed hash avatar, got: %s", items[1].AuthorAvatarURL)
	}
	if items[1].AuthorName != "Dan" {
		t.Errorf("Expected author 'Dan', got: %s", items[1].AuthorName)
	}
	if items[2].AuthorAvatarURL != "" {
		t.Errorf("Expected no avatar, got: %s", items[2].AuthorAvatarURL)
	}
	if items[2].SiteTitle != "Pact" {
		t.Errorf("Expected site title to fall back to source name, got: %s", items[2].SiteTitle)
	}
}

func TestParseCustom_Malformed(t *testing.T) {
	p := testParser()
	if _, err := p.Run(source.DialectJSONCustomA, []byte("{"), source.Descriptor{}); err == nil {
		t.Error("Expected error for malformed custom A payload")
	}
	if _, err := p.Run(source.DialectJSONCustomB, []byte("[]"), source.Descriptor{}); err == nil {
		t.Error("Expected error for malformed custom B payload")
	}
}

func TestParser_UnsupportedDialect(t *testing.T) {
	if _, err := testParser().Run(source.DialectLegacyAll, []byte("[]"), source.Descriptor{}); err == nil {
		t.Error("Expected error for memo dialect")
	}
}

func TestParseXML_GeneratesIDOnlyWhenMissing(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Ids</title>
    <item><title>With guid</title><guid>g-1</guid></item>
    <item><title>With link</title><link>https://example.com/2</link></item>
    <item><title>Bare</title></item>
  </channel>
</rss>`

	calls := 0
	p := testParser()
	next := p.newID
	p.newID = func() string {
		calls++
		return next()
	}

	items, err := p.Run(source.DialectXML, []byte(rssData), source.Descriptor{ID: "ids"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got: %d", len(items))
	}

	want := []string{"g-1", "https://example.com/2", "generated-1"}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("Expected item %d id %q, got: %q", i, id, items[i].ID)
		}
	}
	if calls != 1 {
		t.Errorf("Expected one generated id, got: %d", calls)
	}
}
