package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lysyi3m/memo-comb/app/memo"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Blog</title>
    <link>https://blog.example.com</link>
    <item>
      <title>Hello feeds</title>
      <link>https://blog.example.com/hello</link>
      <guid>hello</guid>
      <pubDate>Mon, 01 Apr 2024 10:00:00 +0000</pubDate>
      <description>First post</description>
    </item>
  </channel>
</rss>`

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/memo/all":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[
				{"id":1,"content":"older memo","createdTs":1000,"displayTs":1000},
				{"id":2,"content":"hello world\nsecond line","createdTs":2000,"displayTs":2000}
			]`))
		case "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(testRSS))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writeConfigs(t *testing.T, upstreamURL string) (string, string) {
	t.Helper()
	dir := t.TempDir()

	memos := `{"myMemoList":[{"id":"alice","creatorName":"Alice","website":"https://alice.example.com","link":"` + upstreamURL + `","creatorId":"1","avatar":""}]}`
	feeds := "feeds:\n  - id: blog\n    name: Test Blog\n    url: " + upstreamURL + "/feed.xml\n    type: xml\n"

	memosPath := filepath.Join(dir, "memos.json")
	feedsPath := filepath.Join(dir, "feeds.yml")
	if err := os.WriteFile(memosPath, []byte(memos), 0o644); err != nil {
		t.Fatalf("Failed to write memos config: %v", err)
	}
	if err := os.WriteFile(feedsPath, []byte(feeds), 0o644); err != nil {
		t.Fatalf("Failed to write feeds config: %v", err)
	}
	return memosPath, feedsPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMemosCommand(t *testing.T) {
	upstream := newUpstream(t)
	memosPath, feedsPath := writeConfigs(t, upstream.URL)

	out, err := runCLI(t, "memos", "--memos-config", memosPath, "--feeds-config", feedsPath, "--no-defaults")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(out, "Alice") {
		t.Errorf("Expected creator name in output, got %q", out)
	}
	if strings.Contains(out, "second line") {
		t.Errorf("Expected only the first line of each memo, got %q", out)
	}
	if strings.Index(out, "hello world") > strings.Index(out, "older memo") {
		t.Errorf("Expected newest memo first, got %q", out)
	}
}

func TestMemosCommandJSONWithQuery(t *testing.T) {
	upstream := newUpstream(t)
	memosPath, feedsPath := writeConfigs(t, upstream.URL)

	out, err := runCLI(t, "memos", "--json", "-q", "HELLO",
		"--memos-config", memosPath, "--feeds-config", feedsPath, "--no-defaults")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var records []memo.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out, err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 matching record, got %d", len(records))
	}
	if records[0].ID != "alice/2" {
		t.Errorf("Expected record alice/2, got %s", records[0].ID)
	}
}

func TestFeedsCommand(t *testing.T) {
	upstream := newUpstream(t)
	memosPath, feedsPath := writeConfigs(t, upstream.URL)

	out, err := runCLI(t, "feeds", "blog", "--memos-config", memosPath, "--feeds-config", feedsPath, "--no-defaults")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "Hello feeds") || !strings.Contains(out, "https://blog.example.com/hello") {
		t.Errorf("Expected feed item in output, got %q", out)
	}

	if _, err := runCLI(t, "feeds", "missing", "--memos-config", memosPath, "--feeds-config", feedsPath, "--no-defaults"); err == nil {
		t.Error("Expected error for unknown feed")
	}
}

func TestSourcesCommand(t *testing.T) {
	memosPath, feedsPath := writeConfigs(t, "https://memos.example.com")

	out, err := runCLI(t, "sources", "--memos-config", memosPath, "--feeds-config", feedsPath, "--no-defaults")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, want := range []string{"KIND", "memo", "alice", "feed", "blog", "https://memos.example.com/feed.xml"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got %q", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.HasPrefix(out, "memo-comb ") {
		t.Errorf("Expected version line, got %q", out)
	}
}
