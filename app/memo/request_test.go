package memo

import (
	"net/url"
	"testing"

	"github.com/lysyi3m/memo-comb/app/source"
)

func TestRequestURL(t *testing.T) {
	legacy := source.Descriptor{ID: "a", Endpoint: "https://a.example/", Dialect: source.DialectLegacyAll}
	v1 := source.Descriptor{ID: "b", Endpoint: "https://b.example", Dialect: source.DialectV1Filtered, CreatorID: "101"}

	tests := []struct {
		name     string
		desc     source.Descriptor
		pageSize int
		cursor   string
		want     string
	}{
		{"legacy full", legacy, 0, "", "https://a.example/api/v1/memo/all"},
		{"legacy first page", legacy, 20, "", "https://a.example/api/v1/memo/all?limit=20&offset=0"},
		{"legacy next page", legacy, 20, "40", "https://a.example/api/v1/memo/all?limit=20&offset=40"},
		{"v1 full", v1, 0, "", "https://b.example/api/v1/memos?filter=" + url.QueryEscape("creator=='users/101' && visibilities==['PUBLIC']")},
		{"v1 page", v1, 10, "tok", "https://b.example/api/v1/memos?filter=" + url.QueryEscape("creator=='users/101' && visibilities==['PUBLIC']") + "&pageSize=10&pageToken=tok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequestURL(tt.desc, tt.pageSize, tt.cursor)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected URL\n  %s\ngot\n  %s", tt.want, got)
			}
		})
	}
}

func TestRequestURL_FilterDecodes(t *testing.T) {
	desc := source.Descriptor{ID: "b", Endpoint: "https://b.example", Dialect: source.DialectV1Filtered, CreatorID: "7"}

	got, err := RequestURL(desc, 0, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("Expected a valid URL, got: %v", err)
	}
	if filter := u.Query().Get("filter"); filter != "creator=='users/7' && visibilities==['PUBLIC']" {
		t.Errorf("Unexpected filter expression: %s", filter)
	}
}

func TestRequestURL_Errors(t *testing.T) {
	if _, err := RequestURL(source.Descriptor{ID: "x", Dialect: source.DialectLegacyAll}, 0, ""); err == nil {
		t.Error("Expected error for missing endpoint")
	}
	if _, err := RequestURL(source.Descriptor{ID: "x", Endpoint: "https://x.example", Dialect: source.DialectLegacyAll}, 10, "abc"); err == nil {
		t.Error("Expected error for non-numeric offset cursor")
	}
	if _, err := RequestURL(source.Descriptor{ID: "x", Endpoint: "https://x.example", Dialect: source.DialectXML}, 0, ""); err == nil {
		t.Error("Expected error for feed dialect")
	}
}
