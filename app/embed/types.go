// Package embed resolves link-preview metadata for URLs referenced in memos.
package embed

// Metadata describes a linked page.
type Metadata struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
}
