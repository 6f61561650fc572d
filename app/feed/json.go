package feed

import (
	"cmp"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lysyi3m/memo-comb/app/source"
)

// customAResponse is the friends-circle shape: {"article_data": [...]}.
type customAResponse struct {
	ArticleData []customAEntry `json:"article_data"`
}

type customAEntry struct {
	Title   string      `json:"title"`
	Link    string      `json:"link"`
	Created string      `json:"created"`
	Updated string      `json:"updated"`
	Creator string      `json:"creator"`
	Author  string      `json:"author"`
	Avatar  string      `json:"avatar"`
	Floor   looseString `json:"floor"`
}

// customBResponse is the ten-year-pact shape: {"data": {"data": [...]}}.
type customBResponse struct {
	Data struct {
		Data []customBEntry `json:"data"`
	} `json:"data"`
}

type customBEntry struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	CreatedAt  string `json:"created_at"`
	Nickname   string `json:"nickname"`
	AuthorName string `json:"author_name"`
	Email      string `json:"email"`
	EmailMD5   string `json:"email_md5"`
	BlogName   string `json:"blog_name"`
}

func parseCustomA(p *Parser, payload []byte, desc source.Descriptor) ([]Item, error) {
	var resp customAResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode feed payload: %w", err)
	}

	count := min(len(resp.ArticleData), MaxItems)
	items := make([]Item, 0, count)
	for _, entry := range resp.ArticleData[:count] {
		link := strings.TrimSpace(entry.Link)
		items = append(items, Item{
			ID:              p.itemID(link),
			Title:           strings.TrimSpace(entry.Title),
			Link:            link,
			PublishedAt:     p.parseDate(entry.Updated, entry.Created),
			AuthorName:      cmp.Or(entry.Creator, entry.Author),
			AuthorAvatarURL: entry.Avatar,
			SiteTitle:       cmp.Or(string(entry.Floor), desc.DisplayName),
			FaviconURL:      p.faviconURL(link, desc),
		})
	}

	return items, nil
}

func parseCustomB(p *Parser, payload []byte, desc source.Descriptor) ([]Item, error) {
	var resp customBResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode feed payload: %w", err)
	}

	entries := resp.Data.Data
	count := min(len(entries), MaxItems)
	items := make([]Item, 0, count)
	for _, entry := range entries[:count] {
		link := strings.TrimSpace(entry.Link)
		items = append(items, Item{
			ID:              p.itemID(link),
			Title:           strings.TrimSpace(entry.Title),
			Link:            link,
			PublishedAt:     p.parseDate(entry.CreatedAt),
			AuthorName:      cmp.Or(entry.Nickname, entry.AuthorName),
			AuthorAvatarURL: gravatarURL(entry.EmailMD5, entry.Email),
			SiteTitle:       cmp.Or(entry.BlogName, desc.DisplayName),
			FaviconURL:      p.faviconURL(link, desc),
		})
	}

	return items, nil
}

// parseDate returns the first candidate that parses, or now.
func (p *Parser) parseDate(candidates ...string) time.Time {
	for _, value := range candidates {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if t, err := dateparse.ParseIn(value, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return p.now().UTC()
}

// gravatarURL prefers a precomputed hash and hashes the email otherwise.
func gravatarURL(emailMD5, email string) string {
	hash := strings.ToLower(strings.TrimSpace(emailMD5))
	if hash == "" {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			return ""
		}
		sum := md5.Sum([]byte(email))
		hash = hex.EncodeToString(sum[:])
	}
	return "https://gravatar.com/avatar/" + hash + "?d=identicon"
}

// looseString accepts JSON strings and numbers.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(strings.TrimSpace(str))
		return nil
	}
	*s = looseString(raw)
	return nil
}
