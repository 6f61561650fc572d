package memo

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lysyi3m/memo-comb/app/source"
)

// RequestURL builds the listing URL for a memo source. pageSize 0 requests
// the whole public collection; otherwise cursor selects the page.
func RequestURL(desc source.Descriptor, pageSize int, cursor string) (string, error) {
	endpoint := strings.TrimRight(desc.Endpoint, "/")
	if endpoint == "" {
		return "", fmt.Errorf("source %s has no endpoint", desc.ID)
	}

	switch desc.Dialect {
	case source.DialectLegacyAll:
		u := endpoint + "/api/v1/memo/all"
		if pageSize <= 0 {
			return u, nil
		}
		offset := 0
		if cursor != "" {
			n, err := strconv.Atoi(cursor)
			if err != nil || n < 0 {
				return "", fmt.Errorf("invalid offset cursor %q", cursor)
			}
			offset = n
		}
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("offset", strconv.Itoa(offset))
		return u + "?" + q.Encode(), nil

	case source.DialectV1Filtered:
		q := url.Values{}
		q.Set("filter", v1Filter(desc.CreatorID))
		if pageSize > 0 {
			q.Set("pageSize", strconv.Itoa(pageSize))
			if cursor != "" {
				q.Set("pageToken", cursor)
			}
		}
		return endpoint + "/api/v1/memos?" + q.Encode(), nil

	default:
		return "", fmt.Errorf("unsupported memo dialect %q", desc.Dialect)
	}
}

func v1Filter(creatorID string) string {
	if creatorID == "" {
		return "visibilities==['PUBLIC']"
	}
	return fmt.Sprintf("creator=='users/%s' && visibilities==['PUBLIC']", creatorID)
}
