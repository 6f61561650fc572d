package memo

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lysyi3m/memo-comb/app/source"
)

type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityProtected Visibility = "PROTECTED"
	VisibilityPrivate   Visibility = "PRIVATE"
)

const RowStatusNormal = "NORMAL"

type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	MimeType    string `json:"type"`
	SizeBytes   int64  `json:"size"`
	ResolvedURL string `json:"resolvedUrl"`
}

// Record is a memo normalized from any upstream dialect, with its source's
// display metadata copied in.
type Record struct {
	ID             string               `json:"id"`
	UpstreamID     string               `json:"upstreamId"`
	SourceID       string               `json:"sourceId"`
	Content        string               `json:"content"`
	CreatedTs      int64                `json:"createdTs"`
	UpdatedTs      int64                `json:"updatedTs"`
	DisplayTs      int64                `json:"displayTs"`
	Visibility     Visibility           `json:"visibility"`
	Pinned         bool                 `json:"pinned"`
	RowStatus      string               `json:"rowStatus"`
	Attachments    []Attachment         `json:"resources"`
	CreatorID      string               `json:"creatorId"`
	CreatorName    string               `json:"creatorName"`
	CreatorAvatar  string               `json:"creatorAvatar,omitempty"`
	CreatorWebsite string               `json:"creatorWebsite,omitempty"`
	Link           string               `json:"link"`
	Comments       source.CommentConfig `json:"comments"`
}

func (r Record) Key() string {
	return r.ID
}

func (r Record) SortKey() int64 {
	return r.DisplayTs
}

func (r Record) FieldValue(field string) string {
	switch field {
	case "content":
		return r.Content
	case "creator":
		return r.CreatorName
	default:
		return ""
	}
}

// SearchFields are matched by free-text queries.
var SearchFields = []string{"content", "creator"}

func recordID(sourceID, upstreamID string) string {
	return sourceID + "/" + upstreamID
}

// flexInt decodes JSON numbers and numeric strings. Anything else is zero.
type flexInt int64

func (n *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*n = flexInt(v)
		return nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		*n = flexInt(int64(v))
		return nil
	}
	*n = 0
	return nil
}

// flexBool decodes JSON booleans and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	v, err := strconv.ParseBool(raw)
	*b = flexBool(err == nil && v)
	return nil
}

var _ json.Unmarshaler = (*flexInt)(nil)
var _ json.Unmarshaler = (*flexBool)(nil)
