package memo

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/memo-comb/app/source"
)

// Page is one normalized upstream response.
type Page struct {
	Records []Record
	// Fetched counts entries in the payload before visibility filtering.
	Fetched int
	// NextToken is the upstream's own continuation token, if any.
	NextToken string
}

type dialectFunc func(n *Normalizer, payload []byte, desc source.Descriptor) (Page, error)

var dialects = map[source.Dialect]dialectFunc{
	source.DialectLegacyAll:  normalizeLegacy,
	source.DialectV1Filtered: normalizeV1,
}

type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock fixes the time used for missing timestamps.
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Run maps a raw upstream payload to records. Missing optional fields get
// defaults; only a payload that cannot be decoded at all is an error.
func (n *Normalizer) Run(dialect source.Dialect, payload []byte, desc source.Descriptor) (Page, error) {
	normalize, ok := dialects[dialect]
	if !ok {
		return Page{}, fmt.Errorf("unsupported memo dialect %q", dialect)
	}
	return normalize(n, payload, desc)
}

func (n *Normalizer) nowUnix() int64 {
	return n.now().Unix()
}

// finish applies the shared defaults and source metadata.
func (n *Normalizer) finish(r Record, desc source.Descriptor) Record {
	now := n.nowUnix()

	if r.CreatedTs <= 0 {
		r.CreatedTs = now
	}
	if r.UpdatedTs <= 0 {
		r.UpdatedTs = r.CreatedTs
	}
	if r.DisplayTs <= 0 {
		r.DisplayTs = r.CreatedTs
	}

	r.Visibility = Visibility(strings.ToUpper(cmp.Or(string(r.Visibility), string(VisibilityPublic))))
	r.RowStatus = cmp.Or(r.RowStatus, RowStatusNormal)
	if r.Attachments == nil {
		r.Attachments = []Attachment{}
	}

	r.SourceID = desc.ID
	r.ID = recordID(desc.ID, r.UpstreamID)
	r.CreatorID = desc.CreatorID
	r.CreatorName = desc.DisplayName
	r.CreatorAvatar = desc.Aux.AvatarURL
	r.CreatorWebsite = desc.Aux.WebsiteURL
	r.Link = desc.Endpoint
	r.Comments = desc.Aux.Comments

	return r
}

// missingIDs derives ids for entries an upstream sent without one. The id
// hashes the raw timestamps and content so it survives a refetch. Identical
// id-less entries in one payload get a numeric suffix.
type missingIDs map[string]int

func (m missingIDs) fill(r Record) Record {
	if r.UpstreamID != "" {
		return r
	}
	key := fmt.Sprintf("%d\x00%d\x00%d\x00%s", r.CreatedTs, r.UpdatedTs, r.DisplayTs, r.Content)
	id := "x-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()

	m[id]++
	if seen := m[id]; seen > 1 {
		id += "-" + strconv.Itoa(seen)
	}
	r.UpstreamID = id
	return r
}

// keep reports whether a record belongs in the public aggregate.
func keep(r Record) bool {
	return r.Visibility == VisibilityPublic
}

// parseTimestamp converts an ISO-8601 string to whole epoch seconds.
func parseTimestamp(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return 0
	}
	if sec := t.Unix(); sec > 0 {
		return sec
	}
	return 0
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode memo payload: %w", err)
	}
	return nil
}
