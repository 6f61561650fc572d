package memo

import (
	"cmp"
	"net/url"
	"strconv"
	"strings"

	"github.com/lysyi3m/memo-comb/app/source"
)

type v1Response struct {
	Memos         []v1Memo `json:"memos"`
	NextPageToken string   `json:"nextPageToken"`
}

type v1Memo struct {
	Name        string       `json:"name"`
	UID         string       `json:"uid"`
	RowStatus   string       `json:"rowStatus"`
	State       string       `json:"state"`
	CreateTime  string       `json:"createTime"`
	UpdateTime  string       `json:"updateTime"`
	DisplayTime string       `json:"displayTime"`
	Content     string       `json:"content"`
	Visibility  string       `json:"visibility"`
	Pinned      flexBool     `json:"pinned"`
	Resources   []v1Resource `json:"resources"`
	Attachments []v1Resource `json:"attachments"`
}

type v1Resource struct {
	Name         string  `json:"name"`
	UID          string  `json:"uid"`
	Filename     string  `json:"filename"`
	ExternalLink string  `json:"externalLink"`
	Type         string  `json:"type"`
	Size         flexInt `json:"size"`
}

func normalizeV1(n *Normalizer, payload []byte, desc source.Descriptor) (Page, error) {
	var resp v1Response
	if err := decode(payload, &resp); err != nil {
		return Page{}, err
	}

	page := Page{
		Records:   make([]Record, 0, len(resp.Memos)),
		Fetched:   len(resp.Memos),
		NextToken: resp.NextPageToken,
	}

	missing := missingIDs{}
	for _, m := range resp.Memos {
		createdTs := parseTimestamp(m.CreateTime)
		displayTs := parseTimestamp(cmp.Or(m.DisplayTime, m.CreateTime))

		resources := m.Resources
		if len(resources) == 0 {
			resources = m.Attachments
		}

		record := n.finish(missing.fill(Record{
			UpstreamID:  v1UpstreamID(m),
			Content:     m.Content,
			CreatedTs:   createdTs,
			UpdatedTs:   parseTimestamp(m.UpdateTime),
			DisplayTs:   displayTs,
			Visibility:  Visibility(m.Visibility),
			Pinned:      bool(m.Pinned),
			RowStatus:   v1RowStatus(m),
			Attachments: v1Attachments(resources, desc.Endpoint),
		}), desc)

		if keep(record) {
			page.Records = append(page.Records, record)
		}
	}

	return page, nil
}

// v1UpstreamID takes the trailing segment of a resource name such as
// "memos/7". Numeric segments are canonicalized so "memos/007" equals 7.
func v1UpstreamID(m v1Memo) string {
	segment := trailingSegment(m.Name)
	if segment == "" {
		return m.UID
	}
	if id, err := strconv.ParseInt(segment, 10, 64); err == nil {
		return strconv.FormatInt(id, 10)
	}
	return segment
}

func v1RowStatus(m v1Memo) string {
	status := cmp.Or(m.RowStatus, m.State)
	switch status {
	case "", "ACTIVE", "STATE_UNSPECIFIED", "ROW_STATUS_UNSPECIFIED":
		return RowStatusNormal
	}
	return status
}

func v1Attachments(resources []v1Resource, endpoint string) []Attachment {
	attachments := make([]Attachment, 0, len(resources))
	for _, res := range resources {
		attachments = append(attachments, Attachment{
			ID:          cmp.Or(trailingSegment(res.Name), res.UID),
			Filename:    res.Filename,
			MimeType:    res.Type,
			SizeBytes:   int64(res.Size),
			ResolvedURL: resolveV1URL(res, endpoint),
		})
	}
	return attachments
}

func resolveV1URL(res v1Resource, endpoint string) string {
	if res.ExternalLink != "" {
		return res.ExternalLink
	}
	return endpoint + "/file/" + res.Name + "/" + url.PathEscape(res.Filename)
}

func trailingSegment(name string) string {
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
