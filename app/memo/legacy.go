package memo

import (
	"bytes"
	"strconv"

	"github.com/lysyi3m/memo-comb/app/source"
)

type legacyMemo struct {
	ID           flexInt          `json:"id"`
	RowStatus    string           `json:"rowStatus"`
	CreatedTs    flexInt          `json:"createdTs"`
	UpdatedTs    flexInt          `json:"updatedTs"`
	DisplayTs    flexInt          `json:"displayTs"`
	Content      string           `json:"content"`
	Visibility   string           `json:"visibility"`
	Pinned       flexBool         `json:"pinned"`
	ResourceList []legacyResource `json:"resourceList"`
}

type legacyResource struct {
	ID           flexInt `json:"id"`
	Filename     string  `json:"filename"`
	ExternalLink string  `json:"externalLink"`
	Type         string  `json:"type"`
	Size         flexInt `json:"size"`
}

// legacyEnvelope is the {"data": [...]} wrapping some older instances use.
type legacyEnvelope struct {
	Data []legacyMemo `json:"data"`
}

func normalizeLegacy(n *Normalizer, payload []byte, desc source.Descriptor) (Page, error) {
	var memos []legacyMemo

	if trimmed := bytes.TrimSpace(payload); len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope legacyEnvelope
		if err := decode(trimmed, &envelope); err != nil {
			return Page{}, err
		}
		memos = envelope.Data
	} else if err := decode(payload, &memos); err != nil {
		return Page{}, err
	}

	page := Page{Records: make([]Record, 0, len(memos)), Fetched: len(memos)}
	missing := missingIDs{}
	for _, m := range memos {
		record := n.finish(missing.fill(Record{
			UpstreamID:  legacyUpstreamID(m.ID),
			Content:     m.Content,
			CreatedTs:   int64(m.CreatedTs),
			UpdatedTs:   int64(m.UpdatedTs),
			DisplayTs:   int64(m.DisplayTs),
			Visibility:  Visibility(m.Visibility),
			Pinned:      bool(m.Pinned),
			RowStatus:   m.RowStatus,
			Attachments: legacyAttachments(m.ResourceList, desc.Endpoint),
		}), desc)

		if keep(record) {
			page.Records = append(page.Records, record)
		}
	}

	return page, nil
}

// legacyUpstreamID treats a missing or non-positive id as absent.
func legacyUpstreamID(id flexInt) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(int64(id), 10)
}

func legacyAttachments(resources []legacyResource, endpoint string) []Attachment {
	attachments := make([]Attachment, 0, len(resources))
	for _, res := range resources {
		id := strconv.FormatInt(int64(res.ID), 10)
		attachments = append(attachments, Attachment{
			ID:          id,
			Filename:    res.Filename,
			MimeType:    res.Type,
			SizeBytes:   int64(res.Size),
			ResolvedURL: resolveLegacyURL(res.ExternalLink, endpoint, id),
		})
	}
	return attachments
}

func resolveLegacyURL(externalLink, endpoint, id string) string {
	if externalLink != "" {
		return externalLink
	}
	return endpoint + "/o/r/" + id
}
