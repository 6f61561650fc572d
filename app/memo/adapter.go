package memo

import (
	"strconv"

	"github.com/lysyi3m/memo-comb/app/aggregate"
	"github.com/lysyi3m/memo-comb/app/fetcher"
	"github.com/lysyi3m/memo-comb/app/source"
)

var _ aggregate.Adapter[Record] = (*Adapter)(nil)

// Adapter plugs memo sources into an aggregate.Runner.
type Adapter struct {
	normalizer *Normalizer
	pageSize   int
}

func NewAdapter(normalizer *Normalizer, pageSize int) *Adapter {
	return &Adapter{normalizer: normalizer, pageSize: max(pageSize, 0)}
}

// NewRunner wires a memo pipeline. status may be nil.
func NewRunner(f aggregate.Fetcher, normalizer *Normalizer, pageSize int, status aggregate.StatusRecorder) *aggregate.Runner[Record] {
	return aggregate.NewRunner[Record](f, NewAdapter(normalizer, pageSize), status)
}

func (a *Adapter) Paginated() bool {
	return a.pageSize > 0
}

func (a *Adapter) Request(desc source.Descriptor, cursor string) (fetcher.Request, error) {
	u, err := RequestURL(desc, a.pageSize, cursor)
	if err != nil {
		return fetcher.Request{}, err
	}
	return fetcher.Request{SourceID: desc.ID, URL: u, Accept: fetcher.JSONAccept}, nil
}

func (a *Adapter) Normalize(desc source.Descriptor, outcome fetcher.Outcome, cursor string) (aggregate.Batch[Record], error) {
	page, err := a.normalizer.Run(desc.Dialect, outcome.Payload, desc)
	if err != nil {
		return aggregate.Batch[Record]{}, err
	}

	return aggregate.Batch[Record]{
		Items: page.Records,
		Next:  a.nextCursor(desc, page, cursor),
	}, nil
}

// nextCursor is empty when the source has no further page.
func (a *Adapter) nextCursor(desc source.Descriptor, page Page, cursor string) string {
	if !a.Paginated() {
		return ""
	}

	switch desc.Dialect {
	case source.DialectV1Filtered:
		return page.NextToken
	case source.DialectLegacyAll:
		if page.Fetched < a.pageSize {
			return ""
		}
		offset, _ := strconv.Atoi(cursor)
		return strconv.Itoa(offset + page.Fetched)
	}
	return ""
}
