package feed

import (
	"fmt"

	"github.com/lysyi3m/memo-comb/app/aggregate"
	"github.com/lysyi3m/memo-comb/app/fetcher"
	"github.com/lysyi3m/memo-comb/app/source"
)

var _ aggregate.Adapter[Item] = (*Adapter)(nil)

// Adapter plugs feed sources into an aggregate.Runner. Feeds are always
// fetched whole.
type Adapter struct {
	parser *Parser
}

func NewAdapter(parser *Parser) *Adapter {
	return &Adapter{parser: parser}
}

// NewRunner wires a feed pipeline. status may be nil.
func NewRunner(f aggregate.Fetcher, parser *Parser, status aggregate.StatusRecorder) *aggregate.Runner[Item] {
	return aggregate.NewRunner[Item](f, NewAdapter(parser), status)
}

func (a *Adapter) Paginated() bool {
	return false
}

func (a *Adapter) Request(desc source.Descriptor, _ string) (fetcher.Request, error) {
	if desc.Endpoint == "" {
		return fetcher.Request{}, fmt.Errorf("source %s has no url", desc.ID)
	}

	accept := fetcher.JSONAccept
	if desc.Dialect == source.DialectXML {
		accept = fetcher.FeedAccept
	}
	return fetcher.Request{SourceID: desc.ID, URL: desc.Endpoint, Accept: accept}, nil
}

func (a *Adapter) Normalize(desc source.Descriptor, outcome fetcher.Outcome, _ string) (aggregate.Batch[Item], error) {
	items, err := a.parser.Run(desc.Dialect, outcome.Payload, desc)
	if err != nil {
		return aggregate.Batch[Item]{}, err
	}
	return aggregate.Batch[Item]{Items: items}, nil
}
