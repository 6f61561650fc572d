package api

import (
	"context"

	"github.com/lysyi3m/memo-comb/app/aggregate"
	"github.com/lysyi3m/memo-comb/app/database"
	"github.com/lysyi3m/memo-comb/app/embed"
	"github.com/lysyi3m/memo-comb/app/feed"
	"github.com/lysyi3m/memo-comb/app/filter"
	"github.com/lysyi3m/memo-comb/app/memo"
	"github.com/lysyi3m/memo-comb/app/relay"
	"github.com/lysyi3m/memo-comb/app/rss"
	"github.com/lysyi3m/memo-comb/app/source"
	"github.com/lysyi3m/memo-comb/app/tasks"
)

type MemoPipeline interface {
	Run(ctx context.Context, sources []source.Descriptor) (*aggregate.Result[memo.Record], error)
	LoadMore(ctx context.Context, sources []source.Descriptor, existing []memo.Record, cursor aggregate.Cursor) (*aggregate.Result[memo.Record], error)
}

var _ MemoPipeline = (*aggregate.Runner[memo.Record])(nil)

type FeedPipeline interface {
	Run(ctx context.Context, sources []source.Descriptor) (*aggregate.Result[feed.Item], error)
}

var _ FeedPipeline = (*aggregate.Runner[feed.Item])(nil)

type FeedRelay interface {
	Forward(ctx context.Context, target string) (*relay.Response, error)
}

var _ FeedRelay = (*relay.Relay)(nil)

type MemoWriter interface {
	Check(token string) error
	Create(ctx context.Context, token string, fields map[string]any) (*relay.Reply, error)
	Update(ctx context.Context, token, memoID string, fields map[string]any) (*relay.Reply, error)
	Delete(ctx context.Context, token, memoID string) (*relay.Reply, error)
}

var _ MemoWriter = (*relay.Passthrough)(nil)

type EmbedResolver interface {
	Resolve(ctx context.Context, rawURL string) (embed.Metadata, error)
}

var _ EmbedResolver = (*embed.Resolver)(nil)

type GeneratorInterface interface {
	Run(channel rss.Channel, records []memo.Record) (string, error)
}

var _ GeneratorInterface = (*rss.Generator)(nil)

// Deps wires the handler. Store and Scheduler may be nil, which disables the
// admin source endpoints.
type Deps struct {
	Registry  *source.Registry
	Memos     MemoPipeline
	Feeds     FeedPipeline
	Relay     FeedRelay
	Writer    MemoWriter
	Embeds    EmbedResolver
	Generator GeneratorInterface
	Store     database.SourceStore
	Scheduler tasks.TaskSchedulerInterface
}

type Handler struct {
	registry  *source.Registry
	memos     MemoPipeline
	feeds     FeedPipeline
	relay     FeedRelay
	writer    MemoWriter
	embeds    EmbedResolver
	generator GeneratorInterface
	filterer  *filter.Filterer
	store     database.SourceStore
	scheduler tasks.TaskSchedulerInterface
}

type memosResponse struct {
	Items        []memo.Record       `json:"items"`
	Cursor       aggregate.Cursor    `json:"cursor"`
	Failures     []aggregate.Failure `json:"failures"`
	Sources      int                 `json:"sources"`
	Message      string              `json:"message,omitempty"`
	NoNewRecords bool                `json:"no_new_records"`
}

type moreMemosRequest struct {
	Items  []memo.Record    `json:"items"`
	Cursor aggregate.Cursor `json:"cursor"`
	View   string           `json:"view"`
	User   string           `json:"user"`
	Source string           `json:"source"`
	Query  string           `json:"q"`
}

type feedsResponse struct {
	Items    []feed.Item         `json:"items"`
	Failures []aggregate.Failure `json:"failures"`
	Sources  int                 `json:"sources"`
	Message  string              `json:"message,omitempty"`
}
