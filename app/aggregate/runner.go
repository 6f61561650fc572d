// Package aggregate runs the fetch, normalize and merge cycle over a set of
// sources. Per-source failures are absorbed and reported alongside the
// merged result; only a cycle in which every source fails is an error.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/memo-comb/app/fetcher"
	"github.com/lysyi3m/memo-comb/app/filter"
	"github.com/lysyi3m/memo-comb/app/merge"
	"github.com/lysyi3m/memo-comb/app/source"
)

var (
	ErrSourceUnreachable = errors.New("source unreachable")
	ErrParseFailure      = errors.New("parse failure")
	ErrNoSources         = errors.New("no sources configured")
	ErrAllSourcesFailed  = errors.New("all sources failed")
)

// Item is a normalized entry that can be filtered and merged.
type Item interface {
	merge.Entry
	filter.Fielder
}

type Fetcher interface {
	FetchAll(ctx context.Context, requests []fetcher.Request) []fetcher.Outcome
}

var _ Fetcher = (*fetcher.Client)(nil)

// StatusRecorder receives the outcome of every source fetch.
type StatusRecorder interface {
	RecordFetch(ctx context.Context, sourceID string, status int, count int, fetchErr error) error
}

// Adapter binds a source kind to its request shape and normalizer.
type Adapter[T Item] interface {
	Paginated() bool
	Request(desc source.Descriptor, cursor string) (fetcher.Request, error)
	Normalize(desc source.Descriptor, outcome fetcher.Outcome, cursor string) (Batch[T], error)
}

// Batch is what one successful source contributes to a cycle. Next is the
// cursor for the following page, empty when the source is exhausted.
type Batch[T Item] struct {
	Items []T
	Next  string
}

// Cursor maps source ids to their next-page cursor.
type Cursor map[string]string

type Failure struct {
	SourceID string         `json:"sourceId"`
	Dialect  source.Dialect `json:"dialect"`
	Status   int            `json:"status,omitempty"`
	Reason   string         `json:"reason"`
	Err      error          `json:"-"`
}

type Result[T Item] struct {
	Items    []T       `json:"items"`
	Cursor   Cursor    `json:"cursor"`
	Failures []Failure `json:"failures"`
	Sources  int       `json:"sources"`
}

type Runner[T Item] struct {
	fetcher  Fetcher
	adapter  Adapter[T]
	filterer *filter.Filterer
	status   StatusRecorder
}

// NewRunner builds a runner. status may be nil.
func NewRunner[T Item](f Fetcher, adapter Adapter[T], status StatusRecorder) *Runner[T] {
	return &Runner[T]{
		fetcher:  f,
		adapter:  adapter,
		filterer: filter.NewFilterer(),
		status:   status,
	}
}

// Run performs one full cycle over sources.
func (r *Runner[T]) Run(ctx context.Context, sources []source.Descriptor) (*Result[T], error) {
	return r.run(ctx, sources, nil)
}

// LoadMore fetches the next window and incorporates it into existing. When
// the adapter paginates, only sources with a pending cursor are fetched;
// otherwise every source is fetched again. merge.ErrNoNewRecords signals that
// nothing unseen arrived.
func (r *Runner[T]) LoadMore(ctx context.Context, sources []source.Descriptor, existing []T, cursor Cursor) (*Result[T], error) {
	targets := sources
	if r.adapter.Paginated() {
		targets = make([]source.Descriptor, 0, len(sources))
		for _, desc := range sources {
			if cursor[desc.ID] != "" {
				targets = append(targets, desc)
			}
		}
		if len(targets) == 0 {
			return &Result[T]{Items: existing, Cursor: Cursor{}, Failures: []Failure{}}, merge.ErrNoNewRecords
		}
	}

	result, err := r.run(ctx, targets, cursor)
	if err != nil {
		if result != nil {
			result.Items = existing
		}
		return result, err
	}

	combined, err := merge.Incorporate(existing, result.Items)
	result.Items = combined
	return result, err
}

func (r *Runner[T]) run(ctx context.Context, sources []source.Descriptor, cursor Cursor) (*Result[T], error) {
	result := &Result[T]{
		Items:    []T{},
		Cursor:   Cursor{},
		Failures: []Failure{},
		Sources:  len(sources),
	}

	if len(sources) == 0 {
		return result, ErrNoSources
	}

	requests := make([]fetcher.Request, 0, len(sources))
	targets := make([]source.Descriptor, 0, len(sources))
	for _, desc := range sources {
		req, err := r.adapter.Request(desc, cursor[desc.ID])
		if err != nil {
			r.fail(ctx, result, desc, cursor, 0, fmt.Errorf("%w: %w", ErrSourceUnreachable, err))
			continue
		}
		requests = append(requests, req)
		targets = append(targets, desc)
	}

	outcomes := r.fetcher.FetchAll(ctx, requests)

	batches := make([][]T, 0, len(outcomes))
	for i, outcome := range outcomes {
		desc := targets[i]

		if !outcome.OK() {
			r.fail(ctx, result, desc, cursor, outcome.Status, fmt.Errorf("%w: %w", ErrSourceUnreachable, outcome.Err))
			continue
		}

		batch, err := r.adapter.Normalize(desc, outcome, cursor[desc.ID])
		if err != nil {
			r.fail(ctx, result, desc, cursor, outcome.Status, fmt.Errorf("%w: %w", ErrParseFailure, err))
			continue
		}

		items := filter.Apply(r.filterer, batch.Items, desc.Filters)
		batches = append(batches, items)

		if batch.Next != "" {
			result.Cursor[desc.ID] = batch.Next
		}

		slog.Debug("Source fetched", "source", desc.ID, "dialect", desc.Dialect, "items", len(batch.Items), "kept", len(items))
		r.record(ctx, desc.ID, outcome.Status, len(items), nil)
	}

	result.Items = merge.Merge(batches...)

	if len(result.Failures) == len(sources) {
		return result, ErrAllSourcesFailed
	}

	return result, nil
}

// fail records a per-source failure. A pending cursor is kept so the source
// is fetched again by the next cycle.
func (r *Runner[T]) fail(ctx context.Context, result *Result[T], desc source.Descriptor, cursor Cursor, status int, err error) {
	if next := cursor[desc.ID]; next != "" {
		result.Cursor[desc.ID] = next
	}

	slog.Warn("Source fetch failed", "source", desc.ID, "dialect", desc.Dialect, "status", status, "error", err)

	result.Failures = append(result.Failures, Failure{
		SourceID: desc.ID,
		Dialect:  desc.Dialect,
		Status:   status,
		Reason:   err.Error(),
		Err:      err,
	})

	r.record(ctx, desc.ID, status, 0, err)
}

func (r *Runner[T]) record(ctx context.Context, sourceID string, status int, count int, fetchErr error) {
	if r.status == nil {
		return
	}
	if err := r.status.RecordFetch(ctx, sourceID, status, count, fetchErr); err != nil {
		slog.Warn("Failed to record source status", "source", sourceID, "error", err)
	}
}
