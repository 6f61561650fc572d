package database

import (
	"context"

	"github.com/lysyi3m/memo-comb/app/aggregate"
	"github.com/lysyi3m/memo-comb/app/source"
)

type SourceStore interface {
	aggregate.StatusRecorder

	SyncSources(ctx context.Context, sources []source.Descriptor) error
	ListSources(ctx context.Context) ([]SourceStatus, error)
	GetSource(ctx context.Context, id string) (*SourceStatus, error)
	GetSourceCount(ctx context.Context) (int, error)
}

var _ SourceStore = (*SourceRepository)(nil)
