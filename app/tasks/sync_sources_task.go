package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/memo-comb/app/source"
)

type SyncSourcesTask struct {
	Task
	Sources []source.Descriptor
	store   SourceSyncer
}

func NewSyncSourcesTask(sources []source.Descriptor, store SourceSyncer) *SyncSourcesTask {
	return &SyncSourcesTask{
		Task:    NewTask(TaskTypeSyncSources, ""),
		Sources: sources,
		store:   store,
	}
}

func (t *SyncSourcesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.store.SyncSources(ctx, t.Sources); err != nil {
		return fmt.Errorf("failed to sync sources to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSources",
		"sources", len(t.Sources),
		"duration", t.GetDuration())

	return nil
}
