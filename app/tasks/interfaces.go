package tasks

import (
	"context"

	"github.com/lysyi3m/memo-comb/app/source"
)

// TaskSchedulerInterface is the control surface of the background worker pool.
//
//	scheduler := NewScheduler(sources, store, probes, workerCount, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueProbe("m.example.com-1")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueProbe(sourceID string) error
}

// SourceSyncer mirrors the configured sources into the status store.
type SourceSyncer interface {
	SyncSources(ctx context.Context, sources []source.Descriptor) error
}

// ProbeFunc performs one fetch cycle for a single source.
type ProbeFunc func(ctx context.Context, desc source.Descriptor) error
