package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/memo-comb/app/source"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	queueSize   = 300
	taskTimeout = 5 * time.Minute
	maxBackoff  = 30 * time.Second
)

type Scheduler struct {
	sources     []source.Descriptor
	byID        map[string]source.Descriptor
	store       SourceSyncer
	probes      map[source.Kind]ProbeFunc
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

// NewScheduler builds a worker pool over sources. interval 0 disables
// periodic probing; probes can still be enqueued on demand.
func NewScheduler(sources []source.Descriptor, store SourceSyncer, probes map[source.Kind]ProbeFunc,
	workerCount int, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	byID := make(map[string]source.Descriptor, len(sources))
	for _, desc := range sources {
		byID[desc.ID] = desc
	}

	return &Scheduler{
		sources:     sources,
		byID:        byID,
		store:       store,
		probes:      probes,
		interval:    interval,
		workerCount: max(workerCount, 1),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.store != nil {
			s.executeTask(-1, NewSyncSourcesTask(s.sources, s.store))
		}

		if s.interval <= 0 {
			slog.Debug("Periodic source probing disabled")
			return
		}

		s.enqueueProbes()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueProbes()
			}
		}
	}()
}

// Stop cancels running tasks and waits for the workers to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueProbe schedules an immediate probe of one configured source.
func (s *Scheduler) EnqueueProbe(sourceID string) error {
	desc, ok := s.byID[sourceID]
	if !ok {
		return fmt.Errorf("unknown source %q", sourceID)
	}

	probe, ok := s.probes[desc.Kind()]
	if !ok {
		return fmt.Errorf("no probe for %s sources", desc.Kind())
	}

	return s.EnqueueTask(NewProbeSourceTask(desc, probe))
}

func (s *Scheduler) enqueueProbes() {
	if len(s.sources) == 0 {
		slog.Debug("No sources configured")
		return
	}

	slog.Debug("Scheduling source probes", "count", len(s.sources))

	for _, desc := range s.sources {
		if err := s.EnqueueProbe(desc.ID); err != nil {
			slog.Warn("Failed to enqueue ProbeSourceTask", "source", desc.ID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(time.Duration(1<<uint(task.GetRetryCount()-1))*time.Second, maxBackoff)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(retryDelay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
