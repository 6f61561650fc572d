package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/memo-comb/app/aggregate"
	"github.com/lysyi3m/memo-comb/app/source"
)

type ProbeSourceTask struct {
	Task
	Source source.Descriptor
	probe  ProbeFunc
}

func NewProbeSourceTask(desc source.Descriptor, probe ProbeFunc) *ProbeSourceTask {
	return &ProbeSourceTask{
		Task:   NewTask(TaskTypeProbeSource, desc.ID),
		Source: desc,
		probe:  probe,
	}
}

func (t *ProbeSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.probe(ctx, t.Source); err != nil {
		return fmt.Errorf("failed to probe source: %w", err)
	}

	slog.Info("Task completed",
		"type", "ProbeSource",
		"source", t.SourceID,
		"duration", t.GetDuration())

	return nil
}

// RunnerProbe adapts a pipeline runner into a ProbeFunc. The runner's status
// recorder stores the outcome; the returned error only drives retries.
func RunnerProbe[T aggregate.Item](runner *aggregate.Runner[T]) ProbeFunc {
	return func(ctx context.Context, desc source.Descriptor) error {
		result, err := runner.Run(ctx, []source.Descriptor{desc})
		if result != nil && len(result.Failures) > 0 {
			return result.Failures[0].Err
		}
		if err != nil && !errors.Is(err, aggregate.ErrNoSources) {
			return err
		}
		return nil
	}
}
