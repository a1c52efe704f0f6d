package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olamda/curator/app/pipeline"
)

// PublishTask drains at most one batch from the approved queue, spacing
// posts by the configured gap.
type PublishTask struct {
	Task
	publisher *pipeline.Publisher
}

func NewPublishTask(publisher *pipeline.Publisher, timeout time.Duration) *PublishTask {
	return &PublishTask{
		Task:      NewTask(TaskTypePublish, timeout),
		publisher: publisher,
	}
}

func (t *PublishTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stats, err := t.publisher.Run(ctx)
	if err != nil {
		return fmt.Errorf("publish pass failed: %w", err)
	}

	if stats.Published > 0 || stats.Failed > 0 {
		slog.Info("Publish task completed",
			"id", t.GetID(),
			"published", stats.Published,
			"failed", stats.Failed,
			"duration", t.GetDuration().String())
	}
	return nil
}
