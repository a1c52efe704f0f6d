package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olamda/curator/app/pipeline"
)

// PipelineTask advances every in-flight item one stage: classification,
// translation, then approval enqueueing.
type PipelineTask struct {
	Task
	classify  *pipeline.ClassifyStage
	translate *pipeline.TranslateStage
	approver  *pipeline.Approver
}

func NewPipelineTask(classify *pipeline.ClassifyStage, translate *pipeline.TranslateStage, approver *pipeline.Approver, timeout time.Duration) *PipelineTask {
	return &PipelineTask{
		Task:      NewTask(TaskTypePipeline, timeout),
		classify:  classify,
		translate: translate,
		approver:  approver,
	}
}

func (t *PipelineTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	classifyStats, err := t.classify.Run(ctx)
	if err != nil {
		return fmt.Errorf("classification pass failed: %w", err)
	}

	translateStats, err := t.translate.Run(ctx)
	if err != nil {
		return fmt.Errorf("translation pass failed: %w", err)
	}

	enqueued, err := t.approver.Enqueue(ctx)
	if err != nil {
		return fmt.Errorf("approval enqueue failed: %w", err)
	}

	if classifyStats.Accepted+classifyStats.Rejected+translateStats.Translated+enqueued > 0 {
		slog.Info("Pipeline task completed",
			"id", t.GetID(),
			"accepted", classifyStats.Accepted,
			"rejected", classifyStats.Rejected,
			"translated", translateStats.Translated,
			"enqueued", enqueued,
			"duration", t.GetDuration().String())
	}
	return nil
}
