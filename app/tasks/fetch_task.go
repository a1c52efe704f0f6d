package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olamda/curator/app/pipeline"
)

// FetchTask runs one full ingestion cycle and reports the outcome to the
// admin.
type FetchTask struct {
	Task
	fetcher    *pipeline.Fetcher
	notifier   AdminNotifier
	resetUsage func()
	onReport   func(pipeline.FetchReport)
}

func NewFetchTask(fetcher *pipeline.Fetcher, notifier AdminNotifier, resetUsage func(), onReport func(pipeline.FetchReport), timeout time.Duration) *FetchTask {
	return &FetchTask{
		Task:       NewTask(TaskTypeFetch, timeout),
		fetcher:    fetcher,
		notifier:   notifier,
		resetUsage: resetUsage,
		onReport:   onReport,
	}
}

func (t *FetchTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.resetUsage != nil {
		t.resetUsage()
	}

	report, err := t.fetcher.Run(ctx)
	if err != nil {
		return fmt.Errorf("fetch cycle failed: %w", err)
	}

	if t.onReport != nil {
		t.onReport(report)
	}

	if t.notifier != nil {
		if err := t.notifier.NotifyFetchReport(ctx, report); err != nil {
			// The cycle itself succeeded, a lost notice is not a retry cause.
			slog.Warn("Fetch report notice failed", "error", err)
		}
	}

	slog.Info("Fetch task completed",
		"id", t.GetID(),
		"new", report.New,
		"duplicate", report.Duplicate,
		"remaining", report.Remaining,
		"duration", t.GetDuration().String())
	return nil
}
