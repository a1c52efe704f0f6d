package tasks

import (
	"context"

	"github.com/olamda/curator/app/pipeline"
)

// TaskSchedulerInterface is what the rest of the application sees of the
// scheduler: lifecycle control plus the manual fetch trigger used by the
// bot and the HTTP API.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	TriggerFetch()
}

// AdminNotifier delivers cycle summaries and error notices to the admin.
type AdminNotifier interface {
	NotifyAdmin(ctx context.Context, text string) error
	NotifyFetchReport(ctx context.Context, report pipeline.FetchReport) error
}
