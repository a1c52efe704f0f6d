package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/olamda/curator/app/ai"
	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/pipeline"
	"github.com/olamda/curator/app/sources"
)

func TestTaskRetryBookkeeping(t *testing.T) {
	task := NewTask(TaskTypeFetch, 0)

	if task.GetTimeout() != DefaultTaskTimeout {
		t.Errorf("timeout = %v, want default", task.GetTimeout())
	}
	if !task.CanRetry() {
		t.Error("fresh task must be retryable")
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("task at max retries must not be retryable")
	}
	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("retry count = %d, want %d", task.GetRetryCount(), DefaultMaxRetries)
	}
}

func TestTaskIDsUnique(t *testing.T) {
	a := NewTask(TaskTypePublish, 0)
	b := NewTask(TaskTypePublish, 0)
	if a.GetID() == b.GetID() {
		t.Error("task ids must differ")
	}
}

type stubTask struct {
	Task
	mu   sync.Mutex
	runs int
	err  error
}

func (s *stubTask) Execute(ctx context.Context) error {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	return s.err
}

func (s *stubTask) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	repo := database.NewItemRepository(db)

	return NewScheduler(repo, nil, nil, nil, nil, nil, nil, nil, time.Hour, time.Minute)
}

func TestEnqueueSerializesPerKind(t *testing.T) {
	s := newTestScheduler(t)

	first := &stubTask{Task: NewTask(TaskTypePublish, time.Second)}
	second := &stubTask{Task: NewTask(TaskTypePublish, time.Second)}
	other := &stubTask{Task: NewTask(TaskTypePipeline, time.Second)}

	s.enqueue(first)
	s.enqueue(second)
	s.enqueue(other)

	if got := len(s.taskQueue); got != 2 {
		t.Errorf("queued tasks = %d, want 2 (duplicate kind dropped)", got)
	}
}

func TestExecuteTaskReleasesKind(t *testing.T) {
	s := newTestScheduler(t)

	task := &stubTask{Task: NewTask(TaskTypePublish, time.Second)}
	s.enqueue(task)
	<-s.taskQueue
	s.executeTask(0, task)

	if task.runCount() != 1 {
		t.Errorf("runs = %d, want 1", task.runCount())
	}

	// The kind must be free again.
	next := &stubTask{Task: NewTask(TaskTypePublish, time.Second)}
	s.enqueue(next)
	if got := len(s.taskQueue); got != 1 {
		t.Errorf("queued tasks = %d, want 1 after release", got)
	}
}

type tasksFakeConnector struct {
	candidates []sources.Candidate
}

func (f *tasksFakeConnector) Name() string { return "fake" }

func (f *tasksFakeConnector) Fetch(ctx context.Context) ([]sources.Candidate, error) {
	return f.candidates, nil
}

type tasksFakeNotifier struct {
	mu      sync.Mutex
	reports int
}

func (f *tasksFakeNotifier) NotifyAdmin(ctx context.Context, text string) error { return nil }

func (f *tasksFakeNotifier) NotifyFetchReport(ctx context.Context, report pipeline.FetchReport) error {
	f.mu.Lock()
	f.reports++
	f.mu.Unlock()
	return nil
}

func (f *tasksFakeNotifier) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports
}

type tasksFakeAI struct{}

func (tasksFakeAI) Classify(ctx context.Context, req ai.ClassifyRequest) (ai.Classification, error) {
	return ai.Classification{Accept: true, Confidence: 0.9, Reason: "ok"}, nil
}

func (tasksFakeAI) Translate(ctx context.Context, req ai.TranslateRequest) (string, error) {
	return "translated post", nil
}

func TestSchedulerRunsStartupFetch(t *testing.T) {
	db, err := database.NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	repo := database.NewItemRepository(db)

	connector := &tasksFakeConnector{candidates: []sources.Candidate{{
		SourceName: "fake",
		SourceType: "rss",
		Title:      "Story",
		Body:       "Body",
		URL:        "https://example.com/story",
		MediaURL:   "https://example.com/story.jpg",
		MediaType:  "image",
	}}}

	ingestor := pipeline.NewIngestor(repo, pipeline.NewFingerprinter(pipeline.StrategyAuto), 10)
	fetcher := pipeline.NewFetcher([]sources.Connector{connector}, nil, ingestor)
	notifier := &tasksFakeNotifier{}

	fake := tasksFakeAI{}
	s := NewScheduler(repo,
		fetcher,
		pipeline.NewClassifyStage(repo, fake, 0.5, 3),
		pipeline.NewTranslateStage(repo, fake, 3),
		pipeline.NewApprover(repo, nil, 3),
		nil,
		notifier, nil, time.Hour, time.Minute)

	s.Start()
	defer s.Stop()

	deadline := time.After(5 * time.Second)
	for {
		counts, err := repo.CountsByState(context.Background())
		if err != nil {
			t.Fatalf("CountsByState failed: %v", err)
		}
		if counts[database.StateFetched] == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("startup fetch never ingested the candidate, counts: %v", counts)
		case <-time.After(20 * time.Millisecond):
		}
	}

	for notifier.reportCount() != 1 {
		select {
		case <-deadline:
			t.Fatalf("fetch reports = %d, want 1", notifier.reportCount())
		case <-time.After(20 * time.Millisecond):
		}
	}
}
