package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/pipeline"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	tickInterval = time.Minute
	workerCount  = 2
	queueSize    = 32
)

// Scheduler drives the periodic work: fetch cycles on their interval,
// pipeline passes and publish attempts every tick. One task per kind runs
// at a time, so a manual /fetch cannot race the scheduled one.
type Scheduler struct {
	repo       database.ItemRepository
	fetcher    *pipeline.Fetcher
	classify   *pipeline.ClassifyStage
	translate  *pipeline.TranslateStage
	approver   *pipeline.Approver
	publisher  *pipeline.Publisher
	notifier   AdminNotifier
	resetUsage func()

	fetchInterval time.Duration
	cycleDeadline time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface

	mu            sync.Mutex
	inProgress    map[TaskType]bool
	lastFetchAt   time.Time
	lastRemaining int
}

func NewScheduler(repo database.ItemRepository, fetcher *pipeline.Fetcher,
	classify *pipeline.ClassifyStage, translate *pipeline.TranslateStage,
	approver *pipeline.Approver, publisher *pipeline.Publisher,
	notifier AdminNotifier, resetUsage func(),
	fetchInterval, cycleDeadline time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		repo:          repo,
		fetcher:       fetcher,
		classify:      classify,
		translate:     translate,
		approver:      approver,
		publisher:     publisher,
		notifier:      notifier,
		resetUsage:    resetUsage,
		fetchInterval: fetchInterval,
		cycleDeadline: cycleDeadline,
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, queueSize),
		inProgress:    make(map[TaskType]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		// First cycle right away so a restart does not wait a full interval.
		s.enqueueFetch()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()

	slog.Info("Scheduler started",
		"fetch_interval", s.fetchInterval.String(),
		"workers", workerCount)
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
	slog.Info("Scheduler stopped")
}

// TriggerFetch requests an immediate fetch cycle. A cycle already in
// progress absorbs the request.
func (s *Scheduler) TriggerFetch() {
	s.enqueueFetch()
}

func (s *Scheduler) tick() {
	if s.fetchDue() {
		s.enqueueFetch()
	}

	s.enqueue(NewPipelineTask(s.classify, s.translate, s.approver, s.cycleDeadline))
	s.enqueue(NewPublishTask(s.publisher, DefaultTaskTimeout))
}

// fetchDue reports whether a scheduled fetch should start: either the
// interval elapsed, or the previous cycle left deferred candidates and the
// approval queue has drained.
func (s *Scheduler) fetchDue() bool {
	s.mu.Lock()
	lastFetchAt := s.lastFetchAt
	remaining := s.lastRemaining
	s.mu.Unlock()

	if time.Since(lastFetchAt) >= s.fetchInterval {
		return true
	}

	if remaining > 0 {
		counts, err := s.repo.CountsByState(s.ctx)
		if err != nil {
			slog.Warn("State counts query failed", "error", err)
			return false
		}
		if counts[database.StatePendingApproval] == 0 {
			slog.Info("Approval queue drained with candidates deferred, fetching early", "remaining", remaining)
			return true
		}
	}

	return false
}

func (s *Scheduler) enqueueFetch() {
	task := NewFetchTask(s.fetcher, s.notifier, s.resetUsage, s.recordFetchReport, s.cycleDeadline)
	s.enqueue(task)
}

func (s *Scheduler) recordFetchReport(report pipeline.FetchReport) {
	s.mu.Lock()
	s.lastFetchAt = time.Now()
	s.lastRemaining = report.Remaining
	s.mu.Unlock()
}

// enqueue adds a task unless one of its kind is already queued or running.
func (s *Scheduler) enqueue(task TaskInterface) {
	s.mu.Lock()
	if s.inProgress[task.GetType()] {
		s.mu.Unlock()
		slog.Debug("Task of this kind already in progress, skipping", "type", string(task.GetType()))
		return
	}
	s.inProgress[task.GetType()] = true
	s.mu.Unlock()

	if err := s.push(task); err != nil {
		s.release(task.GetType())
		slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "error", err)
	}
}

func (s *Scheduler) push(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) release(taskType TaskType) {
	s.mu.Lock()
	delete(s.inProgress, taskType)
	s.mu.Unlock()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

// executeTask runs one task. The in-progress flag for the task's kind was
// set at enqueue time; it is released here on success or terminal failure,
// and held across the retry delay otherwise.
func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, task.GetTimeout())
	err := task.Execute(taskCtx)
	cancel()

	if err == nil {
		s.release(task.GetType())
		return
	}

	slog.Error("Worker task execution failed",
		"worker_id", workerID,
		"type", string(task.GetType()),
		"id", task.GetID(),
		"retry_count", task.GetRetryCount(),
		"error", err)

	if !task.CanRetry() {
		s.release(task.GetType())
		slog.Error("Task failed after maximum retries",
			"type", string(task.GetType()),
			"id", task.GetID(),
			"retry_count", task.GetRetryCount(),
			"max_retries", task.GetMaxRetries(),
			"last_error", err)
		if s.notifier != nil {
			notifyCtx, notifyCancel := context.WithTimeout(s.ctx, 10*time.Second)
			if nerr := s.notifier.NotifyAdmin(notifyCtx, fmt.Sprintf("Task %s failed after %d retries: %v", task.GetType(), task.GetRetryCount(), err)); nerr != nil {
				slog.Warn("Failure notice undeliverable", "error", nerr)
			}
			notifyCancel()
		}
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled",
		"type", string(task.GetType()),
		"retry_count", task.GetRetryCount(),
		"max_retries", task.GetMaxRetries(),
		"delay", retryDelay.String())

	// The in-progress flag stays held through the delay so the next tick
	// does not start a competing task of the same kind.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-s.ctx.Done():
			s.release(task.GetType())
			return
		case <-time.After(retryDelay):
		}
		if err := s.push(task); err != nil {
			s.release(task.GetType())
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "error", err)
		}
	}()
}
