package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olamda/curator/app/database"
)

const approvalBatchLimit = 50

// Decision is an admin verdict on a pending item.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// DecisionResult reports the outcome of recording a decision.
type DecisionResult struct {
	Item *database.Item
	// AlreadyDecided is set when a decision existed before this call; the
	// stored item reflects the first decision.
	AlreadyDecided bool
}

// Approver owns the human review queue: it enqueues translated items for
// approval and records admin decisions exactly once.
type Approver struct {
	repo        database.ItemRepository
	notifier    ApprovalNotifier
	maxFailures int
}

func NewApprover(repo database.ItemRepository, notifier ApprovalNotifier, maxFailures int) *Approver {
	return &Approver{
		repo:        repo,
		notifier:    notifier,
		maxFailures: maxFailures,
	}
}

// Enqueue sends approval requests for translated items and marks them
// pending_approval. The transition happens only after the request is
// delivered so a crashed send is retried next pass.
func (a *Approver) Enqueue(ctx context.Context) (int, error) {
	items, err := a.repo.ListByState(ctx, database.StateTranslated, approvalBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list translated items: %w", err)
	}

	enqueued := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return enqueued, ctx.Err()
		}

		if err := a.notifier.SendApprovalRequest(ctx, item); err != nil {
			a.handleSendFailure(ctx, item, err)
			continue
		}

		if _, err := a.repo.Transition(ctx, item.ID, database.StateTranslated, database.StatePendingApproval, database.Updates{
			ResetFailures: true,
		}); err != nil {
			slog.Error("Enqueue transition failed", "id", item.ID, "error", err)
			continue
		}

		enqueued++
		slog.Info("Item enqueued for approval", "id", item.ID, "title", item.Title)
	}

	return enqueued, nil
}

func (a *Approver) handleSendFailure(ctx context.Context, item database.Item, cause error) {
	if isRetryable(cause) {
		count, err := a.repo.IncrementFailureCount(ctx, item.ID)
		if err != nil {
			slog.Error("Failure count update failed", "id", item.ID, "error", err)
			return
		}
		if count < a.maxFailures {
			slog.Warn("Approval request deferred", "id", item.ID, "failures", count, "error", cause)
			return
		}
		cause = fmt.Errorf("approval request failed %d times: %w", count, cause)
	}

	reason := cause.Error()
	if _, err := a.repo.Transition(ctx, item.ID, database.StateTranslated, database.StatePublishFailed, database.Updates{
		Reason: &reason,
	}); err != nil {
		slog.Error("Failure transition failed", "id", item.ID, "error", err)
		return
	}
	slog.Warn("Item dropped, approval request undeliverable", "id", item.ID, "error", cause)
}

// RecordDecision applies an admin decision to a pending item. The first
// decision wins; any later decision returns the item as already decided.
func (a *Approver) RecordDecision(ctx context.Context, id int64, decision Decision, adminID int64) (DecisionResult, error) {
	item, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return DecisionResult{}, err
	}

	if item.Decided() {
		return DecisionResult{Item: item, AlreadyDecided: true}, nil
	}

	next := database.StateRejectedAdmin
	if decision == DecisionApprove {
		next = database.StateApproved
	}

	now := time.Now().UTC()
	updated, err := a.repo.Transition(ctx, id, database.StatePendingApproval, next, database.Updates{
		DecidedBy: &adminID,
		DecidedAt: &now,
	})
	if err != nil {
		if errors.Is(err, database.ErrStateConflict) {
			// Raced with another decision; report what won.
			current, getErr := a.repo.GetByID(ctx, id)
			if getErr != nil {
				return DecisionResult{}, getErr
			}
			if current.Decided() {
				return DecisionResult{Item: current, AlreadyDecided: true}, nil
			}
		}
		return DecisionResult{}, err
	}

	slog.Info("Decision recorded", "id", id, "decision", decision, "admin", adminID)
	return DecisionResult{Item: updated}, nil
}

// PendingItems lists items awaiting a decision, for /resend.
func (a *Approver) PendingItems(ctx context.Context) ([]database.Item, error) {
	return a.repo.ListByState(ctx, database.StatePendingApproval, approvalBatchLimit)
}
