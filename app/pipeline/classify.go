package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olamda/curator/app/ai"
	"github.com/olamda/curator/app/database"
)

// classifyBatchLimit bounds how many fetched items one pass touches.
const classifyBatchLimit = 50

// ClassifyStats accounts for one classification pass.
type ClassifyStats struct {
	Accepted int
	Rejected int
	Deferred int
}

// ClassifyStage moves fetched items to classified_accept or
// classified_reject based on the model verdict and the confidence
// threshold.
type ClassifyStage struct {
	repo        database.ItemRepository
	classifier  Classifier
	threshold   float64
	maxFailures int
}

func NewClassifyStage(repo database.ItemRepository, classifier Classifier, threshold float64, maxFailures int) *ClassifyStage {
	return &ClassifyStage{
		repo:        repo,
		classifier:  classifier,
		threshold:   threshold,
		maxFailures: maxFailures,
	}
}

func (s *ClassifyStage) Run(ctx context.Context) (ClassifyStats, error) {
	var stats ClassifyStats

	items, err := s.repo.ListByState(ctx, database.StateFetched, classifyBatchLimit)
	if err != nil {
		return stats, fmt.Errorf("failed to list fetched items: %w", err)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		verdict, err := s.classifier.Classify(ctx, ai.ClassifyRequest{
			Title:      item.Title,
			Content:    item.RawText,
			MediaURL:   item.MediaURL,
			SourceType: item.SourceType,
		})
		if err != nil {
			if s.handleFailure(ctx, item, err) {
				stats.Rejected++
			} else {
				stats.Deferred++
			}
			continue
		}

		accept := verdict.Accept && verdict.Confidence >= s.threshold
		reason := verdict.Reason
		if verdict.Accept && !accept {
			reason = fmt.Sprintf("confidence %.2f below threshold %.2f", verdict.Confidence, s.threshold)
		}

		next := database.StateClassifiedReject
		if accept {
			next = database.StateClassifiedAccept
		}

		if _, err := s.repo.Transition(ctx, item.ID, database.StateFetched, next, database.Updates{
			Confidence:    &verdict.Confidence,
			Reason:        &reason,
			ResetFailures: true,
		}); err != nil {
			slog.Error("Classification transition failed", "id", item.ID, "error", err)
			continue
		}

		if accept {
			stats.Accepted++
		} else {
			stats.Rejected++
		}
		slog.Info("Item classified",
			"id", item.ID,
			"accept", accept,
			"confidence", verdict.Confidence,
			"reason", reason)
	}

	return stats, nil
}

// handleFailure applies the bounded retry policy. Returns true when the
// item was terminally rejected.
func (s *ClassifyStage) handleFailure(ctx context.Context, item database.Item, cause error) bool {
	if !isRetryable(cause) {
		reason := fmt.Sprintf("classification error: %v", cause)
		if _, err := s.repo.Transition(ctx, item.ID, database.StateFetched, database.StateClassifiedReject, database.Updates{
			Reason: &reason,
		}); err != nil {
			slog.Error("Reject transition failed", "id", item.ID, "error", err)
		}
		slog.Warn("Item rejected on permanent classification error", "id", item.ID, "error", cause)
		return true
	}

	count, err := s.repo.IncrementFailureCount(ctx, item.ID)
	if err != nil {
		slog.Error("Failure count update failed", "id", item.ID, "error", err)
		return false
	}

	if count >= s.maxFailures {
		reason := fmt.Sprintf("classification failed %d times: %v", count, cause)
		if _, err := s.repo.Transition(ctx, item.ID, database.StateFetched, database.StateClassifiedReject, database.Updates{
			Reason: &reason,
		}); err != nil {
			slog.Error("Reject transition failed", "id", item.ID, "error", err)
			return false
		}
		slog.Warn("Item rejected after repeated classification failures", "id", item.ID, "failures", count)
		return true
	}

	slog.Warn("Classification deferred", "id", item.ID, "failures", count, "error", cause)
	return false
}
