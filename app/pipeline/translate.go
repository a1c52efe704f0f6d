package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olamda/curator/app/ai"
	"github.com/olamda/curator/app/database"
)

const translateBatchLimit = 50

// TranslateStats accounts for one translation pass.
type TranslateStats struct {
	Translated int
	Failed     int
	Deferred   int
}

// TranslateStage moves classified_accept items to translated. Permanent
// failures and exhausted retries end up in publish_failed so nothing half
// done reaches the approval queue.
type TranslateStage struct {
	repo        database.ItemRepository
	translator  Translator
	maxFailures int
}

func NewTranslateStage(repo database.ItemRepository, translator Translator, maxFailures int) *TranslateStage {
	return &TranslateStage{
		repo:        repo,
		translator:  translator,
		maxFailures: maxFailures,
	}
}

func (s *TranslateStage) Run(ctx context.Context) (TranslateStats, error) {
	var stats TranslateStats

	items, err := s.repo.ListByState(ctx, database.StateClassifiedAccept, translateBatchLimit)
	if err != nil {
		return stats, fmt.Errorf("failed to list accepted items: %w", err)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		text, err := s.translator.Translate(ctx, ai.TranslateRequest{
			Title:      item.Title,
			Content:    item.RawText,
			SourceURL:  item.RawURL,
			SourceName: item.SourceName,
			MediaType:  item.MediaType,
		})
		if err != nil {
			if s.handleFailure(ctx, item, err) {
				stats.Failed++
			} else {
				stats.Deferred++
			}
			continue
		}

		if _, err := s.repo.Transition(ctx, item.ID, database.StateClassifiedAccept, database.StateTranslated, database.Updates{
			TranslatedText: &text,
			ResetFailures:  true,
		}); err != nil {
			slog.Error("Translation transition failed", "id", item.ID, "error", err)
			continue
		}

		stats.Translated++
		slog.Info("Item translated", "id", item.ID, "length", len(text))
	}

	return stats, nil
}

func (s *TranslateStage) handleFailure(ctx context.Context, item database.Item, cause error) bool {
	if !isRetryable(cause) {
		reason := fmt.Sprintf("translation error: %v", cause)
		if _, err := s.repo.Transition(ctx, item.ID, database.StateClassifiedAccept, database.StatePublishFailed, database.Updates{
			Reason: &reason,
		}); err != nil {
			slog.Error("Failure transition failed", "id", item.ID, "error", err)
		}
		slog.Warn("Item dropped on permanent translation error", "id", item.ID, "error", cause)
		return true
	}

	count, err := s.repo.IncrementFailureCount(ctx, item.ID)
	if err != nil {
		slog.Error("Failure count update failed", "id", item.ID, "error", err)
		return false
	}

	if count >= s.maxFailures {
		reason := fmt.Sprintf("translation failed %d times: %v", count, cause)
		if _, err := s.repo.Transition(ctx, item.ID, database.StateClassifiedAccept, database.StatePublishFailed, database.Updates{
			Reason: &reason,
		}); err != nil {
			slog.Error("Failure transition failed", "id", item.ID, "error", err)
			return false
		}
		slog.Warn("Item dropped after repeated translation failures", "id", item.ID, "failures", count)
		return true
	}

	slog.Warn("Translation deferred", "id", item.ID, "failures", count, "error", cause)
	return false
}
