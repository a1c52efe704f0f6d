package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olamda/curator/app/database"
)

// PublishStats accounts for one publish pass.
type PublishStats struct {
	Published int
	Failed    int
	// GapBlocked is set when the minimum spacing since the last published
	// post has not elapsed yet.
	GapBlocked bool
}

// Publisher drains the approved queue into the channel, oldest decision
// first, never faster than the configured gap.
type Publisher struct {
	repo      database.ItemRepository
	transport ChannelPublisher
	gap       time.Duration
	maxPerRun int
	now       func() time.Time
}

func NewPublisher(repo database.ItemRepository, transport ChannelPublisher, gap time.Duration, maxPerRun int) *Publisher {
	return &Publisher{
		repo:      repo,
		transport: transport,
		gap:       gap,
		maxPerRun: maxPerRun,
		now:       time.Now,
	}
}

func (p *Publisher) Run(ctx context.Context) (PublishStats, error) {
	var stats PublishStats

	last, err := p.repo.LastPublishedAt(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read last publish time: %w", err)
	}
	if last != nil && p.now().Sub(*last) < p.gap {
		stats.GapBlocked = true
		slog.Debug("Publish gap not elapsed", "last", last, "gap", p.gap)
		return stats, nil
	}

	items, err := p.repo.NextApproved(ctx, p.maxPerRun)
	if err != nil {
		return stats, fmt.Errorf("failed to list approved items: %w", err)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		messageID, err := p.transport.PublishItem(ctx, item)
		if err != nil {
			if isRetryable(err) {
				// Leave it approved for the next cycle; no mid-cycle retry.
				slog.Warn("Publish deferred", "id", item.ID, "error", err)
				break
			}

			reason := fmt.Sprintf("publish error: %v", err)
			if _, terr := p.repo.Transition(ctx, item.ID, database.StateApproved, database.StatePublishFailed, database.Updates{
				Reason: &reason,
			}); terr != nil {
				slog.Error("Failure transition failed", "id", item.ID, "error", terr)
			}
			stats.Failed++
			slog.Error("Item publish failed permanently", "id", item.ID, "error", err)
			continue
		}

		publishedAt := p.now().UTC()
		if _, err := p.repo.Transition(ctx, item.ID, database.StateApproved, database.StatePublished, database.Updates{
			PublishedAt:        &publishedAt,
			PublishedMessageID: &messageID,
		}); err != nil {
			slog.Error("Publish transition failed", "id", item.ID, "error", err)
			continue
		}

		stats.Published++
		slog.Info("Item published", "id", item.ID, "message_id", messageID)
	}

	return stats, nil
}
