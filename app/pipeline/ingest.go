package pipeline

import (
	"context"
	"log/slog"

	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/sources"
)

// IngestStats accounts for one ingest pass.
type IngestStats struct {
	New       int
	Duplicate int
	Skipped   int
	Failed    int
	Remaining int
}

// Ingestor deduplicates candidates and inserts the survivors as fetched
// items, capped per cycle.
type Ingestor struct {
	repo          database.ItemRepository
	fingerprinter *Fingerprinter
	maxNewItems   int
}

func NewIngestor(repo database.ItemRepository, fingerprinter *Fingerprinter, maxNewItems int) *Ingestor {
	return &Ingestor{
		repo:          repo,
		fingerprinter: fingerprinter,
		maxNewItems:   maxNewItems,
	}
}

// Ingest inserts candidates until the per-cycle cap of new items is reached.
// Candidates past the cap are left untouched; the next fetch of the same
// sources picks them up again.
func (in *Ingestor) Ingest(ctx context.Context, candidates []sources.Candidate) (IngestStats, error) {
	var stats IngestStats

	for i, candidate := range candidates {
		if in.maxNewItems > 0 && stats.New >= in.maxNewItems {
			stats.Remaining = len(candidates) - i
			break
		}

		fingerprint, contentHash := in.fingerprinter.Fingerprint(candidate)

		state := database.StateFetched
		reason := ""
		if fingerprint != contentHash {
			// Same text arriving under a different URL is recorded as a
			// duplicate row so the collision stays visible in /status.
			exists, err := in.repo.ContentHashExists(ctx, contentHash)
			if err != nil {
				slog.Error("Content hash lookup failed", "url", candidate.URL, "error", err)
				stats.Failed++
				continue
			}
			if exists {
				state = database.StateRejectedDup
				reason = "duplicate content from different URL"
			}
		}

		// The channel is visual-first: a candidate without media never
		// publishes, so it is rejected before spending classifier calls.
		// The row still lands so the next fetch does not pick it up again.
		if state == database.StateFetched && candidate.MediaURL == "" {
			state = database.StateClassifiedReject
			reason = "no media"
		}

		item := database.Item{
			Fingerprint: fingerprint,
			ContentHash: contentHash,
			SourceName:  candidate.SourceName,
			SourceType:  candidate.SourceType,
			Title:       candidate.Title,
			RawText:     candidate.Body,
			RawURL:      candidate.URL,
			MediaURL:    candidate.MediaURL,
			MediaType:   candidate.MediaType,
			State:       state,
			Reason:      reason,
		}

		inserted, isNew, err := in.repo.InsertIfAbsent(ctx, item)
		if err != nil {
			slog.Error("Item insert failed", "url", candidate.URL, "error", err)
			stats.Failed++
			continue
		}

		switch {
		case !isNew:
			stats.Duplicate++
		case state == database.StateRejectedDup:
			stats.Duplicate++
		case state == database.StateClassifiedReject:
			stats.Skipped++
			slog.Debug("Candidate skipped", "source", candidate.SourceName, "title", candidate.Title, "reason", reason)
		default:
			stats.New++
			slog.Debug("Item ingested", "id", inserted.ID, "source", candidate.SourceName, "title", candidate.Title)
		}
	}

	return stats, nil
}
