package pipeline

import (
	"context"
	"log/slog"

	"github.com/olamda/curator/app/sources"
)

// minBodyRunes is the threshold below which an RSS summary is considered
// too thin and the full article page is fetched.
const minBodyRunes = 300

// FetchReport summarizes one full fetch cycle for the admin notice.
type FetchReport struct {
	PerSource    map[string]int
	SourceErrors map[string]string
	IngestStats
}

// Fetcher runs one ingestion cycle: every connector independently, batches
// interleaved, thin summaries enriched, then capped ingest.
type Fetcher struct {
	connectors []sources.Connector
	enricher   ContentEnricher
	ingestor   *Ingestor
}

func NewFetcher(connectors []sources.Connector, enricher ContentEnricher, ingestor *Ingestor) *Fetcher {
	return &Fetcher{
		connectors: connectors,
		enricher:   enricher,
		ingestor:   ingestor,
	}
}

func (f *Fetcher) Run(ctx context.Context) (FetchReport, error) {
	report := FetchReport{
		PerSource:    make(map[string]int),
		SourceErrors: make(map[string]string),
	}

	var batches [][]sources.Candidate
	for _, connector := range f.connectors {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		candidates, err := connector.Fetch(ctx)
		if err != nil {
			// One broken source never blocks the rest.
			slog.Error("Source fetch failed", "source", connector.Name(), "error", err)
			report.SourceErrors[connector.Name()] = err.Error()
			continue
		}

		report.PerSource[connector.Name()] = len(candidates)
		batches = append(batches, candidates)
		slog.Info("Source fetched", "source", connector.Name(), "candidates", len(candidates))
	}

	merged := sources.Interleave(batches)
	for i := range merged {
		f.enrich(ctx, &merged[i])
	}

	stats, err := f.ingestor.Ingest(ctx, merged)
	if err != nil {
		return report, err
	}
	report.IngestStats = stats

	slog.Info("Fetch cycle completed",
		"sources", len(f.connectors),
		"candidates", len(merged),
		"new", stats.New,
		"duplicate", stats.Duplicate,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"remaining", stats.Remaining)
	return report, nil
}

// enrich replaces a thin RSS summary with the extracted article body.
// Extraction failure keeps the summary.
func (f *Fetcher) enrich(ctx context.Context, candidate *sources.Candidate) {
	if f.enricher == nil || candidate.SourceType != "rss" || candidate.URL == "" {
		return
	}
	if len([]rune(candidate.Body)) >= minBodyRunes {
		return
	}

	text, err := f.enricher.ExtractFromURL(ctx, candidate.URL)
	if err != nil {
		slog.Debug("Content extraction failed, keeping summary", "url", candidate.URL, "error", err)
		return
	}
	candidate.Body = text
}
