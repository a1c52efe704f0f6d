package pipeline

import (
	"fmt"
	"testing"

	"github.com/olamda/curator/app/ai"
	"github.com/olamda/curator/app/database"
	"github.com/olamda/curator/app/sources"
)

func candidateN(n int) sources.Candidate {
	return sources.Candidate{
		SourceName: "wire",
		SourceType: "rss",
		Title:      fmt.Sprintf("Story %d", n),
		Body:       fmt.Sprintf("Body of story %d", n),
		URL:        fmt.Sprintf("https://example.com/story/%d", n),
		MediaURL:   fmt.Sprintf("https://example.com/story/%d.jpg", n),
		MediaType:  "image",
	}
}

func TestIngestCapsNewItems(t *testing.T) {
	repo := newTestRepo(t)
	ingestor := NewIngestor(repo, NewFingerprinter(StrategyAuto), 10)

	candidates := make([]sources.Candidate, 15)
	for i := range candidates {
		candidates[i] = candidateN(i)
	}

	stats, err := ingestor.Ingest(t.Context(), candidates)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if stats.New != 10 {
		t.Errorf("New = %d, want 10", stats.New)
	}
	if stats.Remaining != 5 {
		t.Errorf("Remaining = %d, want 5", stats.Remaining)
	}

	counts, err := repo.CountsByState(t.Context())
	if err != nil {
		t.Fatalf("CountsByState failed: %v", err)
	}
	if counts[database.StateFetched] != 10 {
		t.Errorf("fetched rows = %d, want 10", counts[database.StateFetched])
	}
}

func TestIngestDuplicateFingerprintIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	ingestor := NewIngestor(repo, NewFingerprinter(StrategyAuto), 10)

	first, err := ingestor.Ingest(t.Context(), []sources.Candidate{candidateN(1)})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if first.New != 1 {
		t.Fatalf("New = %d, want 1", first.New)
	}

	// Same story again, with tracking params this time.
	again := candidateN(1)
	again.URL += "?utm_source=feed"
	second, err := ingestor.Ingest(t.Context(), []sources.Candidate{again})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if second.New != 0 || second.Duplicate != 1 {
		t.Errorf("stats = %+v, want one duplicate", second)
	}

	counts, _ := repo.CountsByState(t.Context())
	if total := counts[database.StateFetched] + counts[database.StateRejectedDup]; total != 1 {
		t.Errorf("rows = %d, want 1", total)
	}
}

func TestIngestRejectsCandidatesWithoutMedia(t *testing.T) {
	repo := newTestRepo(t)
	ingestor := NewIngestor(repo, NewFingerprinter(StrategyAuto), 10)

	textOnly := candidateN(1)
	textOnly.MediaURL = ""
	withMedia := candidateN(2)

	stats, err := ingestor.Ingest(t.Context(), []sources.Candidate{textOnly, withMedia})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if stats.New != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want one new and one skipped", stats)
	}

	stored, err := repo.GetByFingerprint(t.Context(), NormalizeURL(textOnly.URL))
	if err != nil {
		t.Fatalf("GetByFingerprint failed: %v", err)
	}
	if stored.State != database.StateClassifiedReject {
		t.Errorf("state = %s, want classified_reject", stored.State)
	}
	if stored.Reason != "no media" {
		t.Errorf("reason = %q, want %q", stored.Reason, "no media")
	}

	// The rejection happens before any model call: a classification pass
	// only touches the candidate that carries media.
	classifier := &fakeClassifier{verdict: ai.Classification{Accept: true, Confidence: 0.9, Reason: "ok"}}
	if _, err := NewClassifyStage(repo, classifier, 0.5, 3).Run(t.Context()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if classifier.calls != 1 {
		t.Errorf("classifier calls = %d, want 1", classifier.calls)
	}
	mustState(t, repo, stored.ID, database.StateClassifiedReject)

	// Seen on a later fetch, the same story counts as a duplicate.
	again, err := ingestor.Ingest(t.Context(), []sources.Candidate{textOnly})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if again.Duplicate != 1 || again.Skipped != 0 {
		t.Errorf("stats = %+v, want one duplicate", again)
	}
}

func TestIngestContentCollisionRecordedAsRejectedDup(t *testing.T) {
	repo := newTestRepo(t)
	ingestor := NewIngestor(repo, NewFingerprinter(StrategyAuto), 10)

	original := candidateN(1)
	if _, err := ingestor.Ingest(t.Context(), []sources.Candidate{original}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	// Same text republished under a different URL.
	mirror := original
	mirror.URL = "https://mirror.example.org/reposted/1"
	stats, err := ingestor.Ingest(t.Context(), []sources.Candidate{mirror})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if stats.Duplicate != 1 || stats.New != 0 {
		t.Errorf("stats = %+v, want one duplicate", stats)
	}

	counts, _ := repo.CountsByState(t.Context())
	if counts[database.StateRejectedDup] != 1 {
		t.Errorf("rejected_dup rows = %d, want 1", counts[database.StateRejectedDup])
	}
	if counts[database.StateFetched] != 1 {
		t.Errorf("fetched rows = %d, want 1", counts[database.StateFetched])
	}
}
