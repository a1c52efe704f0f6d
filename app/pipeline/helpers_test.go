package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/olamda/curator/app/ai"
	"github.com/olamda/curator/app/database"
)

func newTestRepo(t *testing.T) *database.ItemRepo {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return database.NewItemRepository(db)
}

func insertItem(t *testing.T, repo *database.ItemRepo, state database.State, n int) *database.Item {
	t.Helper()

	item, isNew, err := repo.InsertIfAbsent(context.Background(), database.Item{
		Fingerprint: fmt.Sprintf("fp-%s-%d", state, n),
		ContentHash: fmt.Sprintf("hash-%s-%d", state, n),
		SourceName:  "test-source",
		SourceType:  "rss",
		Title:       fmt.Sprintf("Title %d", n),
		RawText:     "Body text",
		RawURL:      fmt.Sprintf("https://example.com/%s/%d", state, n),
		MediaType:   "image",
		State:       state,
	})
	if err != nil {
		t.Fatalf("Failed to insert test item: %v", err)
	}
	if !isNew {
		t.Fatalf("Test item fp-%s-%d already existed", state, n)
	}
	return item
}

func mustState(t *testing.T, repo *database.ItemRepo, id int64, expected database.State) *database.Item {
	t.Helper()

	item, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.State != expected {
		t.Fatalf("item %d: state = %s, want %s", id, item.State, expected)
	}
	return item
}

type fakeClassifier struct {
	verdict ai.Classification
	err     error
	calls   int
}

func (f *fakeClassifier) Classify(ctx context.Context, req ai.ClassifyRequest) (ai.Classification, error) {
	f.calls++
	return f.verdict, f.err
}

type fakeTranslator struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranslator) Translate(ctx context.Context, req ai.TranslateRequest) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeNotifier struct {
	err  error
	sent []int64
}

func (f *fakeNotifier) SendApprovalRequest(ctx context.Context, item database.Item) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, item.ID)
	return nil
}

type fakePublisher struct {
	err           error
	nextMessageID int64
	published     []int64
}

func (f *fakePublisher) PublishItem(ctx context.Context, item database.Item) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextMessageID++
	f.published = append(f.published, item.ID)
	return f.nextMessageID, nil
}

// retryableErr implements the Temporary convention used by the transport.
type retryableErr struct{ msg string }

func (e *retryableErr) Error() string   { return e.msg }
func (e *retryableErr) Temporary() bool { return true }
