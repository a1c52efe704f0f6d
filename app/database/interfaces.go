package database

import (
	"context"
	"time"
)

// ItemRepository is the contract the pipeline stages and the transport layer
// use to read and mutate items. The store exclusively owns item records;
// no component holds item state between invocations.
type ItemRepository interface {
	InsertIfAbsent(ctx context.Context, item Item) (*Item, bool, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Item, error)
	ContentHashExists(ctx context.Context, contentHash string) (bool, error)

	ListByState(ctx context.Context, state State, limit int) ([]Item, error)
	NextApproved(ctx context.Context, limit int) ([]Item, error)

	Transition(ctx context.Context, id int64, expected, next State, updates Updates) (*Item, error)
	IncrementFailureCount(ctx context.Context, id int64) (int, error)

	CountsByState(ctx context.Context) (map[State]int, error)
	Summary(ctx context.Context) (StatusSummary, error)
	LastPublishedAt(ctx context.Context) (*time.Time, error)
}
