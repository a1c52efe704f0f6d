package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ItemRepo handles database operations for curated items. All state changes
// go through Transition, a compare-and-swap on the state column: two stages
// suspended on external calls can never double-process the same item.
type ItemRepo struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// storedTimeFormat is fixed width, unlike RFC3339Nano which trims trailing
// zeros: lexicographic comparison in SQL must match time order for the
// ORDER BY and MAX queries below. Timestamps are always stored in UTC.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

// InsertIfAbsent inserts a candidate item unless its fingerprint is already
// known. The second return value reports whether a new row was created; on a
// fingerprint collision the existing item is returned unchanged.
func (r *ItemRepo) InsertIfAbsent(ctx context.Context, item Item) (*Item, bool, error) {
	timestamp := formatTime(time.Now())

	state := item.State
	if state == "" {
		state = StateFetched
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO items (
			fingerprint, content_hash, source_name, source_type, title,
			raw_text, raw_url, media_url, media_type, state,
			confidence, reason, failure_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (fingerprint) DO NOTHING
	`, item.Fingerprint, nullableString(item.ContentHash), item.SourceName,
		item.SourceType, item.Title, item.RawText, item.RawURL,
		nullableString(item.MediaURL), item.MediaType, state,
		item.Confidence, nullableString(item.Reason), timestamp, timestamp)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	stored, err := r.GetByFingerprint(ctx, item.Fingerprint)
	if err != nil {
		return nil, false, err
	}

	return stored, affected > 0, nil
}

// GetByID fetches an item by identifier.
func (r *ItemRepo) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// GetByFingerprint fetches an item by its fingerprint.
func (r *ItemRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE fingerprint = ?`, fingerprint)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by fingerprint: %w", err)
	}
	return item, nil
}

// ContentHashExists reports whether any item carries the given content hash.
func (r *ItemRepo) ContentHashExists(ctx context.Context, contentHash string) (bool, error) {
	if contentHash == "" {
		return false, nil
	}
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM items WHERE content_hash = ? LIMIT 1`, contentHash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check content hash: %w", err)
	}
	return true, nil
}

// ListByState returns items in a state ordered by creation time, oldest
// first, so every pass over a stage is deterministic.
func (r *ItemRepo) ListByState(ctx context.Context, state State, limit int) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE state = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, state, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list items by state: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// NextApproved returns up to limit approved items ordered by decision time,
// oldest decision first.
func (r *ItemRepo) NextApproved(ctx context.Context, limit int) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE state = ?
		ORDER BY decided_at ASC, id ASC
		LIMIT ?
	`, StateApproved, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select approved items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// Updates carries the optional field changes applied together with a state
// transition. Nil fields are left untouched.
type Updates struct {
	TranslatedText     *string
	Confidence         *float64
	Reason             *string
	DecidedBy          *int64
	DecidedAt          *time.Time
	PublishedAt        *time.Time
	PublishedMessageID *int64
	ResetFailures      bool
}

// Transition is a compare-and-swap on state: the update applies only when
// the item is currently in the expected state, otherwise ErrStateConflict is
// returned and the row is left unchanged. Every successful transition bumps
// updated_at.
func (r *ItemRepo) Transition(ctx context.Context, id int64, expected, next State, updates Updates) (*Item, error) {
	set := []string{"state = ?", "updated_at = ?"}
	args := []any{next, formatTime(time.Now())}

	if updates.TranslatedText != nil {
		set = append(set, "translated_text = ?")
		args = append(args, *updates.TranslatedText)
	}
	if updates.Confidence != nil {
		set = append(set, "confidence = ?")
		args = append(args, *updates.Confidence)
	}
	if updates.Reason != nil {
		set = append(set, "reason = ?")
		args = append(args, *updates.Reason)
	}
	if updates.DecidedBy != nil {
		set = append(set, "decided_by = ?")
		args = append(args, *updates.DecidedBy)
	}
	if updates.DecidedAt != nil {
		set = append(set, "decided_at = ?")
		args = append(args, formatTime(*updates.DecidedAt))
	}
	if updates.PublishedAt != nil {
		set = append(set, "published_at = ?")
		args = append(args, formatTime(*updates.PublishedAt))
	}
	if updates.PublishedMessageID != nil {
		set = append(set, "published_message_id = ?")
		args = append(args, *updates.PublishedMessageID)
	}
	if updates.ResetFailures {
		set = append(set, "failure_count = 0")
	}

	args = append(args, id, expected)

	query := `UPDATE items SET ` + strings.Join(set, ", ") + ` WHERE id = ? AND state = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to transition item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStateConflict
	}

	return r.GetByID(ctx, id)
}

// IncrementFailureCount bumps the persisted consecutive-failure counter and
// returns the new value. The counter lives on the row so retry budgets
// survive process restarts.
func (r *ItemRepo) IncrementFailureCount(ctx context.Context, id int64) (int, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET failure_count = failure_count + 1, updated_at = ?
		WHERE id = ?
	`, formatTime(time.Now()), id)
	if err != nil {
		return 0, fmt.Errorf("failed to increment failure count: %w", err)
	}

	var count int
	err = r.db.QueryRowContext(ctx, `SELECT failure_count FROM items WHERE id = ?`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read failure count: %w", err)
	}
	return count, nil
}

// CountsByState returns a count of items grouped by state.
func (r *ItemRepo) CountsByState(ctx context.Context) (map[State]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM items GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[State]int)
	for rows.Next() {
		var state State
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		counts[state] = count
	}
	return counts, rows.Err()
}

// Summary aggregates the counts the /status surface reports.
func (r *ItemRepo) Summary(ctx context.Context) (StatusSummary, error) {
	counts, err := r.CountsByState(ctx)
	if err != nil {
		return StatusSummary{}, err
	}

	summary := StatusSummary{
		ByState:        counts,
		Pending:        counts[StatePendingApproval],
		ApprovedQueued: counts[StateApproved],
		PublishedTotal: counts[StatePublished],
	}

	startOfDay := formatTime(time.Now().UTC().Truncate(24 * time.Hour))
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM items WHERE state = ? AND published_at >= ?
	`, StatePublished, startOfDay).Scan(&summary.PublishedToday)
	if err != nil {
		return StatusSummary{}, fmt.Errorf("failed to count today's publishes: %w", err)
	}

	return summary, nil
}

// LastPublishedAt returns the most recent publish timestamp, or nil when
// nothing has been published yet.
func (r *ItemRepo) LastPublishedAt(ctx context.Context) (*time.Time, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(published_at) FROM items WHERE state = ?
	`, StatePublished).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to get last publish time: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	ts, err := parseTimeString(raw.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last publish time: %w", err)
	}
	return &ts, nil
}

const itemColumns = "id, fingerprint, content_hash, source_name, source_type, title, raw_text, raw_url, media_url, media_type, state, translated_text, confidence, reason, failure_count, decided_by, decided_at, published_at, published_message_id, created_at, updated_at"

func collectItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id             int64
		fingerprint    string
		contentHash    sql.NullString
		sourceName     string
		sourceType     string
		title          string
		rawText        string
		rawURL         string
		mediaURL       sql.NullString
		mediaType      string
		stateStr       string
		translatedText sql.NullString
		confidence     sql.NullFloat64
		reason         sql.NullString
		failureCount   int
		decidedBy      sql.NullInt64
		decidedRaw     sql.NullString
		publishedRaw   sql.NullString
		messageID      sql.NullInt64
		createdRaw     string
		updatedRaw     string
	)

	if err := scanner.Scan(
		&id,
		&fingerprint,
		&contentHash,
		&sourceName,
		&sourceType,
		&title,
		&rawText,
		&rawURL,
		&mediaURL,
		&mediaType,
		&stateStr,
		&translatedText,
		&confidence,
		&reason,
		&failureCount,
		&decidedBy,
		&decidedRaw,
		&publishedRaw,
		&messageID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                 id,
		Fingerprint:        fingerprint,
		ContentHash:        contentHash.String,
		SourceName:         sourceName,
		SourceType:         sourceType,
		Title:              title,
		RawText:            rawText,
		RawURL:             rawURL,
		MediaURL:           mediaURL.String,
		MediaType:          mediaType,
		State:              State(stateStr),
		TranslatedText:     translatedText.String,
		Confidence:         confidence.Float64,
		Reason:             reason.String,
		FailureCount:       failureCount,
		DecidedBy:          decidedBy.Int64,
		PublishedMessageID: messageID.Int64,
	}

	if ts, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = ts
	}
	if ts, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = ts
	}
	if decidedRaw.Valid {
		if ts, err := parseTimeString(decidedRaw.String); err == nil {
			item.DecidedAt = &ts
		}
	}
	if publishedRaw.Valid {
		if ts, err := parseTimeString(publishedRaw.String); err == nil {
			item.PublishedAt = &ts
		}
	}

	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(storedTimeFormat, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
