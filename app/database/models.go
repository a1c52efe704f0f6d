package database

import (
	"strings"
	"time"
)

// State represents the lifecycle of a curated item.
type State string

const (
	StateFetched          State = "fetched"
	StateRejectedDup      State = "rejected_dup"
	StateClassifiedReject State = "classified_reject"
	StateClassifiedAccept State = "classified_accept"
	StateTranslated       State = "translated"
	StatePendingApproval  State = "pending_approval"
	StateApproved         State = "approved"
	StateRejectedAdmin    State = "rejected_admin"
	StatePublished        State = "published"
	StatePublishFailed    State = "publish_failed"
)

var allStates = []State{
	StateFetched,
	StateRejectedDup,
	StateClassifiedReject,
	StateClassifiedAccept,
	StateTranslated,
	StatePendingApproval,
	StateApproved,
	StateRejectedAdmin,
	StatePublished,
	StatePublishFailed,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

var terminalStates = map[State]struct{}{
	StateRejectedDup:   {},
	StateRejectedAdmin: {},
	StatePublished:     {},
	StatePublishFailed: {},
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further pipeline-driven transition occurs
// from the state. classified_reject is terminal too, but items only reach
// it through the bounded-retry path, so it is listed explicitly here.
func (s State) IsTerminal() bool {
	if s == StateClassifiedReject {
		return true
	}
	_, ok := terminalStates[s]
	return ok
}

// Item represents a candidate story persisted in SQLite.
type Item struct {
	ID                 int64
	Fingerprint        string
	ContentHash        string
	SourceName         string
	SourceType         string
	Title              string
	RawText            string
	RawURL             string
	MediaURL           string
	MediaType          string
	State              State
	TranslatedText     string
	Confidence         float64
	Reason             string
	FailureCount       int
	DecidedBy          int64
	DecidedAt          *time.Time
	PublishedAt        *time.Time
	PublishedMessageID int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Decided reports whether an admin decision has been recorded.
func (i *Item) Decided() bool {
	return i.DecidedAt != nil
}

// StatusSummary aggregates item counts for the /status surface.
type StatusSummary struct {
	ByState        map[State]int
	Pending        int
	ApprovedQueued int
	PublishedTotal int
	PublishedToday int
}
