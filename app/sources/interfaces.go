package sources

import "context"

// Connector produces a finite batch of candidate stories per invocation.
// Implementations fail soft: an unreachable source returns an error and the
// caller decides how to account for it; a partially readable source returns
// what it could parse.
type Connector interface {
	Name() string
	Fetch(ctx context.Context) ([]Candidate, error)
}
