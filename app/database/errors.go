package database

import "errors"

// ErrNotFound is returned when an item lookup matches no row.
var ErrNotFound = errors.New("item not found")

// ErrStateConflict is returned when a compare-and-swap transition finds the
// item in a different state than expected. The losing caller treats it as a
// no-op; it is never surfaced as a user error.
var ErrStateConflict = errors.New("item state conflict")
