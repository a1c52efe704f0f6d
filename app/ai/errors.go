package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransientError marks a failure worth retrying on a later cycle: rate
// limits, upstream overload, network trouble. Anything else is treated as
// permanent for the item being processed.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried later.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

func classifyStatus(statusCode int, err error) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &TransientError{Err: err}
	case statusCode >= http.StatusInternalServerError:
		return &TransientError{Err: err}
	default:
		return err
	}
}

func wrapRequestError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}
	// Connection level failures are retryable too.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &TransientError{Err: err}
	}
	return err
}
