package bot

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// APIError is a non-OK response from the Telegram Bot API.
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram api error %d: %s (retry after %ds)", e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// Temporary reports whether the call is worth retrying later: rate limits
// and server side failures are, bad requests are not.
func (e *APIError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}

// NotFound reports whether the target chat or message does not exist.
func (e *APIError) NotFound() bool {
	if e.Code != 400 && e.Code != 403 {
		return false
	}
	desc := strings.ToLower(e.Description)
	return strings.Contains(desc, "not found") || strings.Contains(desc, "chat_id is empty")
}

// transportError wraps network level failures so callers can retry them.
type transportError struct {
	err error
}

func (e *transportError) Error() string   { return e.err.Error() }
func (e *transportError) Unwrap() error   { return e.err }
func (e *transportError) Temporary() bool { return true }

func wrapNetworkError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &transportError{err: err}
	}
	// url.Error wrapping a closed connection etc. still counts as network.
	return &transportError{err: err}
}
