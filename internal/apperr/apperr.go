package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for every failure the comment engine can surface. Handlers map
// these to the response envelope; nothing below the HTTP boundary formats
// user-facing text except the messages defined here.
var (
	// ErrInvalidTarget means the request did not name a resolvable node or parent.
	ErrInvalidTarget = errors.New("invalid comment target")
	// ErrPermissionDenied means the actor failed a capability check.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDepthExceeded means the insert would exceed the tree's max depth.
	ErrDepthExceeded = errors.New("max depth reached")
	// ErrConcurrentEdit means another transaction holds the node's edit lock.
	ErrConcurrentEdit = errors.New("concurrent edit conflict")
	// ErrStaleEdit means the client edited against a superseded version.
	ErrStaleEdit = errors.New("stale edit")
	// ErrNotFound is the generic missing-resource sentinel.
	ErrNotFound = errors.New("not found")
	// ErrStorage wraps unexpected store failures; detail never reaches clients.
	ErrStorage = errors.New("storage failure")
)

// ValidationError carries the constraints a submitted version violated.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func NewValidation(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

// IsValidation reports whether err is (or wraps) a ValidationError and
// returns it when so.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// UserMessage converts an engine failure into the text shown to the client.
// Unknown errors get the generic storage message so internals do not leak.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTarget):
		return "The comment you are responding to could not be found."
	case errors.Is(err, ErrPermissionDenied):
		return "You do not have permission to post this comment."
	case errors.Is(err, ErrDepthExceeded):
		return "You cannot respond to this comment."
	case errors.Is(err, ErrConcurrentEdit):
		return "Someone else is currently editing this comment. Please refresh your page and try again."
	case errors.Is(err, ErrStaleEdit):
		return "You are not editing the most recent version of this comment. Please refresh your page and try again."
	case errors.Is(err, ErrNotFound):
		return "The requested comment could not be found."
	default:
		if ve, ok := IsValidation(err); ok {
			return fmt.Sprintf("There were errors in your submission. Please correct them and resubmit. (%s)", strings.Join(ve.Violations, "; "))
		}
		return "There was an error processing the selected comment(s)."
	}
}
