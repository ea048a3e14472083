package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUserMessageMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrInvalidTarget, "The comment you are responding to could not be found."},
		{ErrPermissionDenied, "You do not have permission to post this comment."},
		{ErrDepthExceeded, "You cannot respond to this comment."},
		{ErrConcurrentEdit, "Someone else is currently editing this comment. Please refresh your page and try again."},
		{ErrStaleEdit, "You are not editing the most recent version of this comment. Please refresh your page and try again."},
		{ErrNotFound, "The requested comment could not be found."},
		{errors.New("pq: connection reset"), "There was an error processing the selected comment(s)."},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v): want %q got %q", tc.err, tc.want, got)
		}
	}
}

func TestUserMessageUnwrapsChains(t *testing.T) {
	wrapped := fmt.Errorf("lock node abc: %w", ErrConcurrentEdit)
	if got := UserMessage(wrapped); !strings.Contains(got, "currently editing") {
		t.Fatalf("wrapped sentinel not recognized: %q", got)
	}
}

func TestValidationErrorRoundTrip(t *testing.T) {
	ve := NewValidation("body must not be empty", "posting user is required")
	wrapped := fmt.Errorf("create version: %w", ve)

	got, ok := IsValidation(wrapped)
	if !ok {
		t.Fatalf("IsValidation should see through wrapping")
	}
	if len(got.Violations) != 2 {
		t.Fatalf("violations: %+v", got.Violations)
	}
	msg := UserMessage(wrapped)
	if !strings.Contains(msg, "errors in your submission") || !strings.Contains(msg, "body must not be empty") {
		t.Fatalf("validation message: %q", msg)
	}
}
