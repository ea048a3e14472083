package services

import (
	"context"

	"github.com/yungbote/commentree-backend/internal/domain"
)

// CommentAction enumerates the lifecycle events the engine emits. The set is
// fixed; observers subscribe to these names, nothing else.
type CommentAction string

const (
	ActionPost      CommentAction = "post"
	ActionEdit      CommentAction = "edit"
	ActionPreDelete CommentAction = "pre_delete"
)

// CommentEvent is the payload handed to observers. Version is nil for
// pre_delete. Options is the client-supplied payload forwarded verbatim.
type CommentEvent struct {
	Action  CommentAction          `json:"action"`
	Parent  domain.ParentRef       `json:"parent"`
	Node    *domain.CommentNode    `json:"node"`
	Version *domain.CommentVersion `json:"version,omitempty"`
	Actor   domain.ActorRef        `json:"actor"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// EventSink receives lifecycle events inside the operation's transaction.
// A non-nil error aborts the transaction; for pre_delete that is how an
// observer vetoes the delete.
type EventSink interface {
	Publish(ctx context.Context, ev CommentEvent) error
}

// MultiSink fans an event out to every sink in order, stopping at the first
// error.
type MultiSink []EventSink

func (m MultiSink) Publish(ctx context.Context, ev CommentEvent) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// NopSink discards events; useful as a default and in tests.
type NopSink struct{}

func (NopSink) Publish(context.Context, CommentEvent) error { return nil }
