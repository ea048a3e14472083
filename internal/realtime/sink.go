package realtime

import (
	"context"

	"github.com/yungbote/commentree-backend/internal/platform/logger"
	"github.com/yungbote/commentree-backend/internal/services"
)

// Publisher is where broadcast messages go: the in-process hub directly, or
// a cross-instance bus whose forwarder feeds the hub.
type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

// HubPublisher adapts the hub to the Publisher shape for single-instance
// deployments without Redis.
type HubPublisher struct {
	Hub *SSEHub
}

func (p HubPublisher) Publish(_ context.Context, msg SSEMessage) error {
	p.Hub.Broadcast(msg)
	return nil
}

// BroadcastSink turns comment lifecycle events into SSE messages. It is
// best-effort: a broadcast failure is logged, never returned, so a flaky
// Redis cannot veto a comment transaction. Observers that should be able
// to veto register as their own sinks.
type BroadcastSink struct {
	log *logger.Logger
	pub Publisher
}

func NewBroadcastSink(baseLog *logger.Logger, pub Publisher) *BroadcastSink {
	return &BroadcastSink{
		log: baseLog.With("component", "BroadcastSink"),
		pub: pub,
	}
}

func (s *BroadcastSink) Publish(ctx context.Context, ev services.CommentEvent) error {
	var event SSEEvent
	switch ev.Action {
	case services.ActionPost:
		event = SSEEventCommentPosted
	case services.ActionEdit:
		event = SSEEventCommentEdited
	case services.ActionPreDelete:
		event = SSEEventCommentDeleting
	default:
		return nil
	}

	data := map[string]any{
		"action":   string(ev.Action),
		"actor_id": ev.Actor.ID,
	}
	if ev.Node != nil {
		data["node_id"] = ev.Node.ID
		data["level"] = ev.Node.Level
		if ev.Node.ParentID != nil {
			data["parent_node_id"] = *ev.Node.ParentID
		}
	}
	if ev.Version != nil {
		data["version_id"] = ev.Version.ID
	}

	msg := SSEMessage{
		Channel: CommentChannel(ev.Parent),
		Event:   event,
		Data:    data,
	}
	if err := s.pub.Publish(ctx, msg); err != nil {
		s.log.Warn("broadcast failed", "channel", msg.Channel, "event", event, "error", err)
	}
	return nil
}
