package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/services"
)

type capturePublisher struct {
	msgs []SSEMessage
	err  error
}

func (p *capturePublisher) Publish(_ context.Context, msg SSEMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestBroadcastSinkMapsActions(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewBroadcastSink(mustTestLogger(t), pub)

	parentID := uuid.New()
	node := &domain.CommentNode{ID: uuid.New(), ParentID: &parentID, Level: 2}
	version := &domain.CommentVersion{ID: uuid.New(), NodeID: node.ID}

	cases := []struct {
		action services.CommentAction
		want   SSEEvent
	}{
		{services.ActionPost, SSEEventCommentPosted},
		{services.ActionEdit, SSEEventCommentEdited},
		{services.ActionPreDelete, SSEEventCommentDeleting},
	}
	for _, tc := range cases {
		if err := sink.Publish(context.Background(), services.CommentEvent{
			Action:  tc.action,
			Parent:  domain.ParentRef{Type: "article", ID: "3"},
			Node:    node,
			Version: version,
			Actor:   domain.ActorRef{ID: "alice"},
		}); err != nil {
			t.Fatalf("Publish(%s): %v", tc.action, err)
		}
	}
	if len(pub.msgs) != len(cases) {
		t.Fatalf("published: want=%d got=%d", len(cases), len(pub.msgs))
	}
	for i, tc := range cases {
		msg := pub.msgs[i]
		if msg.Event != tc.want {
			t.Fatalf("event for %s: want=%s got=%s", tc.action, tc.want, msg.Event)
		}
		if msg.Channel != "comments:article:3" {
			t.Fatalf("channel: got %q", msg.Channel)
		}
		data, ok := msg.Data.(map[string]any)
		if !ok {
			t.Fatalf("data shape: %T", msg.Data)
		}
		if data["node_id"] != node.ID || data["parent_node_id"] != parentID {
			t.Fatalf("node fields missing: %+v", data)
		}
		if data["actor_id"] != "alice" {
			t.Fatalf("actor_id: got %v", data["actor_id"])
		}
	}
}

func TestBroadcastSinkSwallowsPublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("redis down")}
	sink := NewBroadcastSink(mustTestLogger(t), pub)

	err := sink.Publish(context.Background(), services.CommentEvent{
		Action: services.ActionPost,
		Parent: domain.ParentRef{Type: "article", ID: "3"},
		Actor:  domain.ActorRef{ID: "alice"},
	})
	if err != nil {
		t.Fatalf("broadcast failure must not surface: %v", err)
	}
}

func TestBroadcastSinkIgnoresUnknownAction(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewBroadcastSink(mustTestLogger(t), pub)

	if err := sink.Publish(context.Background(), services.CommentEvent{Action: "something_else"}); err != nil {
		t.Fatalf("unknown action: %v", err)
	}
	if len(pub.msgs) != 0 {
		t.Fatalf("unknown action must not broadcast, got %d messages", len(pub.msgs))
	}
}

func TestHubPublisherDeliversToSubscribers(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := CommentChannel(domain.ParentRef{Type: "article", ID: "5"})
	client := hub.NewSSEClient("alice")
	hub.AddChannel(client, channel)

	pub := HubPublisher{Hub: hub}
	if err := pub.Publish(context.Background(), SSEMessage{Channel: channel, Event: SSEEventCommentPosted}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case msg := <-client.Outbound:
		if msg.Event != SSEEventCommentPosted {
			t.Fatalf("event: got %s", msg.Event)
		}
	default:
		t.Fatalf("message not delivered to hub subscriber")
	}
}
