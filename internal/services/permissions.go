package services

import (
	"context"
	"strings"
	"sync"

	"github.com/yungbote/commentree-backend/internal/domain"
)

// Capability names the checks the engine performs against a gate. The set is
// closed; parent-object integrations implement PermissionGate, they do not
// invent capabilities.
type Capability string

const (
	CapPostComment   Capability = "can_post_comment"
	CapDeleteComment Capability = "can_delete_comment"
	CapViewComments  Capability = "can_view_comments"
)

// PermissionGate answers capability checks for one parent-object type. The
// node argument is nil for tree-level checks (viewing) and set for
// node-level checks (posting a reply, deleting). Implementations live with
// the parent-object integration, not here.
type PermissionGate interface {
	Check(ctx context.Context, actor domain.ActorRef, root *domain.TreeRoot, cap Capability, node *domain.CommentNode) (bool, error)
}

// GateRegistry resolves the gate for a parent-object type. Lookup is by
// registered type key with a fallback gate, never by probing the parent
// object itself.
type GateRegistry struct {
	mu       sync.RWMutex
	gates    map[string]PermissionGate
	fallback PermissionGate
}

func NewGateRegistry(fallback PermissionGate) *GateRegistry {
	if fallback == nil {
		fallback = DefaultGate{}
	}
	return &GateRegistry{
		gates:    make(map[string]PermissionGate),
		fallback: fallback,
	}
}

func (r *GateRegistry) Register(parentType string, gate PermissionGate) {
	parentType = strings.TrimSpace(parentType)
	if parentType == "" || gate == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gates[parentType] = gate
}

func (r *GateRegistry) For(parentType string) PermissionGate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if g, ok := r.gates[parentType]; ok {
		return g
	}
	return r.fallback
}

// DefaultGate is the fallback policy: anyone may view, authenticated actors
// may post, and only a node's creator may delete it.
type DefaultGate struct{}

func (DefaultGate) Check(_ context.Context, actor domain.ActorRef, _ *domain.TreeRoot, cap Capability, node *domain.CommentNode) (bool, error) {
	switch cap {
	case CapViewComments:
		return true, nil
	case CapPostComment:
		return actor.Valid(), nil
	case CapDeleteComment:
		if !actor.Valid() || node == nil {
			return false, nil
		}
		return node.CreatedBy == actor.ID, nil
	default:
		return false, nil
	}
}
