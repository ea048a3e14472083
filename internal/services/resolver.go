package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/commentree-backend/internal/apperr"
	"github.com/yungbote/commentree-backend/internal/data/repos/comments"
	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/pkg/dbctx"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

// TargetRequest is what a client sends to name the node an operation acts
// on: an existing node (edit/delete), or a parent to reply under.
type TargetRequest struct {
	NodeID            *uuid.UUID `json:"node_id,omitempty"`
	ParentNodeID      *uuid.UUID `json:"parent_node_id,omitempty"`
	PreviousVersionID *uuid.UUID `json:"previous_version_id,omitempty"`
}

// ResolvedTarget is the engine's view of the target. A draft is a reply
// that exists only in memory until the engine inserts it; Parent is set for
// drafts so the depth check does not need another read.
type ResolvedTarget struct {
	Node              *domain.CommentNode
	Parent            *domain.CommentNode
	IsDraft           bool
	PreviousVersionID *uuid.UUID
}

// ContentResolver turns a request into a target node. Fails with
// apperr.ErrInvalidTarget when the request names nothing resolvable.
type ContentResolver interface {
	Resolve(dbc dbctx.Context, req TargetRequest) (*ResolvedTarget, error)
}

type repoResolver struct {
	log   *logger.Logger
	nodes comments.CommentNodeRepo
}

func NewContentResolver(baseLog *logger.Logger, nodes comments.CommentNodeRepo) ContentResolver {
	return &repoResolver{
		log:   baseLog.With("service", "ContentResolver"),
		nodes: nodes,
	}
}

func (r *repoResolver) Resolve(dbc dbctx.Context, req TargetRequest) (*ResolvedTarget, error) {
	switch {
	case req.NodeID != nil && *req.NodeID != uuid.Nil:
		nodes, err := r.nodes.GetByIDs(dbc, []uuid.UUID{*req.NodeID})
		if err != nil {
			return nil, err
		}
		if len(nodes) == 0 {
			return nil, fmt.Errorf("node %s: %w", req.NodeID, apperr.ErrInvalidTarget)
		}
		node := nodes[0]
		var parent *domain.CommentNode
		if node.ParentID != nil {
			parents, err := r.nodes.GetByIDs(dbc, []uuid.UUID{*node.ParentID})
			if err != nil {
				return nil, err
			}
			if len(parents) > 0 {
				parent = parents[0]
			}
		}
		return &ResolvedTarget{
			Node:              node,
			Parent:            parent,
			PreviousVersionID: req.PreviousVersionID,
		}, nil

	case req.ParentNodeID != nil && *req.ParentNodeID != uuid.Nil:
		parents, err := r.nodes.GetByIDs(dbc, []uuid.UUID{*req.ParentNodeID})
		if err != nil {
			return nil, err
		}
		if len(parents) == 0 {
			return nil, fmt.Errorf("parent node %s: %w", req.ParentNodeID, apperr.ErrInvalidTarget)
		}
		parent := parents[0]
		parentID := parent.ID
		draft := &domain.CommentNode{
			TreeRootID: parent.TreeRootID,
			ParentID:   &parentID,
			Level:      parent.Level + 1,
		}
		return &ResolvedTarget{
			Node:    draft,
			Parent:  parent,
			IsDraft: true,
		}, nil

	default:
		return nil, fmt.Errorf("request names neither a node nor a parent: %w", apperr.ErrInvalidTarget)
	}
}
