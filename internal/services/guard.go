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

// ConcurrencyGuard is the lost-update protocol for edits: take the node's
// row lock without waiting, then compare the client-captured previous
// version against the latest one read under that lock. The lock lives for
// the surrounding transaction and is never held across requests.
type ConcurrencyGuard interface {
	// Acquire locks the node row, failing fast with apperr.ErrConcurrentEdit
	// when another transaction holds it. Returns the row as read under the
	// lock.
	Acquire(dbc dbctx.Context, nodeID uuid.UUID) (*domain.CommentNode, error)
	// CheckFreshness fails with apperr.ErrStaleEdit when the client's captured
	// previous version is set and differs from the current latest. A nil
	// previous means the client made no freshness claim.
	CheckFreshness(previous *uuid.UUID, latest *domain.CommentVersion) error
}

type concurrencyGuard struct {
	log   *logger.Logger
	nodes comments.CommentNodeRepo
}

func NewConcurrencyGuard(baseLog *logger.Logger, nodes comments.CommentNodeRepo) ConcurrencyGuard {
	return &concurrencyGuard{
		log:   baseLog.With("service", "ConcurrencyGuard"),
		nodes: nodes,
	}
}

func (g *concurrencyGuard) Acquire(dbc dbctx.Context, nodeID uuid.UUID) (*domain.CommentNode, error) {
	node, err := g.nodes.LockByID(dbc, nodeID)
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (g *concurrencyGuard) CheckFreshness(previous *uuid.UUID, latest *domain.CommentVersion) error {
	if previous == nil {
		return nil
	}
	if latest == nil {
		return fmt.Errorf("no current version to compare against: %w", apperr.ErrNotFound)
	}
	if *previous != latest.ID {
		return fmt.Errorf("client has %s, latest is %s: %w", previous, latest.ID, apperr.ErrStaleEdit)
	}
	return nil
}
