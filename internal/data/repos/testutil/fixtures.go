package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/commentree-backend/internal/domain"
)

func SeedTreeRoot(tb testing.TB, ctx context.Context, tx *gorm.DB, parentType, parentID string, maxDepth int) *domain.TreeRoot {
	tb.Helper()
	root := &domain.TreeRoot{
		ID:         uuid.New(),
		ParentType: parentType,
		ParentID:   parentID,
		MaxDepth:   maxDepth,
	}
	if err := tx.WithContext(ctx).Create(root).Error; err != nil {
		tb.Fatalf("seed tree root: %v", err)
	}
	return root
}

func SeedRootNode(tb testing.TB, ctx context.Context, tx *gorm.DB, treeRootID uuid.UUID) *domain.CommentNode {
	tb.Helper()
	n := &domain.CommentNode{
		ID:         uuid.New(),
		TreeRootID: treeRootID,
		Level:      0,
		Position:   0,
		Path:       "",
	}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		tb.Fatalf("seed root node: %v", err)
	}
	return n
}

func SeedComment(tb testing.TB, ctx context.Context, tx *gorm.DB, parent *domain.CommentNode, position int64, createdBy string) *domain.CommentNode {
	tb.Helper()
	parentID := parent.ID
	n := &domain.CommentNode{
		ID:         uuid.New(),
		TreeRootID: parent.TreeRootID,
		ParentID:   &parentID,
		Level:      parent.Level + 1,
		Position:   position,
		Path:       parent.ChildPath(position),
		CreatedBy:  createdBy,
	}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		tb.Fatalf("seed comment node: %v", err)
	}
	return n
}

func SeedVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, nodeID uuid.UUID, body, postedBy string, postedAt time.Time) *domain.CommentVersion {
	tb.Helper()
	v := &domain.CommentVersion{
		ID:       uuid.New(),
		NodeID:   nodeID,
		Body:     body,
		PostedBy: postedBy,
		PostedAt: postedAt,
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed comment version: %v", err)
	}
	return v
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
