package comments

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/commentree-backend/internal/apperr"
	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/pkg/dbctx"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

type CommentNodeRepo interface {
	Create(dbc dbctx.Context, rows []*domain.CommentNode) ([]*domain.CommentNode, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.CommentNode, error)
	// GetRootNode returns the synthetic level-0 node of a tree.
	GetRootNode(dbc dbctx.Context, treeRootID uuid.UUID) (*domain.CommentNode, error)
	// MaxPosition returns the highest sibling position under a parent, 0 when
	// the parent has no children yet.
	MaxPosition(dbc dbctx.Context, parentID uuid.UUID) (int64, error)
	// DescendantsOf scans the subtree below node via its path prefix, in
	// pre-order. The node itself is excluded. Re-querying reflects current
	// state, not a frozen snapshot.
	DescendantsOf(dbc dbctx.Context, node *domain.CommentNode) ([]*domain.CommentNode, error)
	// FamilyByTreeRoot returns every node of a tree in pre-order with
	// versions preloaded newest-first.
	FamilyByTreeRoot(dbc dbctx.Context, treeRootID uuid.UUID) ([]*domain.CommentNode, error)
	// LockByID takes the node's row lock without waiting. A held lock maps to
	// apperr.ErrConcurrentEdit, a missing row to apperr.ErrNotFound. Requires
	// a transaction: the lock lives until commit or rollback.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.CommentNode, error)
	MarkDeletedByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	// CountByTreeRoot counts the non-root nodes of a tree, deleted included.
	CountByTreeRoot(dbc dbctx.Context, treeRootID uuid.UUID) (int64, error)
}

type commentNodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentNodeRepo(db *gorm.DB, log *logger.Logger) CommentNodeRepo {
	return &commentNodeRepo{db: db, log: log.With("repo", "CommentNodeRepo")}
}

func (r *commentNodeRepo) Create(dbc dbctx.Context, rows []*domain.CommentNode) ([]*domain.CommentNode, error) {
	if len(rows) == 0 {
		return []*domain.CommentNode{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *commentNodeRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.CommentNode, error) {
	if len(ids) == 0 {
		return []*domain.CommentNode{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.CommentNode
	if err := txx.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commentNodeRepo) GetRootNode(dbc dbctx.Context, treeRootID uuid.UUID) (*domain.CommentNode, error) {
	if treeRootID == uuid.Nil {
		return nil, fmt.Errorf("missing tree_root_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.CommentNode
	err := txx.WithContext(dbc.Ctx).
		Where("tree_root_id = ? AND parent_id IS NULL", treeRootID).
		Take(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *commentNodeRepo) MaxPosition(dbc dbctx.Context, parentID uuid.UUID) (int64, error) {
	if parentID == uuid.Nil {
		return 0, fmt.Errorf("missing parent_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var maxPos int64
	if err := txx.WithContext(dbc.Ctx).
		Model(&domain.CommentNode{}).
		Select("COALESCE(MAX(position), 0)").
		Where("parent_id = ?", parentID).
		Scan(&maxPos).Error; err != nil {
		return 0, err
	}
	return maxPos, nil
}

func (r *commentNodeRepo) DescendantsOf(dbc dbctx.Context, node *domain.CommentNode) ([]*domain.CommentNode, error) {
	if node == nil || node.ID == uuid.Nil {
		return nil, fmt.Errorf("missing node")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.CommentNode
	if err := txx.WithContext(dbc.Ctx).
		Where("tree_root_id = ? AND id <> ?", node.TreeRootID, node.ID).
		Where("path LIKE ?", node.SubtreePrefix()+"%").
		Order("path").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commentNodeRepo) FamilyByTreeRoot(dbc dbctx.Context, treeRootID uuid.UUID) ([]*domain.CommentNode, error) {
	if treeRootID == uuid.Nil {
		return nil, fmt.Errorf("missing tree_root_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.CommentNode
	if err := txx.WithContext(dbc.Ctx).
		Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Order("posted_at DESC, id DESC")
		}).
		Where("tree_root_id = ?", treeRootID).
		Order("path").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commentNodeRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.CommentNode, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID requires dbc.Tx")
	}
	var out domain.CommentNode
	err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		Where("id = ?", id).
		Take(&out).Error
	if err != nil {
		switch {
		case IsLockNotAvailable(err):
			return nil, fmt.Errorf("node %s: %w", id, apperr.ErrConcurrentEdit)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("node %s: %w", id, apperr.ErrNotFound)
		default:
			return nil, err
		}
	}
	return &out, nil
}

func (r *commentNodeRepo) MarkDeletedByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&domain.CommentNode{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"deleted":    true,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *commentNodeRepo) CountByTreeRoot(dbc dbctx.Context, treeRootID uuid.UUID) (int64, error) {
	if treeRootID == uuid.Nil {
		return 0, fmt.Errorf("missing tree_root_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var n int64
	if err := txx.WithContext(dbc.Ctx).
		Model(&domain.CommentNode{}).
		Where("tree_root_id = ? AND parent_id IS NOT NULL", treeRootID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
