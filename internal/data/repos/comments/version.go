package comments

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/commentree-backend/internal/apperr"
	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/pkg/dbctx"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

type CommentVersionRepo interface {
	// Create appends version rows. There is deliberately no update method for
	// body or timestamp; history is append-only.
	Create(dbc dbctx.Context, rows []*domain.CommentVersion) ([]*domain.CommentVersion, error)
	// LatestByNode returns the newest version of a node, apperr.ErrNotFound
	// when the node has none.
	LatestByNode(dbc dbctx.Context, nodeID uuid.UUID) (*domain.CommentVersion, error)
	ListByNode(dbc dbctx.Context, nodeID uuid.UUID) ([]*domain.CommentVersion, error)
	CountByNode(dbc dbctx.Context, nodeID uuid.UUID) (int64, error)
	// SetDeletedBy records the actor who soft-deleted the owning node on a
	// version row. The single permitted mutation of a version.
	SetDeletedBy(dbc dbctx.Context, versionID uuid.UUID, actorID string) error
}

type commentVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentVersionRepo(db *gorm.DB, log *logger.Logger) CommentVersionRepo {
	return &commentVersionRepo{db: db, log: log.With("repo", "CommentVersionRepo")}
}

func (r *commentVersionRepo) Create(dbc dbctx.Context, rows []*domain.CommentVersion) ([]*domain.CommentVersion, error) {
	if len(rows) == 0 {
		return []*domain.CommentVersion{}, nil
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

func (r *commentVersionRepo) LatestByNode(dbc dbctx.Context, nodeID uuid.UUID) (*domain.CommentVersion, error) {
	if nodeID == uuid.Nil {
		return nil, fmt.Errorf("missing node_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.CommentVersion
	err := txx.WithContext(dbc.Ctx).
		Where("node_id = ?", nodeID).
		Order("posted_at DESC, id DESC").
		Take(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no versions for node %s: %w", nodeID, apperr.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *commentVersionRepo) ListByNode(dbc dbctx.Context, nodeID uuid.UUID) ([]*domain.CommentVersion, error) {
	if nodeID == uuid.Nil {
		return nil, fmt.Errorf("missing node_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.CommentVersion
	if err := txx.WithContext(dbc.Ctx).
		Where("node_id = ?", nodeID).
		Order("posted_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commentVersionRepo) CountByNode(dbc dbctx.Context, nodeID uuid.UUID) (int64, error) {
	if nodeID == uuid.Nil {
		return 0, fmt.Errorf("missing node_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var n int64
	if err := txx.WithContext(dbc.Ctx).
		Model(&domain.CommentVersion{}).
		Where("node_id = ?", nodeID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *commentVersionRepo) SetDeletedBy(dbc dbctx.Context, versionID uuid.UUID, actorID string) error {
	if versionID == uuid.Nil {
		return fmt.Errorf("missing version id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&domain.CommentVersion{}).
		Where("id = ?", versionID).
		Update("deleted_by", actorID).Error
}
