package comments

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/pkg/dbctx"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

type TreeRootRepo interface {
	// GetOrCreate inserts a root for the parent object unless one exists,
	// converging concurrent callers through the composite unique index
	// rather than check-then-insert. The bool reports whether this call
	// created the row.
	GetOrCreate(dbc dbctx.Context, ref domain.ParentRef, maxDepth int) (*domain.TreeRoot, bool, error)
	GetByParent(dbc dbctx.Context, ref domain.ParentRef) (*domain.TreeRoot, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.TreeRoot, error)
}

type treeRootRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTreeRootRepo(db *gorm.DB, log *logger.Logger) TreeRootRepo {
	return &treeRootRepo{db: db, log: log.With("repo", "TreeRootRepo")}
}

func (r *treeRootRepo) GetOrCreate(dbc dbctx.Context, ref domain.ParentRef, maxDepth int) (*domain.TreeRoot, bool, error) {
	if !ref.Valid() {
		return nil, false, fmt.Errorf("missing parent ref")
	}
	if maxDepth < 0 {
		return nil, false, fmt.Errorf("max_depth must be >= 0")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}

	row := &domain.TreeRoot{
		ID:         uuid.New(),
		ParentType: ref.Type,
		ParentID:   ref.ID,
		MaxDepth:   maxDepth,
	}
	res := txx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "parent_type"}, {Name: "parent_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return row, true, nil
	}

	existing, err := r.GetByParent(dbc, ref)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("tree root vanished after conflict for %s", ref)
	}
	return existing, false, nil
}

func (r *treeRootRepo) GetByParent(dbc dbctx.Context, ref domain.ParentRef) (*domain.TreeRoot, error) {
	if !ref.Valid() {
		return nil, fmt.Errorf("missing parent ref")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out domain.TreeRoot
	err := txx.WithContext(dbc.Ctx).
		Where("parent_type = ? AND parent_id = ?", ref.Type, ref.ID).
		Take(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *treeRootRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.TreeRoot, error) {
	if len(ids) == 0 {
		return []*domain.TreeRoot{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*domain.TreeRoot
	if err := txx.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
