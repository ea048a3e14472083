package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/commentree-backend/internal/apperr"
	"github.com/yungbote/commentree-backend/internal/data/repos/comments"
	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/pkg/dbctx"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

// insertAttempts bounds the retry loop around sibling-position assignment.
// Two concurrent replies to the same parent can race on the (parent_id,
// position) unique index; the loser recomputes and retries.
const insertAttempts = 3

// TreeService owns the node hierarchy: lazy root creation, appends with
// depth enforcement, and subtree queries over the materialized path.
type TreeService interface {
	// GetOrCreateRoot is idempotent; concurrent callers converge on one root.
	// Returns the tree root and its synthetic level-0 node.
	GetOrCreateRoot(dbc dbctx.Context, ref domain.ParentRef, maxDepth int) (*domain.TreeRoot, *domain.CommentNode, error)
	// Insert appends a child as last sibling under parent. Fails with
	// apperr.ErrDepthExceeded before touching storage when the parent already
	// sits at the tree's max depth.
	Insert(dbc dbctx.Context, parent *domain.CommentNode, createdBy string) (*domain.CommentNode, error)
	// Descendants returns the subtree below node in pre-order.
	Descendants(dbc dbctx.Context, node *domain.CommentNode) ([]*domain.CommentNode, error)
	// Family returns the whole tree (root node included) in pre-order with
	// versions preloaded newest-first.
	Family(dbc dbctx.Context, root *domain.TreeRoot) ([]*domain.CommentNode, error)
	// RootOf resolves the TreeRoot a node belongs to.
	RootOf(dbc dbctx.Context, node *domain.CommentNode) (*domain.TreeRoot, error)
	// CountDescendants counts non-root nodes, soft-deleted included.
	CountDescendants(dbc dbctx.Context, root *domain.TreeRoot) (int64, error)
	// MarkDeleted flips the deleted flag on the given nodes. The flag is
	// monotonic; already-deleted nodes are unaffected.
	MarkDeleted(dbc dbctx.Context, ids []uuid.UUID) error
}

type treeService struct {
	db    *gorm.DB
	log   *logger.Logger
	roots comments.TreeRootRepo
	nodes comments.CommentNodeRepo
}

func NewTreeService(db *gorm.DB, baseLog *logger.Logger, roots comments.TreeRootRepo, nodes comments.CommentNodeRepo) TreeService {
	return &treeService{
		db:    db,
		log:   baseLog.With("service", "TreeService"),
		roots: roots,
		nodes: nodes,
	}
}

func (s *treeService) GetOrCreateRoot(dbc dbctx.Context, ref domain.ParentRef, maxDepth int) (*domain.TreeRoot, *domain.CommentNode, error) {
	root, created, err := s.roots.GetOrCreate(dbc, ref, maxDepth)
	if err != nil {
		return nil, nil, err
	}
	if created {
		rootNode := &domain.CommentNode{
			ID:         uuid.New(),
			TreeRootID: root.ID,
			Level:      0,
			Position:   0,
			Path:       "",
			CreatedBy:  "",
		}
		if _, err := s.nodes.Create(dbc, []*domain.CommentNode{rootNode}); err != nil {
			return nil, nil, err
		}
		s.log.Debug("created tree root", "parent", ref.String(), "tree_root_id", root.ID)
		return root, rootNode, nil
	}
	rootNode, err := s.nodes.GetRootNode(dbc, root.ID)
	if err != nil {
		return nil, nil, err
	}
	if rootNode == nil {
		return nil, nil, fmt.Errorf("tree %s has no root node", root.ID)
	}
	return root, rootNode, nil
}

func (s *treeService) Insert(dbc dbctx.Context, parent *domain.CommentNode, createdBy string) (*domain.CommentNode, error) {
	if parent == nil || parent.ID == uuid.Nil {
		return nil, fmt.Errorf("missing parent node")
	}
	root, err := s.RootOf(dbc, parent)
	if err != nil {
		return nil, err
	}
	if parent.Level >= root.MaxDepth {
		return nil, fmt.Errorf("parent at level %d, max depth %d: %w", parent.Level, root.MaxDepth, apperr.ErrDepthExceeded)
	}

	txx := dbc.Tx
	if txx == nil {
		txx = s.db
	}
	var node *domain.CommentNode
	for attempt := 0; attempt < insertAttempts; attempt++ {
		maxPos, err := s.nodes.MaxPosition(dbc, parent.ID)
		if err != nil {
			return nil, err
		}
		parentID := parent.ID
		candidate := &domain.CommentNode{
			ID:         uuid.New(),
			TreeRootID: parent.TreeRootID,
			ParentID:   &parentID,
			Level:      parent.Level + 1,
			Position:   maxPos + 1,
			Path:       parent.ChildPath(maxPos + 1),
			CreatedBy:  createdBy,
		}
		// Savepoint per attempt: a unique-violation on the sibling index must
		// not poison the surrounding transaction.
		err = txx.WithContext(dbc.Ctx).Transaction(func(nested *gorm.DB) error {
			_, createErr := s.nodes.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: nested}, []*domain.CommentNode{candidate})
			return createErr
		})
		if err == nil {
			node = candidate
			break
		}
		if comments.IsUniqueViolation(err) {
			s.log.Debug("sibling position race, retrying", "parent_id", parent.ID, "position", maxPos+1)
			continue
		}
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("could not place comment under parent %s: %w", parent.ID, apperr.ErrStorage)
	}
	return node, nil
}

func (s *treeService) Descendants(dbc dbctx.Context, node *domain.CommentNode) ([]*domain.CommentNode, error) {
	return s.nodes.DescendantsOf(dbc, node)
}

func (s *treeService) Family(dbc dbctx.Context, root *domain.TreeRoot) ([]*domain.CommentNode, error) {
	if root == nil || root.ID == uuid.Nil {
		return nil, fmt.Errorf("missing tree root")
	}
	return s.nodes.FamilyByTreeRoot(dbc, root.ID)
}

func (s *treeService) RootOf(dbc dbctx.Context, node *domain.CommentNode) (*domain.TreeRoot, error) {
	if node == nil || node.TreeRootID == uuid.Nil {
		return nil, fmt.Errorf("missing node tree reference")
	}
	roots, err := s.roots.GetByIDs(dbc, []uuid.UUID{node.TreeRootID})
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("tree root %s: %w", node.TreeRootID, apperr.ErrNotFound)
	}
	return roots[0], nil
}

func (s *treeService) CountDescendants(dbc dbctx.Context, root *domain.TreeRoot) (int64, error) {
	if root == nil || root.ID == uuid.Nil {
		return 0, fmt.Errorf("missing tree root")
	}
	return s.nodes.CountByTreeRoot(dbc, root.ID)
}

func (s *treeService) MarkDeleted(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.nodes.MarkDeletedByIDs(dbc, ids)
}
