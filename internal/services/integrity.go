package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/commentree-backend/internal/data/repos/comments"
	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/pkg/dbctx"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

// IntegrityIssue describes one invariant violation found in a stored tree.
type IntegrityIssue struct {
	TreeRootID uuid.UUID
	NodeID     uuid.UUID
	Problem    string
}

func (i IntegrityIssue) String() string {
	return fmt.Sprintf("tree=%s node=%s: %s", i.TreeRootID, i.NodeID, i.Problem)
}

// IntegrityService audits stored trees against the structural invariants
// the write path maintains: one synthetic root per tree, parent/child level
// and path agreement, unique sibling positions, at least one version per
// real node, and delete cascades with no live descendants under a deleted
// node. It only reads; repair is a human decision.
type IntegrityService interface {
	VerifyTree(dbc dbctx.Context, root *domain.TreeRoot) ([]IntegrityIssue, error)
	// VerifyAll audits every tree, at most concurrency trees in flight.
	VerifyAll(ctx context.Context, concurrency int) ([]IntegrityIssue, error)
}

type integrityService struct {
	db       *gorm.DB
	log      *logger.Logger
	roots    comments.TreeRootRepo
	nodes    comments.CommentNodeRepo
	versions comments.CommentVersionRepo
}

func NewIntegrityService(db *gorm.DB, baseLog *logger.Logger, roots comments.TreeRootRepo, nodes comments.CommentNodeRepo, versions comments.CommentVersionRepo) IntegrityService {
	return &integrityService{
		db:       db,
		log:      baseLog.With("service", "IntegrityService"),
		roots:    roots,
		nodes:    nodes,
		versions: versions,
	}
}

func (s *integrityService) VerifyTree(dbc dbctx.Context, root *domain.TreeRoot) ([]IntegrityIssue, error) {
	if root == nil || root.ID == uuid.Nil {
		return nil, fmt.Errorf("missing tree root")
	}
	family, err := s.nodes.FamilyByTreeRoot(dbc, root.ID)
	if err != nil {
		return nil, err
	}

	var issues []IntegrityIssue
	report := func(nodeID uuid.UUID, format string, args ...interface{}) {
		issues = append(issues, IntegrityIssue{
			TreeRootID: root.ID,
			NodeID:     nodeID,
			Problem:    fmt.Sprintf(format, args...),
		})
	}

	byID := make(map[uuid.UUID]*domain.CommentNode, len(family))
	rootCount := 0
	for _, n := range family {
		byID[n.ID] = n
		if n.IsRoot() {
			rootCount++
			if n.Level != 0 || n.Path != "" {
				report(n.ID, "root node has level=%d path=%q, want level=0 path=\"\"", n.Level, n.Path)
			}
		}
	}
	if rootCount != 1 {
		report(uuid.Nil, "tree has %d root nodes, want exactly 1", rootCount)
	}

	siblingPos := make(map[string]uuid.UUID)
	for _, n := range family {
		if n.IsRoot() {
			continue
		}
		if n.ParentID == nil {
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok {
			report(n.ID, "parent %s is not in this tree", *n.ParentID)
			continue
		}
		if n.Level != parent.Level+1 {
			report(n.ID, "level=%d but parent level=%d", n.Level, parent.Level)
		}
		if n.Level > root.MaxDepth {
			report(n.ID, "level=%d exceeds max depth %d", n.Level, root.MaxDepth)
		}
		if want := parent.ChildPath(n.Position); n.Path != want {
			report(n.ID, "path=%q, want %q", n.Path, want)
		}
		key := fmt.Sprintf("%s/%d", *n.ParentID, n.Position)
		if dup, taken := siblingPos[key]; taken {
			report(n.ID, "position %d under parent %s also held by %s", n.Position, *n.ParentID, dup)
		}
		siblingPos[key] = n.ID

		if parent.Deleted && !n.Deleted {
			report(n.ID, "live node under deleted parent %s", *n.ParentID)
		}

		count, err := s.versions.CountByNode(dbc, n.ID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			report(n.ID, "node has no versions")
		}
	}
	return issues, nil
}

func (s *integrityService) VerifyAll(ctx context.Context, concurrency int) ([]IntegrityIssue, error) {
	if concurrency <= 0 {
		concurrency = 4
	}
	var roots []*domain.TreeRoot
	if err := s.db.WithContext(ctx).Find(&roots).Error; err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var all []IntegrityIssue
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, root := range roots {
		root := root
		g.Go(func() error {
			issues, err := s.VerifyTree(dbctx.Context{Ctx: gctx}, root)
			if err != nil {
				return fmt.Errorf("verify tree %s: %w", root.ID, err)
			}
			if len(issues) > 0 {
				mu.Lock()
				all = append(all, issues...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.Info("integrity audit complete", "trees", len(roots), "issues", len(all))
	return all, nil
}
