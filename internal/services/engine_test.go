package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/commentree-backend/internal/apperr"
	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/pkg/dbctx"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

// testDB provides real transaction semantics for the engine without a
// Postgres dependency; none of the fakes below touch it.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

type fakeTree struct {
	root      *domain.TreeRoot
	rootNode  *domain.CommentNode
	inserted  *domain.CommentNode
	insertErr error
	desc      []*domain.CommentNode
	family    []*domain.CommentNode
	count     int64

	mu         sync.Mutex
	calls      []string
	deletedIDs []uuid.UUID
}

func (f *fakeTree) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTree) GetOrCreateRoot(dbc dbctx.Context, ref domain.ParentRef, maxDepth int) (*domain.TreeRoot, *domain.CommentNode, error) {
	f.record("GetOrCreateRoot")
	return f.root, f.rootNode, nil
}

func (f *fakeTree) Insert(dbc dbctx.Context, parent *domain.CommentNode, createdBy string) (*domain.CommentNode, error) {
	f.record("Insert")
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return f.inserted, nil
}

func (f *fakeTree) Descendants(dbc dbctx.Context, node *domain.CommentNode) ([]*domain.CommentNode, error) {
	f.record("Descendants")
	return f.desc, nil
}

func (f *fakeTree) Family(dbc dbctx.Context, root *domain.TreeRoot) ([]*domain.CommentNode, error) {
	f.record("Family")
	return f.family, nil
}

func (f *fakeTree) RootOf(dbc dbctx.Context, node *domain.CommentNode) (*domain.TreeRoot, error) {
	return f.root, nil
}

func (f *fakeTree) CountDescendants(dbc dbctx.Context, root *domain.TreeRoot) (int64, error) {
	return f.count, nil
}

func (f *fakeTree) MarkDeleted(dbc dbctx.Context, ids []uuid.UUID) error {
	f.record("MarkDeleted")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedIDs = append(f.deletedIDs, ids...)
	return nil
}

type fakeVersions struct {
	created   []*domain.CommentVersion
	createErr error
	latest    *domain.CommentVersion
	latestErr error
	history   []*domain.CommentVersion

	deletedByNode uuid.UUID
	deletedBy     string
}

func (f *fakeVersions) Create(dbc dbctx.Context, node *domain.CommentNode, body string, author domain.ActorRef, meta datatypes.JSONMap) (*domain.CommentVersion, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	v := &domain.CommentVersion{ID: uuid.New(), NodeID: node.ID, Body: body, PostedBy: author.ID, Metadata: meta}
	f.created = append(f.created, v)
	return v, nil
}

func (f *fakeVersions) Latest(dbc dbctx.Context, nodeID uuid.UUID) (*domain.CommentVersion, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	if f.latest == nil {
		return nil, fmt.Errorf("no versions: %w", apperr.ErrNotFound)
	}
	return f.latest, nil
}

func (f *fakeVersions) History(dbc dbctx.Context, nodeID uuid.UUID) ([]*domain.CommentVersion, error) {
	return f.history, nil
}

func (f *fakeVersions) RecordDeletedBy(dbc dbctx.Context, nodeID uuid.UUID, actor domain.ActorRef) error {
	f.deletedByNode = nodeID
	f.deletedBy = actor.ID
	return nil
}

type fakeGuard struct {
	node       *domain.CommentNode
	acquireErr error
	freshErr   error
}

func (f *fakeGuard) Acquire(dbc dbctx.Context, nodeID uuid.UUID) (*domain.CommentNode, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return f.node, nil
}

func (f *fakeGuard) CheckFreshness(previous *uuid.UUID, latest *domain.CommentVersion) error {
	return f.freshErr
}

type fakeResolver struct {
	target *ResolvedTarget
	err    error
}

func (f *fakeResolver) Resolve(dbc dbctx.Context, req TargetRequest) (*ResolvedTarget, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.target, nil
}

type fakeGate struct {
	deny map[Capability]bool
}

func (f fakeGate) Check(ctx context.Context, actor domain.ActorRef, root *domain.TreeRoot, capability Capability, node *domain.CommentNode) (bool, error) {
	if f.deny[capability] {
		return false, nil
	}
	return true, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []CommentEvent
	errOn  CommentAction
	onSeen func(CommentAction)
}

func (s *recordingSink) Publish(ctx context.Context, ev CommentEvent) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	if s.onSeen != nil {
		s.onSeen(ev.Action)
	}
	if s.errOn != "" && ev.Action == s.errOn {
		return errors.New("observer rejected")
	}
	return nil
}

type fakeRenderer struct {
	lastTemplate string
	lastData     map[string]interface{}
	html         string
	err          error
}

func (f *fakeRenderer) Render(templateRef string, data map[string]interface{}) (string, error) {
	f.lastTemplate = templateRef
	f.lastData = data
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

type engineFixture struct {
	tree     *fakeTree
	versions *fakeVersions
	guard    *fakeGuard
	resolver *fakeResolver
	gate     fakeGate
	sink     *recordingSink
	renderer *fakeRenderer
	engine   CommentEngine
}

func newEngineFixture(t *testing.T, mutate func(*engineFixture)) *engineFixture {
	t.Helper()
	rootID := uuid.New()
	rootNode := &domain.CommentNode{ID: uuid.New(), TreeRootID: rootID, Level: 0, Path: ""}
	fx := &engineFixture{
		tree: &fakeTree{
			root:     &domain.TreeRoot{ID: rootID, ParentType: "article", ParentID: "42", MaxDepth: 2},
			rootNode: rootNode,
		},
		versions: &fakeVersions{},
		guard:    &fakeGuard{},
		resolver: &fakeResolver{},
		gate:     fakeGate{deny: map[Capability]bool{}},
		sink:     &recordingSink{},
		renderer: &fakeRenderer{html: "<div>rendered</div>"},
	}
	if mutate != nil {
		mutate(fx)
	}
	fx.engine = NewCommentEngine(
		testDB(t),
		testLogger(t),
		fx.tree,
		fx.versions,
		fx.guard,
		fx.resolver,
		NewGateRegistry(fx.gate),
		fx.renderer,
		fx.sink,
		NewParentConfigs(2),
	)
	return fx
}

func draftUnder(parent *domain.CommentNode) *ResolvedTarget {
	parentID := parent.ID
	return &ResolvedTarget{
		Node: &domain.CommentNode{
			TreeRootID: parent.TreeRootID,
			ParentID:   &parentID,
			Level:      parent.Level + 1,
		},
		Parent:  parent,
		IsDraft: true,
	}
}

func TestPostCommentNewReply(t *testing.T) {
	actor := domain.ActorRef{ID: "alice"}
	fx := newEngineFixture(t, func(fx *engineFixture) {
		fx.resolver.target = draftUnder(fx.tree.rootNode)
		parentID := fx.tree.rootNode.ID
		fx.tree.inserted = &domain.CommentNode{
			ID:         uuid.New(),
			TreeRootID: fx.tree.root.ID,
			ParentID:   &parentID,
			Level:      1,
			Position:   1,
			Path:       "0000000001",
			CreatedBy:  actor.ID,
		}
	})

	res, err := fx.engine.PostComment(context.Background(), PostRequest{
		Actor:  actor,
		Target: TargetRequest{ParentNodeID: &fx.tree.rootNode.ID},
		Body:   "hello",
	})
	if err != nil {
		t.Fatalf("PostComment: %v", err)
	}
	if res.Action != ActionPost {
		t.Fatalf("action: want=post got=%s", res.Action)
	}
	if res.Node.ID != fx.tree.inserted.ID {
		t.Fatalf("result node is not the inserted one")
	}
	if len(fx.versions.created) != 1 || fx.versions.created[0].Body != "hello" {
		t.Fatalf("expected one version with the posted body")
	}
	if len(fx.sink.events) != 1 || fx.sink.events[0].Action != ActionPost {
		t.Fatalf("expected one post event, got %+v", fx.sink.events)
	}
	if res.HTML != "<div>rendered</div>" {
		t.Fatalf("html: got %q", res.HTML)
	}
	if fx.renderer.lastTemplate != DefaultCommentsTemplate {
		t.Fatalf("new comments render with %q, got %q", DefaultCommentsTemplate, fx.renderer.lastTemplate)
	}
}

func TestPostCommentStoresOptionsOnVersion(t *testing.T) {
	actor := domain.ActorRef{ID: "alice"}
	fx := newEngineFixture(t, func(fx *engineFixture) {
		fx.resolver.target = draftUnder(fx.tree.rootNode)
		parentID := fx.tree.rootNode.ID
		fx.tree.inserted = &domain.CommentNode{
			ID:         uuid.New(),
			TreeRootID: fx.tree.root.ID,
			ParentID:   &parentID,
			Level:      1,
			Position:   1,
			Path:       "0000000001",
			CreatedBy:  actor.ID,
		}
	})

	options := map[string]interface{}{"page": "2", "highlight": true}
	if _, err := fx.engine.PostComment(context.Background(), PostRequest{
		Actor:   actor,
		Target:  TargetRequest{ParentNodeID: &fx.tree.rootNode.ID},
		Body:    "hello",
		Options: options,
	}); err != nil {
		t.Fatalf("PostComment: %v", err)
	}

	if len(fx.versions.created) != 1 {
		t.Fatalf("expected one version, got %d", len(fx.versions.created))
	}
	meta := fx.versions.created[0].Metadata
	if meta["page"] != "2" || meta["highlight"] != true {
		t.Fatalf("client options not stored on the version: %+v", meta)
	}
	if fx.sink.events[0].Options["page"] != "2" {
		t.Fatalf("observers must see the same options: %+v", fx.sink.events[0].Options)
	}
}

func TestPostCommentEditUsesSingleTemplate(t *testing.T) {
	actor := domain.ActorRef{ID: "alice"}
	prev := uuid.New()
	fx := newEngineFixture(t, func(fx *engineFixture) {
		parentID := fx.tree.rootNode.ID
		node := &domain.CommentNode{
			ID:         uuid.New(),
			TreeRootID: fx.tree.root.ID,
			ParentID:   &parentID,
			Level:      1,
			CreatedBy:  actor.ID,
		}
		fx.resolver.target = &ResolvedTarget{Node: node, Parent: fx.tree.rootNode, PreviousVersionID: &prev}
		fx.guard.node = node
		fx.versions.latest = &domain.CommentVersion{ID: prev, NodeID: node.ID, Body: "old"}
		fx.versions.history = []*domain.CommentVersion{
			{ID: uuid.New(), NodeID: node.ID, Body: "first"},
			{ID: prev, NodeID: node.ID, Body: "old"},
		}
	})

	res, err := fx.engine.PostComment(context.Background(), PostRequest{
		Actor:  actor,
		Target: TargetRequest{NodeID: &fx.guard.node.ID, PreviousVersionID: &prev},
		Body:   "updated",
	})
	if err != nil {
		t.Fatalf("PostComment: %v", err)
	}
	if res.Action != ActionEdit {
		t.Fatalf("action: want=edit got=%s", res.Action)
	}
	if fx.renderer.lastTemplate != DefaultSingleCommentTemplate {
		t.Fatalf("edits render with %q, got %q", DefaultSingleCommentTemplate, fx.renderer.lastTemplate)
	}
	rn, ok := fx.renderer.lastData["node"].(*RenderNode)
	if !ok {
		t.Fatalf("render data has no node: %+v", fx.renderer.lastData)
	}
	// Full history, newest first, not just the fresh version.
	if len(rn.Versions) != 2 {
		t.Fatalf("edit fragment versions: want=2 got=%d", len(rn.Versions))
	}
	if rn.Versions[0].Body != "old" || rn.Versions[1].Body != "first" {
		t.Fatalf("history not newest-first: %q, %q", rn.Versions[0].Body, rn.Versions[1].Body)
	}
	if len(fx.tree.deletedIDs) != 0 {
		t.Fatalf("edit must not delete anything")
	}
}

func TestPostCommentDepthExceeded(t *testing.T) {
	fx := newEngineFixture(t, func(fx *engineFixture) {
		fx.resolver.target = draftUnder(fx.tree.rootNode)
		fx.tree.insertErr = fmt.Errorf("parent at level 2, max depth 2: %w", apperr.ErrDepthExceeded)
	})

	_, err := fx.engine.PostComment(context.Background(), PostRequest{
		Actor:  domain.ActorRef{ID: "alice"},
		Target: TargetRequest{ParentNodeID: &fx.tree.rootNode.ID},
		Body:   "too deep",
	})
	if !errors.Is(err, apperr.ErrDepthExceeded) {
		t.Fatalf("want ErrDepthExceeded, got %v", err)
	}
	if len(fx.versions.created) != 0 {
		t.Fatalf("no version may be written on a depth failure")
	}
	if len(fx.sink.events) != 0 {
		t.Fatalf("no event may fire on a depth failure")
	}
}

func TestPostCommentStaleEdit(t *testing.T) {
	prev := uuid.New()
	fx := newEngineFixture(t, func(fx *engineFixture) {
		parentID := fx.tree.rootNode.ID
		node := &domain.CommentNode{ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &parentID, Level: 1}
		fx.resolver.target = &ResolvedTarget{Node: node, Parent: fx.tree.rootNode, PreviousVersionID: &prev}
		fx.guard.node = node
		fx.versions.latest = &domain.CommentVersion{ID: uuid.New(), NodeID: node.ID}
		fx.guard.freshErr = fmt.Errorf("superseded: %w", apperr.ErrStaleEdit)
	})

	_, err := fx.engine.PostComment(context.Background(), PostRequest{
		Actor:  domain.ActorRef{ID: "alice"},
		Target: TargetRequest{NodeID: &fx.guard.node.ID, PreviousVersionID: &prev},
		Body:   "stale",
	})
	if !errors.Is(err, apperr.ErrStaleEdit) {
		t.Fatalf("want ErrStaleEdit, got %v", err)
	}
	if len(fx.versions.created) != 0 {
		t.Fatalf("stale edit must not append a version")
	}
}

func TestPostCommentRootNodeRejected(t *testing.T) {
	fx := newEngineFixture(t, func(fx *engineFixture) {
		fx.resolver.target = &ResolvedTarget{Node: fx.tree.rootNode}
	})

	_, err := fx.engine.PostComment(context.Background(), PostRequest{
		Actor:  domain.ActorRef{ID: "alice"},
		Target: TargetRequest{NodeID: &fx.tree.rootNode.ID},
		Body:   "x",
	})
	if !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Fatalf("want ErrInvalidTarget, got %v", err)
	}
}

func TestPostCommentPermissionDenied(t *testing.T) {
	fx := newEngineFixture(t, func(fx *engineFixture) {
		fx.resolver.target = draftUnder(fx.tree.rootNode)
		fx.gate.deny[CapPostComment] = true
	})

	_, err := fx.engine.PostComment(context.Background(), PostRequest{
		Actor:  domain.ActorRef{ID: "mallory"},
		Target: TargetRequest{ParentNodeID: &fx.tree.rootNode.ID},
		Body:   "x",
	})
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}
	if got := fx.tree.calls; len(got) > 0 {
		for _, call := range got {
			if call == "Insert" {
				t.Fatalf("insert must not run after a permission failure")
			}
		}
	}
}

func TestPostCommentValidationFailure(t *testing.T) {
	fx := newEngineFixture(t, func(fx *engineFixture) {
		fx.resolver.target = draftUnder(fx.tree.rootNode)
		fx.tree.inserted = &domain.CommentNode{ID: uuid.New(), TreeRootID: fx.tree.root.ID, Level: 1}
		fx.versions.createErr = apperr.NewValidation("body must not be empty")
	})

	_, err := fx.engine.PostComment(context.Background(), PostRequest{
		Actor:  domain.ActorRef{ID: "alice"},
		Target: TargetRequest{ParentNodeID: &fx.tree.rootNode.ID},
		Body:   "",
	})
	ve, ok := apperr.IsValidation(err)
	if !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(ve.Violations) != 1 {
		t.Fatalf("violations: %+v", ve.Violations)
	}
	if len(fx.sink.events) != 0 {
		t.Fatalf("no event may fire on a validation failure")
	}
}

func TestDeleteCommentCascades(t *testing.T) {
	actor := domain.ActorRef{ID: "alice"}
	var target *domain.CommentNode
	var child1, child2 *domain.CommentNode
	fx := newEngineFixture(t, func(fx *engineFixture) {
		parentID := fx.tree.rootNode.ID
		target = &domain.CommentNode{ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &parentID, Level: 1, CreatedBy: actor.ID}
		targetID := target.ID
		child1 = &domain.CommentNode{ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &targetID, Level: 2}
		child2 = &domain.CommentNode{ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &targetID, Level: 2}
		fx.resolver.target = &ResolvedTarget{Node: target, Parent: fx.tree.rootNode}
		fx.tree.desc = []*domain.CommentNode{child1, child2}
	})

	err := fx.engine.DeleteComment(context.Background(), DeleteRequest{
		Actor:  actor,
		Target: TargetRequest{NodeID: &target.ID},
	})
	if err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}

	want := map[uuid.UUID]bool{target.ID: true, child1.ID: true, child2.ID: true}
	if len(fx.tree.deletedIDs) != len(want) {
		t.Fatalf("deleted ids: want=%d got=%d", len(want), len(fx.tree.deletedIDs))
	}
	for _, id := range fx.tree.deletedIDs {
		if !want[id] {
			t.Fatalf("unexpected deleted id %s", id)
		}
	}
	if fx.versions.deletedByNode != target.ID || fx.versions.deletedBy != actor.ID {
		t.Fatalf("deleted_by not stamped on target's latest version")
	}
	if len(fx.sink.events) != 1 || fx.sink.events[0].Action != ActionPreDelete {
		t.Fatalf("expected one pre_delete event, got %+v", fx.sink.events)
	}
}

func TestDeleteCommentRepeatedDeleteIsNoOp(t *testing.T) {
	actor := domain.ActorRef{ID: "alice"}
	var target *domain.CommentNode
	fx := newEngineFixture(t, func(fx *engineFixture) {
		parentID := fx.tree.rootNode.ID
		target = &domain.CommentNode{ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &parentID, Level: 1, CreatedBy: actor.ID}
		fx.resolver.target = &ResolvedTarget{Node: target, Parent: fx.tree.rootNode}
	})

	req := DeleteRequest{Actor: actor, Target: TargetRequest{NodeID: &target.ID}}
	if err := fx.engine.DeleteComment(context.Background(), req); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	// The stored node is now flagged; deleting it again must still succeed.
	target.Deleted = true
	if err := fx.engine.DeleteComment(context.Background(), req); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
	if got := len(fx.tree.deletedIDs); got != 2 {
		t.Fatalf("expected both deletes to reach the monotonic flag update, got %d", got)
	}
}

func TestDeleteCommentVetoAbortsBeforeMutation(t *testing.T) {
	var target *domain.CommentNode
	fx := newEngineFixture(t, func(fx *engineFixture) {
		parentID := fx.tree.rootNode.ID
		target = &domain.CommentNode{ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &parentID, Level: 1, CreatedBy: "alice"}
		fx.resolver.target = &ResolvedTarget{Node: target, Parent: fx.tree.rootNode}
		fx.sink.errOn = ActionPreDelete
	})

	err := fx.engine.DeleteComment(context.Background(), DeleteRequest{
		Actor:  domain.ActorRef{ID: "alice"},
		Target: TargetRequest{NodeID: &target.ID},
	})
	if err == nil {
		t.Fatalf("vetoed delete must fail")
	}
	if len(fx.tree.deletedIDs) != 0 {
		t.Fatalf("veto must run before any mutation, deleted: %v", fx.tree.deletedIDs)
	}
}

func TestDeleteCommentRootRejected(t *testing.T) {
	fx := newEngineFixture(t, func(fx *engineFixture) {
		fx.resolver.target = &ResolvedTarget{Node: fx.tree.rootNode}
	})

	err := fx.engine.DeleteComment(context.Background(), DeleteRequest{
		Actor:  domain.ActorRef{ID: "alice"},
		Target: TargetRequest{NodeID: &fx.tree.rootNode.ID},
	})
	if !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Fatalf("want ErrInvalidTarget, got %v", err)
	}
}

func TestLoadCommentsFiltersDeleted(t *testing.T) {
	fx := newEngineFixture(t, func(fx *engineFixture) {
		rootNode := fx.tree.rootNode
		rootNodeID := rootNode.ID
		live := &domain.CommentNode{
			ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &rootNodeID,
			Level: 1, Position: 1, Path: "0000000001", CreatedBy: "alice",
			Versions: []*domain.CommentVersion{{ID: uuid.New(), Body: "visible"}},
		}
		gone := &domain.CommentNode{
			ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &rootNodeID,
			Level: 1, Position: 2, Path: "0000000002", Deleted: true,
			Versions: []*domain.CommentVersion{{ID: uuid.New(), Body: "hidden"}},
		}
		fx.tree.family = []*domain.CommentNode{rootNode, live, gone}
		fx.tree.count = 2
	})

	res, err := fx.engine.LoadComments(context.Background(), LoadRequest{
		Actor:  domain.ActorRef{ID: "alice"},
		Parent: domain.ParentRef{Type: "article", ID: "42"},
	})
	if err != nil {
		t.Fatalf("LoadComments: %v", err)
	}
	if res.NumberOfComments != 2 {
		t.Fatalf("count: want=2 got=%d", res.NumberOfComments)
	}
	nodes, ok := fx.renderer.lastData["nodes"].([]*RenderNode)
	if !ok {
		t.Fatalf("renderer did not receive nodes")
	}
	if len(nodes) != 1 {
		t.Fatalf("deleted nodes must be filtered from rendering, got %d", len(nodes))
	}
	if nodes[0].Latest == nil || nodes[0].Latest.Body != "visible" {
		t.Fatalf("latest version not threaded through: %+v", nodes[0].Latest)
	}
}

func TestLoadCommentsDropsOrphanedSubtree(t *testing.T) {
	fx := newEngineFixture(t, func(fx *engineFixture) {
		rootNode := fx.tree.rootNode
		rootNodeID := rootNode.ID
		gone := &domain.CommentNode{
			ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &rootNodeID,
			Level: 1, Position: 1, Path: "0000000001", Deleted: true,
		}
		goneID := gone.ID
		orphan := &domain.CommentNode{
			ID: uuid.New(), TreeRootID: fx.tree.root.ID, ParentID: &goneID,
			Level: 2, Position: 1, Path: gone.ChildPath(1),
			Versions: []*domain.CommentVersion{{ID: uuid.New(), Body: "reply"}},
		}
		fx.tree.family = []*domain.CommentNode{rootNode, gone, orphan}
		fx.tree.count = 2
	})

	_, err := fx.engine.LoadComments(context.Background(), LoadRequest{
		Actor:  domain.ActorRef{ID: "alice"},
		Parent: domain.ParentRef{Type: "article", ID: "42"},
	})
	if err != nil {
		t.Fatalf("LoadComments: %v", err)
	}
	nodes := fx.renderer.lastData["nodes"].([]*RenderNode)
	if len(nodes) != 0 {
		t.Fatalf("children of filtered nodes must not render as top-level, got %d", len(nodes))
	}
}
