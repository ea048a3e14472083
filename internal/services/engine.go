package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/commentree-backend/internal/apperr"
	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/pkg/dbctx"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

// LoadRequest asks for the rendered tree of one parent object, creating the
// tree root lazily on first access.
type LoadRequest struct {
	Actor   domain.ActorRef
	Parent  domain.ParentRef
	Options map[string]interface{}
}

type LoadResult struct {
	HTML             string
	NumberOfComments int64
}

// PostRequest creates a comment (target names a parent) or edits one
// (target names an existing node, optionally with the version the client
// loaded the page against).
type PostRequest struct {
	Actor   domain.ActorRef
	Target  TargetRequest
	Body    string
	Options map[string]interface{}
}

type PostResult struct {
	Action  CommentAction
	Node    *domain.CommentNode
	Version *domain.CommentVersion
	HTML    string
}

type DeleteRequest struct {
	Actor   domain.ActorRef
	Target  TargetRequest
	Options map[string]interface{}
}

// CommentEngine runs each operation as one transaction implementing the
// resolve → permission → depth → lock → freshness → persist → event →
// render pipeline. Any failed step rolls the whole operation back.
type CommentEngine interface {
	LoadComments(ctx context.Context, req LoadRequest) (*LoadResult, error)
	PostComment(ctx context.Context, req PostRequest) (*PostResult, error)
	DeleteComment(ctx context.Context, req DeleteRequest) error
}

type commentEngine struct {
	db       *gorm.DB
	log      *logger.Logger
	tree     TreeService
	versions VersionService
	guard    ConcurrencyGuard
	resolver ContentResolver
	gates    *GateRegistry
	renderer Renderer
	sink     EventSink
	cfgs     *ParentConfigs
}

func NewCommentEngine(
	db *gorm.DB,
	baseLog *logger.Logger,
	tree TreeService,
	versions VersionService,
	guard ConcurrencyGuard,
	resolver ContentResolver,
	gates *GateRegistry,
	renderer Renderer,
	sink EventSink,
	cfgs *ParentConfigs,
) CommentEngine {
	if sink == nil {
		sink = NopSink{}
	}
	return &commentEngine{
		db:       db,
		log:      baseLog.With("service", "CommentEngine"),
		tree:     tree,
		versions: versions,
		guard:    guard,
		resolver: resolver,
		gates:    gates,
		renderer: renderer,
		sink:     sink,
		cfgs:     cfgs,
	}
}

func (e *commentEngine) LoadComments(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	if !req.Parent.Valid() {
		return nil, fmt.Errorf("missing parent object: %w", apperr.ErrInvalidTarget)
	}
	cfg := e.cfgs.For(req.Parent.Type)

	var out *LoadResult
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		root, rootNode, err := e.tree.GetOrCreateRoot(dbc, req.Parent, cfg.MaxDepth)
		if err != nil {
			return err
		}
		if err := e.checkPermission(ctx, req.Actor, root, CapViewComments, nil); err != nil {
			return err
		}

		family, err := e.tree.Family(dbc, root)
		if err != nil {
			return err
		}
		visible := cfg.FilterNodes(family, FilterContext{Actor: req.Actor, Options: req.Options})
		nodes := e.buildRenderTree(ctx, req.Actor, root, rootNode, visible)

		html, err := e.renderer.Render(cfg.CommentsTemplate, map[string]interface{}{
			"nodes":         nodes,
			"parent_object": root.ParentRef(),
			"max_depth":     root.MaxDepth,
			"options":       req.Options,
		})
		if err != nil {
			return err
		}

		count, err := e.tree.CountDescendants(dbc, root)
		if err != nil {
			return err
		}
		out = &LoadResult{HTML: html, NumberOfComments: count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *commentEngine) PostComment(ctx context.Context, req PostRequest) (*PostResult, error) {
	var out *PostResult
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		target, err := e.resolver.Resolve(dbc, req.Target)
		if err != nil {
			return err
		}
		if !target.IsDraft && target.Node.IsRoot() {
			return fmt.Errorf("the root node has no content to edit: %w", apperr.ErrInvalidTarget)
		}

		root, err := e.tree.RootOf(dbc, target.Node)
		if err != nil {
			return err
		}
		if err := e.checkPermission(ctx, req.Actor, root, CapPostComment, target.Node); err != nil {
			return err
		}

		node := target.Node
		action := ActionEdit
		if target.IsDraft {
			action = ActionPost
			node, err = e.tree.Insert(dbc, target.Parent, req.Actor.ID)
			if err != nil {
				return err
			}
		} else {
			node, err = e.guard.Acquire(dbc, node.ID)
			if err != nil {
				return err
			}
			latest, err := e.versions.Latest(dbc, node.ID)
			if err != nil && !errors.Is(err, apperr.ErrNotFound) {
				return err
			}
			if err := e.guard.CheckFreshness(target.PreviousVersionID, latest); err != nil {
				return err
			}
		}

		// Client options ride along on the version row, mirroring the
		// payload handed to observers.
		var meta datatypes.JSONMap
		if len(req.Options) > 0 {
			meta = datatypes.JSONMap(req.Options)
		}
		version, err := e.versions.Create(dbc, node, req.Body, req.Actor, meta)
		if err != nil {
			return err
		}

		if err := e.sink.Publish(ctx, CommentEvent{
			Action:  action,
			Parent:  root.ParentRef(),
			Node:    node,
			Version: version,
			Actor:   req.Actor,
			Options: req.Options,
		}); err != nil {
			return fmt.Errorf("%s observer rejected the operation: %w", action, err)
		}

		html, err := e.renderSingle(ctx, dbc, req, root, node, version, action)
		if err != nil {
			return err
		}
		out = &PostResult{Action: action, Node: node, Version: version, HTML: html}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *commentEngine) DeleteComment(ctx context.Context, req DeleteRequest) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		target, err := e.resolver.Resolve(dbc, req.Target)
		if err != nil {
			return err
		}
		if target.IsDraft || target.Node.IsRoot() {
			return fmt.Errorf("delete requires an existing comment: %w", apperr.ErrInvalidTarget)
		}
		node := target.Node

		root, err := e.tree.RootOf(dbc, node)
		if err != nil {
			return err
		}
		if err := e.checkPermission(ctx, req.Actor, root, CapDeleteComment, node); err != nil {
			return err
		}

		// Observers see the delete before any mutation and may veto it by
		// returning an error.
		if err := e.sink.Publish(ctx, CommentEvent{
			Action:  ActionPreDelete,
			Parent:  root.ParentRef(),
			Node:    node,
			Actor:   req.Actor,
			Options: req.Options,
		}); err != nil {
			return fmt.Errorf("pre_delete observer rejected the operation: %w", err)
		}

		descendants, err := e.tree.Descendants(dbc, node)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(descendants)+1)
		ids = append(ids, node.ID)
		for _, d := range descendants {
			ids = append(ids, d.ID)
		}
		// Monotonic flag flip; no lock, re-deleting is a no-op.
		if err := e.tree.MarkDeleted(dbc, ids); err != nil {
			return err
		}
		if err := e.versions.RecordDeletedBy(dbc, node.ID, req.Actor); err != nil {
			// A node with zero versions has nothing to stamp.
			if !errors.Is(err, apperr.ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Unexpected store failures are reported generically; taxonomy errors
		// pass through for the handler to map.
		if !isTaxonomyError(err) {
			e.log.Error("delete failed", "error", err)
			return fmt.Errorf("delete: %w", apperr.ErrStorage)
		}
		return err
	}
	return nil
}

func (e *commentEngine) checkPermission(ctx context.Context, actor domain.ActorRef, root *domain.TreeRoot, capability Capability, node *domain.CommentNode) error {
	gate := e.gates.For(root.ParentType)
	ok, err := gate.Check(ctx, actor, root, capability, node)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s on %s: %w", capability, root.ParentRef(), apperr.ErrPermissionDenied)
	}
	return nil
}

// renderSingle renders the fragment returned from a post or edit: the full
// comments template for a new node (the client splices the whole block),
// the single-comment template for an edit.
func (e *commentEngine) renderSingle(ctx context.Context, dbc dbctx.Context, req PostRequest, root *domain.TreeRoot, node *domain.CommentNode, version *domain.CommentVersion, action CommentAction) (string, error) {
	cfg := e.cfgs.For(root.ParentType)
	versions := []*domain.CommentVersion{version}
	if action == ActionEdit {
		// The single-comment fragment shows edit history, newest first.
		history, err := e.versions.History(dbc, node.ID)
		if err != nil {
			return "", err
		}
		if len(history) > 0 {
			versions = make([]*domain.CommentVersion, 0, len(history))
			for i := len(history) - 1; i >= 0; i-- {
				versions = append(versions, history[i])
			}
		}
	}
	rn := &RenderNode{
		Node:      node,
		Latest:    version,
		Versions:  versions,
		CanEdit:   node.CreatedBy == req.Actor.ID,
		CanDelete: e.can(ctx, req.Actor, root, CapDeleteComment, node),
		CanReply:  node.Level < root.MaxDepth && e.can(ctx, req.Actor, root, CapPostComment, node),
	}
	data := map[string]interface{}{
		"node":           rn,
		"nodes":          []*RenderNode{rn},
		"latest_version": version,
		"parent_object":  root.ParentRef(),
		"max_depth":      root.MaxDepth,
		"options":        req.Options,
	}
	templateRef := cfg.CommentsTemplate
	if action == ActionEdit {
		templateRef = cfg.SingleCommentTemplate
	}
	return e.renderer.Render(templateRef, data)
}

func (e *commentEngine) can(ctx context.Context, actor domain.ActorRef, root *domain.TreeRoot, capability Capability, node *domain.CommentNode) bool {
	ok, err := e.gates.For(root.ParentType).Check(ctx, actor, root, capability, node)
	return err == nil && ok
}

// buildRenderTree nests pre-ordered nodes under their parents, skipping the
// synthetic root and any node whose parent was filtered out, and annotates
// each with the actor's capabilities.
func (e *commentEngine) buildRenderTree(ctx context.Context, actor domain.ActorRef, root *domain.TreeRoot, rootNode *domain.CommentNode, nodes []*domain.CommentNode) []*RenderNode {
	byID := make(map[uuid.UUID]*RenderNode, len(nodes))
	var top []*RenderNode
	for _, n := range nodes {
		if n.IsRoot() {
			continue
		}
		rn := &RenderNode{
			Node:      n,
			Versions:  n.Versions,
			CanEdit:   n.CreatedBy == actor.ID,
			CanDelete: e.can(ctx, actor, root, CapDeleteComment, n),
			CanReply:  n.Level < root.MaxDepth && e.can(ctx, actor, root, CapPostComment, n),
		}
		if len(n.Versions) > 0 {
			rn.Latest = n.Versions[0]
		}
		byID[n.ID] = rn
		switch {
		case rootNode != nil && n.ParentID != nil && *n.ParentID == rootNode.ID:
			top = append(top, rn)
		case n.ParentID != nil:
			if parent, ok := byID[*n.ParentID]; ok {
				parent.Children = append(parent.Children, rn)
			}
			// A filtered-out parent drops the whole subtree from rendering.
		}
	}
	return top
}

func isTaxonomyError(err error) bool {
	if _, ok := apperr.IsValidation(err); ok {
		return true
	}
	return errors.Is(err, apperr.ErrInvalidTarget) ||
		errors.Is(err, apperr.ErrPermissionDenied) ||
		errors.Is(err, apperr.ErrDepthExceeded) ||
		errors.Is(err, apperr.ErrConcurrentEdit) ||
		errors.Is(err, apperr.ErrStaleEdit) ||
		errors.Is(err, apperr.ErrNotFound)
}
