package services

import (
	"strings"
	"sync"

	"github.com/yungbote/commentree-backend/internal/domain"
)

const DefaultMaxDepth = 2

// FilterContext is handed to filter_nodes hooks alongside the nodes about
// to be rendered.
type FilterContext struct {
	Actor   domain.ActorRef
	Options map[string]interface{}
}

// FilterFunc decides which nodes a tree load renders. Storage is never
// touched; filtered nodes stay in the audit trail.
type FilterFunc func(nodes []*domain.CommentNode, fc FilterContext) []*domain.CommentNode

// DefaultFilter hides soft-deleted nodes.
func DefaultFilter(nodes []*domain.CommentNode, _ FilterContext) []*domain.CommentNode {
	out := make([]*domain.CommentNode, 0, len(nodes))
	for _, n := range nodes {
		if n.Deleted {
			continue
		}
		out = append(out, n)
	}
	return out
}

// ParentTypeConfig is the per-parent-object-type surface recognized by the
// engine: depth limit, template refs, and the render filter hook.
type ParentTypeConfig struct {
	MaxDepth              int
	CommentsTemplate      string
	SingleCommentTemplate string
	FilterNodes           FilterFunc
}

// ParentConfigs resolves configuration by parent type. Settings come from
// the config file; hooks are registered in code at wiring time.
type ParentConfigs struct {
	mu       sync.RWMutex
	defaults ParentTypeConfig
	byType   map[string]ParentTypeConfig
}

func NewParentConfigs(defaultMaxDepth int) *ParentConfigs {
	if defaultMaxDepth < 0 {
		defaultMaxDepth = DefaultMaxDepth
	}
	return &ParentConfigs{
		defaults: ParentTypeConfig{
			MaxDepth:              defaultMaxDepth,
			CommentsTemplate:      DefaultCommentsTemplate,
			SingleCommentTemplate: DefaultSingleCommentTemplate,
			FilterNodes:           DefaultFilter,
		},
		byType: make(map[string]ParentTypeConfig),
	}
}

func (p *ParentConfigs) Set(parentType string, cfg ParentTypeConfig) {
	parentType = strings.TrimSpace(parentType)
	if parentType == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byType[parentType] = cfg
}

// SetFilter attaches a filter hook without disturbing file-sourced settings.
func (p *ParentConfigs) SetFilter(parentType string, fn FilterFunc) {
	parentType = strings.TrimSpace(parentType)
	if parentType == "" || fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg, ok := p.byType[parentType]
	if !ok {
		cfg = p.defaults
	}
	cfg.FilterNodes = fn
	p.byType[parentType] = cfg
}

// For returns the effective config for a parent type with defaults filled
// in for anything unset.
func (p *ParentConfigs) For(parentType string) ParentTypeConfig {
	p.mu.RLock()
	cfg, ok := p.byType[parentType]
	p.mu.RUnlock()
	if !ok {
		return p.defaults
	}
	// MaxDepth 0 is a legal explicit setting (no replies below the root), so
	// only a negative value falls back to the default.
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = p.defaults.MaxDepth
	}
	if cfg.CommentsTemplate == "" {
		cfg.CommentsTemplate = p.defaults.CommentsTemplate
	}
	if cfg.SingleCommentTemplate == "" {
		cfg.SingleCommentTemplate = p.defaults.SingleCommentTemplate
	}
	if cfg.FilterNodes == nil {
		cfg.FilterNodes = p.defaults.FilterNodes
	}
	return cfg
}
