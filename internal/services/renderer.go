package services

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

const (
	DefaultCommentsTemplate      = "comments"
	DefaultSingleCommentTemplate = "single_comment"
)

// RenderNode is one comment prepared for a template: current content plus
// the capability flags computed once by the engine so templates never do
// permission work.
type RenderNode struct {
	Node      *domain.CommentNode
	Latest    *domain.CommentVersion
	Versions  []*domain.CommentVersion
	CanEdit   bool
	CanDelete bool
	CanReply  bool
	Children  []*RenderNode
}

// Renderer produces the HTML fragment returned in the response envelope.
// The engine builds the context map; templateRef names a parsed template.
type Renderer interface {
	Render(templateRef string, data map[string]interface{}) (string, error)
}

type htmlRenderer struct {
	log *logger.Logger
	tpl *template.Template
}

// NewHTMLRenderer parses the embedded default templates and, when extraDir
// is set, site overrides layered on top (same define names win).
func NewHTMLRenderer(baseLog *logger.Logger, extraDir string) (Renderer, error) {
	tpl, err := template.ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse embedded templates: %w", err)
	}
	if extraDir != "" {
		tpl, err = tpl.ParseGlob(filepath.Join(extraDir, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("parse template overrides from %s: %w", extraDir, err)
		}
	}
	return &htmlRenderer{
		log: baseLog.With("service", "Renderer"),
		tpl: tpl,
	}, nil
}

func (r *htmlRenderer) Render(templateRef string, data map[string]interface{}) (string, error) {
	if templateRef == "" {
		templateRef = DefaultCommentsTemplate
	}
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, templateRef, data); err != nil {
		return "", fmt.Errorf("render %q: %w", templateRef, err)
	}
	return buf.String(), nil
}
