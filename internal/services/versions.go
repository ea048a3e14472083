package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/commentree-backend/internal/apperr"
	"github.com/yungbote/commentree-backend/internal/data/repos/comments"
	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/pkg/dbctx"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

const DefaultMaxBodyLen = 65535

// VersionService is the append-only version log. Editing a comment means
// calling Create again for the same node; displayed content is always
// Latest.
type VersionService interface {
	// Create validates the body and appends a new version. Constraint
	// violations come back as *apperr.ValidationError and nothing is written.
	Create(dbc dbctx.Context, node *domain.CommentNode, body string, author domain.ActorRef, meta datatypes.JSONMap) (*domain.CommentVersion, error)
	// Latest returns the newest version; apperr.ErrNotFound for a node with
	// zero versions (should not occur post-creation, handled defensively).
	Latest(dbc dbctx.Context, nodeID uuid.UUID) (*domain.CommentVersion, error)
	History(dbc dbctx.Context, nodeID uuid.UUID) ([]*domain.CommentVersion, error)
	// RecordDeletedBy stamps the deleting actor on the node's latest version.
	RecordDeletedBy(dbc dbctx.Context, nodeID uuid.UUID, actor domain.ActorRef) error
}

type versionService struct {
	db         *gorm.DB
	log        *logger.Logger
	versions   comments.CommentVersionRepo
	validate   *validator.Validate
	maxBodyLen int
}

func NewVersionService(db *gorm.DB, baseLog *logger.Logger, versions comments.CommentVersionRepo, maxBodyLen int) VersionService {
	if maxBodyLen <= 0 {
		maxBodyLen = DefaultMaxBodyLen
	}
	return &versionService{
		db:         db,
		log:        baseLog.With("service", "VersionService"),
		versions:   versions,
		validate:   validator.New(),
		maxBodyLen: maxBodyLen,
	}
}

func (s *versionService) Create(dbc dbctx.Context, node *domain.CommentNode, body string, author domain.ActorRef, meta datatypes.JSONMap) (*domain.CommentVersion, error) {
	if node == nil || node.ID == uuid.Nil {
		return nil, fmt.Errorf("missing node")
	}
	// Surrounding whitespace is not content; a blank body stays invalid.
	body = strings.TrimSpace(body)
	if err := s.validateDraft(body, author); err != nil {
		return nil, err
	}
	row := &domain.CommentVersion{
		ID:       uuid.New(),
		NodeID:   node.ID,
		Body:     body,
		PostedBy: author.ID,
		Metadata: meta,
		PostedAt: time.Now().UTC(),
	}
	if _, err := s.versions.Create(dbc, []*domain.CommentVersion{row}); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *versionService) validateDraft(body string, author domain.ActorRef) error {
	var violations []string
	if err := s.validate.Var(body, "required"); err != nil {
		violations = append(violations, "body must not be empty")
	} else if err := s.validate.Var(body, fmt.Sprintf("max=%d", s.maxBodyLen)); err != nil {
		violations = append(violations, fmt.Sprintf("body exceeds %d characters", s.maxBodyLen))
	}
	if err := s.validate.Var(author.ID, "required"); err != nil {
		violations = append(violations, "posting user is required")
	}
	if len(violations) > 0 {
		return apperr.NewValidation(violations...)
	}
	return nil
}

func (s *versionService) Latest(dbc dbctx.Context, nodeID uuid.UUID) (*domain.CommentVersion, error) {
	return s.versions.LatestByNode(dbc, nodeID)
}

func (s *versionService) History(dbc dbctx.Context, nodeID uuid.UUID) ([]*domain.CommentVersion, error) {
	return s.versions.ListByNode(dbc, nodeID)
}

func (s *versionService) RecordDeletedBy(dbc dbctx.Context, nodeID uuid.UUID, actor domain.ActorRef) error {
	latest, err := s.versions.LatestByNode(dbc, nodeID)
	if err != nil {
		return err
	}
	return s.versions.SetDeletedBy(dbc, latest.ID, actor.ID)
}
