package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CommentVersion is one immutable content snapshot of a node. Editing a
// comment appends a new row; nothing ever updates Body or PostedAt. The only
// post-hoc write is DeletedBy, recorded on the latest version when the node
// is soft-deleted.
type CommentVersion struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	NodeID uuid.UUID `gorm:"type:uuid;not null;index:idx_comment_version_node_posted,priority:1" json:"node_id"`

	Body     string  `gorm:"column:body;type:text;not null" json:"body"`
	PostedBy string  `gorm:"column:posted_by;not null" json:"posted_by"`
	DeletedBy *string `gorm:"column:deleted_by" json:"deleted_by,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`

	PostedAt  time.Time `gorm:"column:posted_at;not null;default:now();index:idx_comment_version_node_posted,priority:2" json:"posted_at"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CommentVersion) TableName() string { return "comment_version" }
