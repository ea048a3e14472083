package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// pathSegmentWidth fixes the zero-padded width of one materialized-path
// segment. Lexicographic order over paths is pre-order over the tree as
// long as sibling positions stay below 10^10.
const pathSegmentWidth = 10

// CommentNode is one node of a discussion tree. The synthetic root node
// (ParentID nil, Level 0) carries no versions; every other node appends as
// last child of its parent and is never relocated. Deletion is a monotonic
// flag flip so the audit trail survives.
type CommentNode struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TreeRootID uuid.UUID  `gorm:"type:uuid;not null;index" json:"tree_root_id"`
	ParentID   *uuid.UUID `gorm:"type:uuid;index:idx_comment_node_sibling,unique,priority:1" json:"parent_id,omitempty"`

	Level    int    `gorm:"column:level;not null" json:"level"`
	Position int64  `gorm:"column:position;not null;index:idx_comment_node_sibling,unique,priority:2" json:"position"`
	Path     string `gorm:"column:path;type:text;not null;index:idx_comment_node_path" json:"path"`

	Deleted   bool   `gorm:"column:deleted;not null;default:false;index" json:"deleted"`
	CreatedBy string `gorm:"column:created_by;not null" json:"created_by"`

	Versions []*CommentVersion `gorm:"foreignKey:NodeID;references:ID" json:"versions,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CommentNode) TableName() string { return "comment_node" }

func (n *CommentNode) IsRoot() bool { return n.ParentID == nil }

// ChildPath builds the materialized path for a child of n at the given
// sibling position.
func (n *CommentNode) ChildPath(position int64) string {
	seg := fmt.Sprintf("%0*d", pathSegmentWidth, position)
	if n.Path == "" {
		return seg
	}
	return n.Path + "." + seg
}

// SubtreePrefix is the path prefix shared by every descendant of n. For the
// root node (empty path) that is the empty string, which matches the whole
// tree.
func (n *CommentNode) SubtreePrefix() string {
	if n.Path == "" {
		return ""
	}
	return n.Path + "."
}
