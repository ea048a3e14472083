package domain

import (
	"time"

	"github.com/google/uuid"
)

// TreeRoot anchors one discussion tree per (parent_type, parent_id). The
// composite unique index is what lets concurrent first-loads converge on a
// single row via insert-or-fetch.
type TreeRoot struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ParentType string    `gorm:"column:parent_type;not null;index:idx_tree_root_parent,unique,priority:1" json:"parent_type"`
	ParentID   string    `gorm:"column:parent_id;not null;index:idx_tree_root_parent,unique,priority:2" json:"parent_id"`
	MaxDepth   int       `gorm:"column:max_depth;not null;default:2" json:"max_depth"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TreeRoot) TableName() string { return "tree_root" }

func (t *TreeRoot) ParentRef() ParentRef {
	return ParentRef{Type: t.ParentType, ID: t.ParentID}
}
