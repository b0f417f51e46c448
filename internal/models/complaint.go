// Package models defines domain models for the campus complaint platform.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status represents a complaint's position in the resolution lifecycle.
// The values are stored and displayed verbatim, so they must not change.
type Status string

// Complaint lifecycle statuses.
const (
	StatusUnsolved            Status = "Unsolved"
	StatusUnderInvestigation  Status = "Approved and Under Investigation"
	StatusPendingVerification Status = "Pending Verification"
	StatusSolved              Status = "Solved"
	StatusRejected            Status = "Rejected"
)

// Action is a status-changing operation requested by a caller.
type Action string

// Status transition actions.
const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionMarkSolved Action = "mark_solved"
	ActionConfirmFix Action = "confirm_fix"
	ActionReopen     Action = "reopen"
)

// StringList stores an ordered list of strings as a JSON text column.
// Order is preserved for display; deduplication happens at submit time.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for string list", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("failed to unmarshal string list: %w", err)
	}
	return nil
}

// Complaint represents a single reported issue tracked through the lifecycle.
// Complaints are never deleted; they only move between statuses.
type Complaint struct {
	ID             string     `gorm:"primaryKey;size:16" json:"id"` // e.g. "PRB-042"
	Title          string     `gorm:"type:text;not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Category       string     `gorm:"size:100;index" json:"category"`
	Hashtags       StringList `gorm:"type:text" json:"hashtags"`
	AuthorName     string     `gorm:"size:255" json:"author_name"`
	AuthorYear     string     `gorm:"size:50" json:"author_year,omitempty"`
	AuthorBranch   string     `gorm:"size:100" json:"author_branch,omitempty"`
	Status         Status     `gorm:"size:50;index" json:"status"`
	PriorityPoints int        `gorm:"not null;default:0" json:"priority_points"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relationships (append-only).
	StatusHistory []StatusChange `gorm:"foreignKey:ComplaintID" json:"status_history,omitempty"`
	Replies       []Reply        `gorm:"foreignKey:ComplaintID" json:"replies,omitempty"`
}

// TableName specifies the table name for Complaint model.
func (Complaint) TableName() string {
	return "complaints"
}

// CurrentStatusChange returns the latest history entry, or nil for a
// complaint whose history has not been loaded.
func (c *Complaint) CurrentStatusChange() *StatusChange {
	if len(c.StatusHistory) == 0 {
		return nil
	}
	return &c.StatusHistory[len(c.StatusHistory)-1]
}

// IsTerminal reports whether the complaint can no longer change status.
func (c *Complaint) IsTerminal() bool {
	return c.Status == StatusSolved || c.Status == StatusRejected
}

// StatusChange is one append-only entry in a complaint's status history.
type StatusChange struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID string    `gorm:"size:16;not null;index" json:"complaint_id"`
	Status      Status    `gorm:"size:50;not null" json:"status"`
	Timestamp   time.Time `gorm:"not null" json:"timestamp"`
}

// TableName specifies the table name for StatusChange model.
func (StatusChange) TableName() string {
	return "status_changes"
}

// Reply is a discussion entry on a complaint. Replies are appended,
// never edited or removed.
type Reply struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ComplaintID string    `gorm:"size:16;not null;index" json:"complaint_id"`
	AuthorName  string    `gorm:"size:255" json:"author_name"`
	AuthorIsOP  bool      `gorm:"not null;default:false" json:"author_is_op"`
	AuthorPost  string    `gorm:"size:100" json:"author_post,omitempty"` // admin title, e.g. "Faculty Head"
	Content     string    `gorm:"type:text;not null" json:"content"`
	Upvotes     int       `gorm:"not null;default:0" json:"upvotes"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for Reply model.
func (Reply) TableName() string {
	return "replies"
}

// BeforeCreate assigns a fresh UUID when the reply has no ID yet.
func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
