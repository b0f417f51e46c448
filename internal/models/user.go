package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role determines which lifecycle actions an account may perform.
type Role string

// Account roles.
const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// UserAccount represents a platform account. Students authenticate with
// a self-chosen student ID, admins with their email. Only students hold
// a priority-point balance; for admins PriorityPoints is nil.
type UserAccount struct {
	UID            string    `gorm:"primaryKey;size:36" json:"uid"`
	Email          string    `gorm:"size:255;uniqueIndex:idx_users_email,where:email <> ''" json:"email,omitempty"`
	StudentID      string    `gorm:"size:100;uniqueIndex:idx_users_student_id,where:student_id <> ''" json:"student_id,omitempty"`
	PasswordHash   string    `gorm:"size:100;not null" json:"-"`
	Role           Role      `gorm:"size:20;not null;index" json:"role"`
	FullName       string    `gorm:"size:255" json:"full_name,omitempty"`
	Post           string    `gorm:"size:100" json:"post,omitempty"` // elevated admin title, e.g. "Faculty Head"
	PriorityPoints *int      `json:"priority_points,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserAccount model.
func (UserAccount) TableName() string {
	return "users"
}

// BeforeCreate assigns a fresh UUID when the account has no UID yet.
func (u *UserAccount) BeforeCreate(tx *gorm.DB) error {
	if u.UID == "" {
		u.UID = uuid.New().String()
	}
	return nil
}

// Identifier returns the credential the account logs in with.
func (u *UserAccount) Identifier() string {
	if u.Role == RoleAdmin {
		return u.Email
	}
	return u.StudentID
}

// Balance returns the remaining point balance, 0 for non-students.
func (u *UserAccount) Balance() int {
	if u.PriorityPoints == nil {
		return 0
	}
	return *u.PriorityPoints
}
