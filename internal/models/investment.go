package models

import (
	"time"
)

// Investment is one append-only entry in the point-transfer ledger.
// Every successful transfer of priority points from a student balance
// to a complaint writes exactly one row, inside the same transaction
// as the two balance updates. The unique idempotency key lets a
// retried attempt be recognized instead of applied twice, and makes a
// half-applied transfer detectable during recovery.
type Investment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	IdempotencyKey string    `gorm:"size:64;uniqueIndex;not null" json:"idempotency_key"`
	UserID         string    `gorm:"size:36;not null;index" json:"user_id"`
	ComplaintID    string    `gorm:"size:16;not null;index" json:"complaint_id"`
	Amount         int       `gorm:"not null" json:"amount"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for Investment model.
func (Investment) TableName() string {
	return "investments"
}
