package models

import "time"

// LedgerEntry is the append-only audit record of a processed action.
// ActionID is the caller-supplied idempotency token: the unique index is
// the boundary that makes every mutating operation safe to retry: a
// concurrent duplicate insert loses the race, sees zero rows affected and
// takes the no-op success path.
type LedgerEntry struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ActionID string `gorm:"uniqueIndex;not null" json:"action_id"`
	UserID   string `gorm:"index;not null" json:"user_id"`
	Amount   int64  `json:"amount"` // final, post-bonus XP (0 for non-XP actions)
	Source   string `gorm:"size:128" json:"source"`
	Metadata string `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
