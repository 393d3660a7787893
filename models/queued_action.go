package models

import (
	"encoding/json"
	"time"
)

// ActionKind tags a queued offline action with its payload shape. The
// replay dispatcher matches exhaustively on this tag; an unknown kind is
// terminal, not a runtime panic.
type ActionKind string

const (
	ActionAwardXP       ActionKind = "award_xp"
	ActionDailyActivity ActionKind = "daily_activity"
	ActionGracePass     ActionKind = "grace_pass"
	ActionBooster       ActionKind = "booster"
)

// Valid reports whether k names a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionAwardXP, ActionDailyActivity, ActionGracePass, ActionBooster:
		return true
	}
	return false
}

// AwardXPPayload carries the arguments of a queued XP award.
type AwardXPPayload struct {
	BaseAmount int64  `json:"base_amount"`
	Source     string `json:"source"`
	Metadata   string `json:"metadata,omitempty"`
}

// BoosterPayload carries the arguments of a queued booster purchase/gift.
type BoosterPayload struct {
	TargetUserID string      `json:"target_user_id"`
	BoosterType  BoosterType `json:"booster_type"`
}

// QueuedAction is an action the client could not process synchronously.
// Entries are drained oldest-first and marked processed exactly once,
// regardless of outcome, so a permanently failing action can never starve
// the queue.
type QueuedAction struct {
	ID       string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID   string     `gorm:"index;not null" json:"user_id"`
	ActionID string     `gorm:"uniqueIndex;not null" json:"action_id"`
	Kind     ActionKind `gorm:"size:32;not null" json:"kind"`
	Payload  string     `gorm:"type:jsonb" json:"payload,omitempty"`

	Processed   bool       `gorm:"default:false;index" json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// DecodePayload unmarshals the payload into dst.
func (a *QueuedAction) DecodePayload(dst any) error {
	return json.Unmarshal([]byte(a.Payload), dst)
}
