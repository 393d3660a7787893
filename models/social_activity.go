package models

import "time"

// Activity kinds surfaced on the social feed.
const (
	ActivityXPAwarded       = "xp_awarded"
	ActivityStreakMilestone = "streak_milestone"
	ActivityBoosterGifted   = "booster_gifted"
	ActivityEntitlement     = "entitlement_granted"
)

// SocialActivity is an audit/feed record describing a progression event.
// Rows are write-only from the engine's perspective; the feed reader is an
// external collaborator.
type SocialActivity struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID   string `gorm:"index;not null" json:"user_id"`
	Kind     string `gorm:"size:48;not null;index" json:"kind"`
	Message  string `gorm:"size:255" json:"message"`
	Metadata string `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
