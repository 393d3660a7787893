package models

import "time"

// BoosterType identifies the XP multiplier tier of a booster.
type BoosterType string

const (
	BoosterType2x BoosterType = "2x"
	BoosterType3x BoosterType = "3x"
)

// Booster durations are fixed per type: the stronger multiplier gets the
// shorter window for balance.
const (
	Booster2xDuration = 2 * time.Hour
	Booster3xDuration = 1 * time.Hour
)

// Gem prices per booster type.
const (
	Booster2xCost = 100
	Booster3xCost = 150
)

// Booster is a time-limited XP multiplier granted to a user. A user may
// hold several rows; only non-expired ones count, and when more than one
// is live the latest expiry wins.
type Booster struct {
	ID         string      `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID     string      `gorm:"index;not null" json:"user_id"`
	Type       BoosterType `gorm:"size:8;not null" json:"type"`
	Multiplier int         `gorm:"not null" json:"multiplier"`
	ExpiresAt  time.Time   `gorm:"index;not null" json:"expires_at"`
	GiftedBy   *string     `json:"gifted_by,omitempty"` // set when gifted by another user

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Factor returns the XP multiplier for a booster type, or 0 when unknown.
func (t BoosterType) Factor() int {
	switch t {
	case BoosterType2x:
		return 2
	case BoosterType3x:
		return 3
	default:
		return 0
	}
}

// Duration returns the fixed lifetime for a booster type.
func (t BoosterType) Duration() time.Duration {
	switch t {
	case BoosterType2x:
		return Booster2xDuration
	case BoosterType3x:
		return Booster3xDuration
	default:
		return 0
	}
}

// Cost returns the gem price for a booster type.
func (t BoosterType) Cost() int64 {
	switch t {
	case BoosterType2x:
		return Booster2xCost
	case BoosterType3x:
		return Booster3xCost
	default:
		return 0
	}
}

// Valid reports whether t is a recognized booster type.
func (t BoosterType) Valid() bool {
	return t == BoosterType2x || t == BoosterType3x
}
