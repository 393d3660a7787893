package models

import (
	"time"

	"gorm.io/gorm"
)

// League tiers, ordered. Promotion moves up one tier, relegation down one.
const (
	LeagueBronze  = 1
	LeagueSilver  = 2
	LeagueGold    = 3
	LeagueDiamond = 4
)

// XPPerLevel is the lifetime XP cost of each level.
const XPPerLevel = 500

// New-account grants.
const (
	StarterGems        = 50
	StarterGracePasses = 1
)

// UserProgression tracks gamified progression for each user (denormalized for performance).
type UserProgression struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service
	DisplayName    string `gorm:"index" json:"display_name"`

	// Core progression
	XP         int64 `json:"xp" gorm:"default:0"`          // current league-cycle XP
	WeeklyXP   int64 `json:"weekly_xp" gorm:"default:0"`   // resets every league cycle
	LifetimeXP int64 `json:"lifetime_xp" gorm:"default:0"` // never decreases
	Level      int   `json:"level" gorm:"default:1"`
	Gems       int64 `json:"gems" gorm:"default:50"`

	// Streak
	Streak           int        `json:"streak" gorm:"default:0"`
	BestStreak       int        `json:"best_streak" gorm:"default:0"`
	LastActiveDate   *time.Time `json:"last_active_date,omitempty"`
	TotalDaysStudied int        `json:"total_days_studied" gorm:"default:0"`

	// Grace passes
	GracePassesAvailable int `json:"grace_passes_available" gorm:"default:1"`
	GracePassesUsed      int `json:"grace_passes_used" gorm:"default:0"`

	// League standing
	League         int `json:"league" gorm:"default:1"` // Bronze(1)→Silver(2)→Gold(3)→Diamond(4)
	LeaguePosition int `json:"league_position" gorm:"default:0"`
	GlobalRank     int `json:"global_rank" gorm:"default:0"`

	// Bonus state. The morning bonus is a per-user per-day permit: the
	// stored date of the last grant is compared against the current UTC
	// day at read time, so no midnight reset pass is needed.
	LastMorningBonusAt *time.Time `json:"last_morning_bonus_at,omitempty"`
	HasStreakBonus     bool       `json:"has_streak_bonus" gorm:"default:false"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// MorningBonusUsed reports whether today's morning bonus was already consumed.
func (u *UserProgression) MorningBonusUsed(now time.Time) bool {
	if u.LastMorningBonusAt == nil {
		return false
	}
	return SameUTCDay(*u.LastMorningBonusAt, now)
}

// TodayCompleted reports whether the user already recorded activity today.
func (u *UserProgression) TodayCompleted(now time.Time) bool {
	if u.LastActiveDate == nil {
		return false
	}
	return SameUTCDay(*u.LastActiveDate, now)
}

// LevelForLifetimeXP derives the level from total accumulated XP.
func LevelForLifetimeXP(lifetimeXP int64) int {
	return int(lifetimeXP/XPPerLevel) + 1
}

// SameUTCDay reports whether a and b fall on the same UTC calendar day.
func SameUTCDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// UTCDate truncates t to its UTC calendar day.
func UTCDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LeagueName maps a league ordinal to its display name.
func LeagueName(league int) string {
	switch league {
	case LeagueBronze:
		return "Bronze"
	case LeagueSilver:
		return "Silver"
	case LeagueGold:
		return "Gold"
	case LeagueDiamond:
		return "Diamond"
	default:
		return "Bronze"
	}
}
