package models

import (
	"encoding/json"
	"time"
)

// LeagueSnapshot is the immutable record of one weekly ranking run.
// PeriodKey is unique per cycle and doubles as the guard against the
// weekly job being invoked twice for the same period.
type LeagueSnapshot struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PeriodKey   string    `gorm:"uniqueIndex;not null" json:"period_key"` // e.g. "2026-W35"
	PeriodStart time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`
	Rankings    string    `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// SnapshotRanking is one user's before/after standing within a snapshot.
type SnapshotRanking struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	WeeklyXP   int64  `json:"weekly_xp"`
	OldLeague  int    `json:"old_league"`
	NewLeague  int    `json:"new_league"`
	LeagueRank int    `json:"league_rank"`
	GlobalRank int    `json:"global_rank"`
	Promoted   bool   `json:"promoted"`
	Relegated  bool   `json:"relegated"`
}

// DecodeRankings unmarshals the stored ranking list.
func (s *LeagueSnapshot) DecodeRankings() ([]SnapshotRanking, error) {
	if s.Rankings == "" {
		return nil, nil
	}
	var out []SnapshotRanking
	if err := json.Unmarshal([]byte(s.Rankings), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeRankings stores the ranking list as JSON.
func (s *LeagueSnapshot) EncodeRankings(rankings []SnapshotRanking) error {
	b, err := json.Marshal(rankings)
	if err != nil {
		return err
	}
	s.Rankings = string(b)
	return nil
}
