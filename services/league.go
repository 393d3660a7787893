package services

import (
	"fmt"
	"sort"
	"time"

	"habit-league-system/models"
	"habit-league-system/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Promotion/relegation tuning.
const (
	promotionSlots       = 3
	promotionMinWeeklyXP = 500
	relegationZone       = 5
)

// League capacities are used only to compute the relegation cutoff, not as
// hard membership caps.
var leagueCapacity = map[int]int{
	models.LeagueBronze:  50,
	models.LeagueSilver:  30,
	models.LeagueGold:    20,
	models.LeagueDiamond: 10,
}

// LeagueMember is the ranking engine's view of one user.
type LeagueMember struct {
	UserID     string
	Name       string
	League     int
	WeeklyXP   int64
	LifetimeXP int64
}

// LeagueDecision is the ranking engine's verdict for one member.
type LeagueDecision struct {
	UserID     string
	Name       string
	WeeklyXP   int64
	OldLeague  int
	NewLeague  int
	LeagueRank int
	GlobalRank int
	Promoted   bool
	Relegated  bool
}

// RankAndReassign ranks members within their leagues and decides
// promotions and relegations. Pure function: no storage, no clock.
//
// Leagues are processed highest tier first so the single global rank
// counter comes out right in one pass: every Diamond member outranks
// every Gold member regardless of raw weekly XP. Within a league members
// rank by weekly XP, lifetime XP breaking ties. The top three of a
// non-top league promote when their week hit the XP floor; members ranked
// past capacity−5 of a non-bottom league relegate.
func RankAndReassign(members []LeagueMember) []LeagueDecision {
	byLeague := make(map[int][]LeagueMember)
	for _, m := range members {
		byLeague[m.League] = append(byLeague[m.League], m)
	}

	decisions := make([]LeagueDecision, 0, len(members))
	globalRank := 0

	for league := models.LeagueDiamond; league >= models.LeagueBronze; league-- {
		group := byLeague[league]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].WeeklyXP != group[j].WeeklyXP {
				return group[i].WeeklyXP > group[j].WeeklyXP
			}
			return group[i].LifetimeXP > group[j].LifetimeXP
		})

		relegationCutoff := leagueCapacity[league] - relegationZone

		for pos, m := range group {
			leagueRank := pos + 1
			globalRank++

			d := LeagueDecision{
				UserID:     m.UserID,
				Name:       m.Name,
				WeeklyXP:   m.WeeklyXP,
				OldLeague:  league,
				NewLeague:  league,
				LeagueRank: leagueRank,
				GlobalRank: globalRank,
			}

			switch {
			case league < models.LeagueDiamond &&
				leagueRank <= promotionSlots &&
				m.WeeklyXP >= promotionMinWeeklyXP:
				d.NewLeague = league + 1
				d.Promoted = true
			case league > models.LeagueBronze && leagueRank > relegationCutoff:
				d.NewLeague = league - 1
				d.Relegated = true
			}

			decisions = append(decisions, d)
		}
	}
	return decisions
}

// LeagueService runs the weekly ranking cycle and serves leaderboard reads.
type LeagueService struct {
	Store    store.Store
	Log      *zap.Logger
	Clock    clockwork.Clock
	Archiver SnapshotArchiver // optional

	// CacheReset drops cached leaderboard reads after a run changes
	// standings. Optional; both the cron trigger and the admin endpoint
	// go through it.
	CacheReset func()
}

// SnapshotArchiver ships a finished snapshot to long-term storage.
type SnapshotArchiver interface {
	ArchiveSnapshot(periodKey string, body []byte) error
}

func NewLeagueService(st store.Store, log *zap.Logger) *LeagueService {
	return &LeagueService{Store: st, Log: log, Clock: clockwork.NewRealClock()}
}

// LeagueUpdateSummary is returned to the weekly job trigger.
type LeagueUpdateSummary struct {
	AlreadyProcessed bool                     `json:"already_processed"`
	PeriodKey        string                   `json:"period_key"`
	PeriodStart      time.Time                `json:"period_start"`
	PeriodEnd        time.Time                `json:"period_end"`
	TotalMembers     int                      `json:"total_members"`
	Promotions       int                      `json:"promotions"`
	Relegations      int                      `json:"relegations"`
	Rankings         []models.SnapshotRanking `json:"rankings,omitempty"`
}

// periodBounds returns the ISO week containing now: Monday 00:00 UTC
// inclusive to the next Monday exclusive, plus the snapshot period key.
func periodBounds(now time.Time) (start, end time.Time, key string) {
	now = now.UTC()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started last Monday
	}
	start = models.UTCDate(now).AddDate(0, 0, -(weekday - 1))
	end = start.AddDate(0, 0, 7)
	year, week := start.ISOWeek()
	return start, end, fmt.Sprintf("%d-W%02d", year, week)
}

// RunWeeklyLeagueUpdate ranks every league, applies promotions and
// relegations, resets weekly counters and persists an immutable snapshot,
// all in one transaction. Running it twice for the same period is a no-op
// guarded by the snapshot's period key.
func (s *LeagueService) RunWeeklyLeagueUpdate() (*LeagueUpdateSummary, error) {
	now := s.Clock.Now().UTC()
	start, end, periodKey := periodBounds(now)
	var summary *LeagueUpdateSummary

	err := s.Store.Transact(func(tx store.Store) error {
		users, err := tx.ListUsers()
		if err != nil {
			return err
		}

		members := make([]LeagueMember, len(users))
		byID := make(map[string]*models.UserProgression, len(users))
		for i := range users {
			u := &users[i]
			members[i] = LeagueMember{
				UserID:     u.ExternalUserID,
				Name:       u.DisplayName,
				League:     u.League,
				WeeklyXP:   u.WeeklyXP,
				LifetimeXP: u.LifetimeXP,
			}
			byID[u.ExternalUserID] = u
		}

		decisions := RankAndReassign(members)

		rankings := make([]models.SnapshotRanking, len(decisions))
		promotions, relegations := 0, 0
		for i, d := range decisions {
			rankings[i] = models.SnapshotRanking{
				UserID:     d.UserID,
				Name:       d.Name,
				WeeklyXP:   d.WeeklyXP,
				OldLeague:  d.OldLeague,
				NewLeague:  d.NewLeague,
				LeagueRank: d.LeagueRank,
				GlobalRank: d.GlobalRank,
				Promoted:   d.Promoted,
				Relegated:  d.Relegated,
			}
			if d.Promoted {
				promotions++
			}
			if d.Relegated {
				relegations++
			}
		}

		snapshot := &models.LeagueSnapshot{
			PeriodKey:   periodKey,
			PeriodStart: start,
			PeriodEnd:   end,
		}
		if err := snapshot.EncodeRankings(rankings); err != nil {
			return err
		}
		created, err := tx.InsertSnapshot(snapshot)
		if err != nil {
			return err
		}
		if !created {
			summary = &LeagueUpdateSummary{
				AlreadyProcessed: true,
				PeriodKey:        periodKey,
				PeriodStart:      start,
				PeriodEnd:        end,
			}
			return nil
		}

		for _, d := range decisions {
			u := byID[d.UserID]
			u.League = d.NewLeague
			u.LeaguePosition = d.LeagueRank
			u.GlobalRank = d.GlobalRank
			u.WeeklyXP = 0
			u.LastMorningBonusAt = nil
			if err := tx.SaveUser(u); err != nil {
				return err
			}
		}

		summary = &LeagueUpdateSummary{
			PeriodKey:    periodKey,
			PeriodStart:  start,
			PeriodEnd:    end,
			TotalMembers: len(decisions),
			Promotions:   promotions,
			Relegations:  relegations,
			Rankings:     rankings,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if summary.AlreadyProcessed {
		s.Log.Warn("weekly league update skipped, period already processed",
			zap.String("period", periodKey))
		return summary, nil
	}

	s.Log.Info("weekly league update finished",
		zap.String("period", periodKey),
		zap.Int("members", summary.TotalMembers),
		zap.Int("promotions", summary.Promotions),
		zap.Int("relegations", summary.Relegations))

	if s.CacheReset != nil {
		s.CacheReset()
	}

	if s.Archiver != nil {
		snap, err := s.Store.GetSnapshot(periodKey)
		if err == nil {
			if err := s.Archiver.ArchiveSnapshot(periodKey, []byte(snap.Rankings)); err != nil {
				s.Log.Warn("snapshot archive upload failed",
					zap.String("period", periodKey), zap.Error(err))
			}
		}
	}
	return summary, nil
}

// LeaderboardEntry is one row of a leaderboard read.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	League     int    `json:"league"`
	LeagueName string `json:"league_name"`
	WeeklyXP   int64  `json:"weekly_xp"`
	LifetimeXP int64  `json:"lifetime_xp"`
	Level      int    `json:"level"`
	Streak     int    `json:"streak"`
}

// GetLeaderboard returns members ordered by league tier first, then the
// timeframe's score column. league 0 means all leagues.
func (s *LeagueService) GetLeaderboard(league int, timeframe string, limit, offset int) ([]LeaderboardEntry, error) {
	if league != 0 && (league < models.LeagueBronze || league > models.LeagueDiamond) {
		return nil, fmt.Errorf("%w: league must be 1-4", ErrInvalidArgument)
	}

	order := store.OrderWeekly
	switch timeframe {
	case "", "weekly":
	case "alltime":
		order = store.OrderAllTime
	default:
		return nil, fmt.Errorf("%w: unknown timeframe %q", ErrInvalidArgument, timeframe)
	}

	users, err := s.Store.ListLeaderboard(league, order, limit, offset)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:       offset + i + 1,
			UserID:     u.ExternalUserID,
			Name:       u.DisplayName,
			League:     u.League,
			LeagueName: models.LeagueName(u.League),
			WeeklyXP:   u.WeeklyXP,
			LifetimeXP: u.LifetimeXP,
			Level:      u.Level,
			Streak:     u.Streak,
		}
	}
	return entries, nil
}

// GetSnapshot returns the archived ranking list for a processed period.
func (s *LeagueService) GetSnapshot(periodKey string) (*models.LeagueSnapshot, error) {
	if periodKey == "" {
		return nil, fmt.Errorf("%w: period key required", ErrInvalidArgument)
	}
	snap, err := s.Store.GetSnapshot(periodKey)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return snap, nil
}
