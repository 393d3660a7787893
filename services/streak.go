package services

import (
	"fmt"
	"time"

	"habit-league-system/models"
	"habit-league-system/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Streaks at or above this length trigger the grace-pass offer when broken.
const streakBreakOfferThreshold = 3

// Every streak multiple of this emits a milestone feed record.
const streakMilestoneInterval = 7

// StreakService tracks daily activity continuity and grace-pass recovery.
type StreakService struct {
	Store store.Store
	Log   *zap.Logger
	Clock clockwork.Clock
}

func NewStreakService(st store.Store, log *zap.Logger) *StreakService {
	return &StreakService{Store: st, Log: log, Clock: clockwork.NewRealClock()}
}

// streakStep classifies a daily activity call against the last active date.
type streakStep int

const (
	stepFirst     streakStep = iota // no prior activity
	stepDuplicate                   // already recorded today
	stepIncrement                   // active yesterday, streak continues
	stepReset                       // gap of 2+ days, streak restarts at 1
)

// classifyStreak compares last against today (both UTC calendar days).
func classifyStreak(last *time.Time, today time.Time) streakStep {
	if last == nil {
		return stepFirst
	}
	if models.SameUTCDay(*last, today) {
		return stepDuplicate
	}
	if models.SameUTCDay(*last, today.AddDate(0, 0, -1)) {
		return stepIncrement
	}
	return stepReset
}

// DailyActivityResult reports the streak outcome of a daily activity call.
type DailyActivityResult struct {
	Streak           int  `json:"streak"`
	BestStreak       int  `json:"best_streak"`
	TotalDaysStudied int  `json:"total_days_studied"`
	AlreadyCompleted bool `json:"already_completed"`

	// StreakBroken is set when a streak of at least three days lapsed, so
	// the UI can surface a grace-pass offer.
	StreakBroken   bool `json:"streak_broken"`
	PreviousStreak int  `json:"previous_streak,omitempty"`

	Milestone bool `json:"milestone"`
}

// RecordDailyActivity registers one completed day of activity. Repeat calls
// on the same UTC day are no-ops on the streak.
func (s *StreakService) RecordDailyActivity(userID string) (*DailyActivityResult, error) {
	now := s.Clock.Now().UTC()
	today := models.UTCDate(now)
	var result *DailyActivityResult

	err := s.Store.Transact(func(tx store.Store) error {
		user, err := tx.GetUserForUpdate(userID)
		if err != nil {
			return translateStoreErr(err)
		}

		switch classifyStreak(user.LastActiveDate, today) {
		case stepDuplicate:
			result = &DailyActivityResult{
				Streak:           user.Streak,
				BestStreak:       user.BestStreak,
				TotalDaysStudied: user.TotalDaysStudied,
				AlreadyCompleted: true,
			}
			return nil

		case stepIncrement:
			user.Streak++
			result = &DailyActivityResult{}

		case stepReset:
			result = &DailyActivityResult{}
			if user.Streak >= streakBreakOfferThreshold {
				result.StreakBroken = true
				result.PreviousStreak = user.Streak
			}
			user.Streak = 1

		case stepFirst:
			user.Streak = 1
			result = &DailyActivityResult{}
		}

		if user.Streak > user.BestStreak {
			user.BestStreak = user.Streak
		}
		user.LastActiveDate = &today
		user.TotalDaysStudied++

		if user.Streak%streakMilestoneInterval == 0 {
			result.Milestone = true
			// The milestone arms a one-shot double-XP reward; the next
			// award consumes it.
			user.HasStreakBonus = true
			if err := tx.CreateActivity(&models.SocialActivity{
				UserID:   userID,
				Kind:     models.ActivityStreakMilestone,
				Message:  fmt.Sprintf("reached a %d-day streak", user.Streak),
				Metadata: fmt.Sprintf(`{"streak":%d}`, user.Streak),
			}); err != nil {
				return err
			}
		}

		if err := tx.SaveUser(user); err != nil {
			return err
		}

		result.Streak = user.Streak
		result.BestStreak = user.BestStreak
		result.TotalDaysStudied = user.TotalDaysStudied
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("daily activity recorded",
		zap.String("user_id", userID),
		zap.Int("streak", result.Streak),
		zap.Bool("already_completed", result.AlreadyCompleted),
		zap.Bool("streak_broken", result.StreakBroken))
	return result, nil
}

// GracePassResult reports the outcome of a grace-pass redemption.
type GracePassResult struct {
	AlreadyProcessed     bool `json:"already_processed"`
	GracePassesAvailable int  `json:"grace_passes_available"`
	GracePassesUsed      int  `json:"grace_passes_used"`
	Streak               int  `json:"streak"`
}

// RedeemGracePass consumes one grace pass, restoring a fully broken streak
// to 1. The restore is deliberately to the minimum viable value, not the
// pre-break count. Replaying the same actionID is a no-op success.
func (s *StreakService) RedeemGracePass(userID, actionID string) (*GracePassResult, error) {
	if actionID == "" {
		return nil, fmt.Errorf("%w: action id is required", ErrInvalidArgument)
	}

	var result *GracePassResult
	err := s.Store.Transact(func(tx store.Store) error {
		user, err := tx.GetUserForUpdate(userID)
		if err != nil {
			return translateStoreErr(err)
		}

		// The replay check comes before the resource check: a token that
		// already consumed the user's last pass must keep returning
		// success, not InsufficientResource.
		created, err := tx.InsertLedgerEntry(&models.LedgerEntry{
			ActionID: actionID,
			UserID:   userID,
			Amount:   0,
			Source:   "grace-pass",
		})
		if err != nil {
			return err
		}
		if !created {
			result = &GracePassResult{
				AlreadyProcessed:     true,
				GracePassesAvailable: user.GracePassesAvailable,
				GracePassesUsed:      user.GracePassesUsed,
				Streak:               user.Streak,
			}
			return nil
		}

		if user.GracePassesAvailable <= 0 {
			// Rolls back the ledger entry with the transaction.
			return fmt.Errorf("%w: no grace passes available", ErrInsufficientResource)
		}

		user.GracePassesAvailable--
		user.GracePassesUsed++
		if user.Streak == 0 {
			user.Streak = 1
		}

		if err := tx.SaveUser(user); err != nil {
			return err
		}

		result = &GracePassResult{
			GracePassesAvailable: user.GracePassesAvailable,
			GracePassesUsed:      user.GracePassesUsed,
			Streak:               user.Streak,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("grace pass redeemed",
		zap.String("user_id", userID),
		zap.String("action_id", actionID),
		zap.Bool("replayed", result.AlreadyProcessed),
		zap.Int("remaining", result.GracePassesAvailable))
	return result, nil
}
