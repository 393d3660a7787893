package services

import (
	"fmt"

	"habit-league-system/models"
	"habit-league-system/store"

	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Gems earned per 100 XP of final award.
const gemsPerXP = 100

// ProgressionService owns the XP economy: awarding XP through the bonus
// pipeline and keeping level/gems derived state consistent.
type ProgressionService struct {
	Store store.Store
	Log   *zap.Logger
	Clock clockwork.Clock
}

func NewProgressionService(st store.Store, log *zap.Logger) *ProgressionService {
	return &ProgressionService{Store: st, Log: log, Clock: clockwork.NewRealClock()}
}

// AwardResult reports the outcome of an AwardXP call. AlreadyProcessed
// means the action id was seen before; the call is still a success and no
// state changed.
type AwardResult struct {
	AlreadyProcessed bool  `json:"already_processed"`
	BaseAmount       int64 `json:"base_amount"`
	FinalAmount      int64 `json:"final_amount"`

	MorningBonusApplied bool `json:"morning_bonus_applied"`
	StreakBonusApplied  bool `json:"streak_bonus_applied"`
	BoosterMultiplier   int  `json:"booster_multiplier,omitempty"`

	GemsAwarded int64 `json:"gems_awarded"`
	Level       int   `json:"level"`
	LeveledUp   bool  `json:"leveled_up"`
	XP          int64 `json:"xp"`
	WeeklyXP    int64 `json:"weekly_xp"`
	LifetimeXP  int64 `json:"lifetime_xp"`
}

// AwardXP applies the bonus pipeline to baseAmount and atomically updates
// the user's XP, level and gems, recording the final amount in the ledger
// under actionID. A replayed actionID is a no-op success.
func (s *ProgressionService) AwardXP(userID string, baseAmount int64, source, actionID, metadata string) (*AwardResult, error) {
	if baseAmount < 0 {
		return nil, fmt.Errorf("%w: base amount must be non-negative", ErrInvalidArgument)
	}
	if actionID == "" {
		return nil, fmt.Errorf("%w: action id is required", ErrInvalidArgument)
	}

	now := s.Clock.Now().UTC()
	var result *AwardResult

	err := s.Store.Transact(func(tx store.Store) error {
		user, err := tx.GetUserForUpdate(userID)
		if err != nil {
			return translateStoreErr(err)
		}

		booster, err := tx.ActiveBooster(userID, now)
		if err != nil {
			return err
		}

		breakdown := applyBonuses(user, booster, now, baseAmount)

		created, err := tx.InsertLedgerEntry(&models.LedgerEntry{
			ActionID: actionID,
			UserID:   userID,
			Amount:   breakdown.Final,
			Source:   slug.Make(source),
			Metadata: metadata,
		})
		if err != nil {
			return err
		}
		if !created {
			// Idempotent replay: report success without touching state.
			// The bonus flags consumed in memory are never saved.
			result = &AwardResult{
				AlreadyProcessed: true,
				BaseAmount:       baseAmount,
				Level:            user.Level,
			}
			return nil
		}

		oldLevel := user.Level
		user.XP += breakdown.Final
		user.WeeklyXP += breakdown.Final
		user.LifetimeXP += breakdown.Final
		user.Level = models.LevelForLifetimeXP(user.LifetimeXP)

		gems := breakdown.Final / gemsPerXP
		user.Gems += gems

		if err := tx.SaveUser(user); err != nil {
			return err
		}

		if err := tx.CreateActivity(&models.SocialActivity{
			UserID:  userID,
			Kind:    models.ActivityXPAwarded,
			Message: fmt.Sprintf("earned %d XP from %s", breakdown.Final, source),
			Metadata: fmt.Sprintf(`{"action_id":%q,"source":%q,"amount":%d}`,
				actionID, slug.Make(source), breakdown.Final),
		}); err != nil {
			return err
		}

		result = &AwardResult{
			BaseAmount:          baseAmount,
			FinalAmount:         breakdown.Final,
			MorningBonusApplied: breakdown.MorningApplied,
			StreakBonusApplied:  breakdown.StreakApplied,
			BoosterMultiplier:   breakdown.BoosterMultiplier,
			GemsAwarded:         gems,
			Level:               user.Level,
			LeveledUp:           user.Level > oldLevel,
			XP:                  user.XP,
			WeeklyXP:            user.WeeklyXP,
			LifetimeXP:          user.LifetimeXP,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyProcessed {
		s.Log.Debug("xp award replayed",
			zap.String("user_id", userID), zap.String("action_id", actionID))
	} else {
		s.Log.Info("xp awarded",
			zap.String("user_id", userID),
			zap.String("action_id", actionID),
			zap.Int64("base", baseAmount),
			zap.Int64("final", result.FinalAmount),
			zap.Int("level", result.Level))
	}
	return result, nil
}

// EnsureProgressionRecord creates the user's progression row with starter
// grants if it does not exist yet (idempotent).
func (s *ProgressionService) EnsureProgressionRecord(userID, displayName string) (*models.UserProgression, error) {
	var out *models.UserProgression
	err := s.Store.Transact(func(tx store.Store) error {
		user, err := tx.GetUser(userID)
		if err == nil {
			out = user
			return nil
		}
		if translateStoreErr(err) != ErrNotFound {
			return err
		}
		user = &models.UserProgression{
			ExternalUserID:       userID,
			DisplayName:          displayName,
			Level:                1,
			Gems:                 models.StarterGems,
			GracePassesAvailable: models.StarterGracePasses,
			League:               models.LeagueBronze,
		}
		if err := tx.CreateUser(user); err != nil {
			return err
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetProgression returns the user's current progression record.
func (s *ProgressionService) GetProgression(userID string) (*models.UserProgression, error) {
	user, err := s.Store.GetUser(userID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return user, nil
}
