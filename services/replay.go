package services

import (
	"encoding/json"
	"fmt"

	"habit-league-system/models"
	"habit-league-system/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ReplayService drains per-user queues of actions that could not be
// processed synchronously (offline play, network failures). Each queued
// action replays through the same idempotent operation a live call would
// take, keyed by its own action id.
type ReplayService struct {
	Store       store.Store
	Log         *zap.Logger
	Clock       clockwork.Clock
	Progression *ProgressionService
	Streak      *StreakService
	Booster     *BoosterService
}

func NewReplayService(st store.Store, log *zap.Logger, prog *ProgressionService, streak *StreakService, booster *BoosterService) *ReplayService {
	return &ReplayService{
		Store:       st,
		Log:         log,
		Clock:       clockwork.NewRealClock(),
		Progression: prog,
		Streak:      streak,
		Booster:     booster,
	}
}

// EnqueueAction stores an action for later replay. A duplicate action id is
// reported as already queued, not an error.
func (s *ReplayService) EnqueueAction(userID string, kind models.ActionKind, actionID string, payload any) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: unknown action kind %q", ErrInvalidArgument, kind)
	}
	if actionID == "" {
		return false, fmt.Errorf("%w: action id is required", ErrInvalidArgument)
	}

	body := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		body = string(b)
	}

	return s.Store.EnqueueAction(&models.QueuedAction{
		UserID:   userID,
		ActionID: actionID,
		Kind:     kind,
		Payload:  body,
	})
}

// ReplayReport summarizes one queue drain.
type ReplayReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Dropped   int `json:"dropped"` // terminal application errors, marked processed anyway
}

// ProcessQueuedActions drains the user's queue in strict chronological
// order, since later actions may depend on earlier state (streak
// continuity in particular). Every attempted action is marked processed whether it
// succeeded or failed terminally; only a transient storage error stops the
// drain and leaves the remainder queued. Losing a permanently failing
// action beats reprocessing it forever.
func (s *ReplayService) ProcessQueuedActions(userID string) (*ReplayReport, error) {
	pending, err := s.Store.PendingActions(userID)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{}
	for _, action := range pending {
		err := s.dispatch(userID, &action)
		if err != nil && !IsTerminal(err) {
			// Transient: stop here, the entry stays queued for next time.
			return report, err
		}

		report.Attempted++
		if err == nil {
			report.Succeeded++
		} else {
			report.Dropped++
			s.Log.Warn("queued action dropped",
				zap.String("user_id", userID),
				zap.String("action_id", action.ActionID),
				zap.String("kind", string(action.Kind)),
				zap.Error(err))
		}

		if err := s.Store.MarkActionProcessed(action.ID, s.Clock.Now().UTC()); err != nil {
			return report, err
		}
	}

	if report.Attempted > 0 {
		s.Log.Info("offline queue drained",
			zap.String("user_id", userID),
			zap.Int("attempted", report.Attempted),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("dropped", report.Dropped))
	}
	return report, nil
}

// dispatch routes a queued action to its operation. The match on kind is
// exhaustive; an unknown kind is a terminal InvalidArgument, not a panic.
func (s *ReplayService) dispatch(userID string, action *models.QueuedAction) error {
	switch action.Kind {
	case models.ActionAwardXP:
		var p models.AwardXPPayload
		if err := action.DecodePayload(&p); err != nil {
			return fmt.Errorf("%w: bad award payload: %v", ErrInvalidArgument, err)
		}
		_, err := s.Progression.AwardXP(userID, p.BaseAmount, p.Source, action.ActionID, p.Metadata)
		return err

	case models.ActionDailyActivity:
		_, err := s.Streak.RecordDailyActivity(userID)
		return err

	case models.ActionGracePass:
		_, err := s.Streak.RedeemGracePass(userID, action.ActionID)
		return err

	case models.ActionBooster:
		var p models.BoosterPayload
		if err := action.DecodePayload(&p); err != nil {
			return fmt.Errorf("%w: bad booster payload: %v", ErrInvalidArgument, err)
		}
		target := p.TargetUserID
		if target == "" {
			target = userID
		}
		_, err := s.Booster.PurchaseOrGiftBooster(userID, target, p.BoosterType, action.ActionID)
		return err

	default:
		return fmt.Errorf("%w: unknown action kind %q", ErrInvalidArgument, action.Kind)
	}
}
