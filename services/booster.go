package services

import (
	"fmt"
	"time"

	"habit-league-system/models"
	"habit-league-system/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// BoosterService grants time-limited XP multipliers, purchased with gems
// for oneself or gifted to another user.
type BoosterService struct {
	Store store.Store
	Log   *zap.Logger
	Clock clockwork.Clock
}

func NewBoosterService(st store.Store, log *zap.Logger) *BoosterService {
	return &BoosterService{Store: st, Log: log, Clock: clockwork.NewRealClock()}
}

// BoosterResult reports the outcome of a booster purchase or gift.
type BoosterResult struct {
	AlreadyProcessed bool               `json:"already_processed"`
	Type             models.BoosterType `json:"type"`
	Multiplier       int                `json:"multiplier"`
	ExpiresAt        string             `json:"expires_at,omitempty"`
	GemsCharged      int64              `json:"gems_charged"`
	GemsRemaining    int64              `json:"gems_remaining"`
	Gifted           bool               `json:"gifted"`
}

// PurchaseOrGiftBooster charges purchaserID the gem cost of boosterType and
// grants the booster to targetUserID. When purchaser and target differ the
// grant is a gift and a social activity lands on the giver's feed.
// Replaying the same actionID is a no-op success.
func (s *BoosterService) PurchaseOrGiftBooster(purchaserID, targetUserID string, boosterType models.BoosterType, actionID string) (*BoosterResult, error) {
	if !boosterType.Valid() {
		return nil, fmt.Errorf("%w: unrecognized booster type %q", ErrInvalidArgument, boosterType)
	}
	if actionID == "" {
		return nil, fmt.Errorf("%w: action id is required", ErrInvalidArgument)
	}

	now := s.Clock.Now().UTC()
	cost := boosterType.Cost()
	isGift := purchaserID != targetUserID
	var result *BoosterResult

	err := s.Store.Transact(func(tx store.Store) error {
		purchaser, err := tx.GetUserForUpdate(purchaserID)
		if err != nil {
			return translateStoreErr(err)
		}
		if isGift {
			if _, err := tx.GetUser(targetUserID); err != nil {
				return translateStoreErr(err)
			}
		}

		created, err := tx.InsertLedgerEntry(&models.LedgerEntry{
			ActionID: actionID,
			UserID:   purchaserID,
			Amount:   0,
			Source:   "booster-" + string(boosterType),
			Metadata: fmt.Sprintf(`{"target":%q,"type":%q}`, targetUserID, boosterType),
		})
		if err != nil {
			return err
		}
		if !created {
			result = &BoosterResult{
				AlreadyProcessed: true,
				Type:             boosterType,
				GemsRemaining:    purchaser.Gems,
				Gifted:           isGift,
			}
			return nil
		}

		if purchaser.Gems < cost {
			return fmt.Errorf("%w: booster costs %d gems, %d available",
				ErrInsufficientResource, cost, purchaser.Gems)
		}
		purchaser.Gems -= cost
		if err := tx.SaveUser(purchaser); err != nil {
			return err
		}

		expiresAt := now.Add(boosterType.Duration())
		booster := &models.Booster{
			UserID:     targetUserID,
			Type:       boosterType,
			Multiplier: boosterType.Factor(),
			ExpiresAt:  expiresAt,
		}
		if isGift {
			giver := purchaserID
			booster.GiftedBy = &giver
		}
		if err := tx.CreateBooster(booster); err != nil {
			return err
		}

		if isGift {
			// The gift shows up on the giver's feed, not the recipient's.
			if err := tx.CreateActivity(&models.SocialActivity{
				UserID:   purchaserID,
				Kind:     models.ActivityBoosterGifted,
				Message:  fmt.Sprintf("gifted a %s booster", boosterType),
				Metadata: fmt.Sprintf(`{"recipient":%q,"type":%q}`, targetUserID, boosterType),
			}); err != nil {
				return err
			}
		}

		result = &BoosterResult{
			Type:          boosterType,
			Multiplier:    booster.Multiplier,
			ExpiresAt:     expiresAt.Format(time.RFC3339),
			GemsCharged:   cost,
			GemsRemaining: purchaser.Gems,
			Gifted:        isGift,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("booster granted",
		zap.String("purchaser", purchaserID),
		zap.String("target", targetUserID),
		zap.String("type", string(boosterType)),
		zap.Bool("replayed", result.AlreadyProcessed))
	return result, nil
}
