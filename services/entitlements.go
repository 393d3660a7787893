package services

import (
	"fmt"

	"habit-league-system/models"
	"habit-league-system/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// EntitlementService applies purchases reported by the payment provider's
// webhook. The product-to-grant mapping is static configuration
// (models.ProductGrants); idempotency is keyed on the provider's
// transaction id so webhook redeliveries are harmless.
type EntitlementService struct {
	Store store.Store
	Log   *zap.Logger
	Clock clockwork.Clock
}

func NewEntitlementService(st store.Store, log *zap.Logger) *EntitlementService {
	return &EntitlementService{Store: st, Log: log, Clock: clockwork.NewRealClock()}
}

// EntitlementResult reports what a grant applied.
type EntitlementResult struct {
	AlreadyProcessed bool               `json:"already_processed"`
	ProductID        string             `json:"product_id"`
	GemsGranted      int64              `json:"gems_granted"`
	GracePasses      int                `json:"grace_passes_granted"`
	BoosterType      models.BoosterType `json:"booster_type,omitempty"`
}

// GrantEntitlements applies the grant mapped to productID exactly once per
// payment transaction id.
func (s *EntitlementService) GrantEntitlements(userID, productID, transactionID string) (*EntitlementResult, error) {
	grant, ok := models.ProductGrants[productID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown product %q", ErrInvalidArgument, productID)
	}
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrInvalidArgument)
	}

	now := s.Clock.Now().UTC()
	actionID := "iap-" + transactionID
	var result *EntitlementResult

	err := s.Store.Transact(func(tx store.Store) error {
		user, err := tx.GetUserForUpdate(userID)
		if err != nil {
			return translateStoreErr(err)
		}

		created, err := tx.InsertLedgerEntry(&models.LedgerEntry{
			ActionID: actionID,
			UserID:   userID,
			Amount:   0,
			Source:   "entitlement-" + productID,
			Metadata: fmt.Sprintf(`{"product_id":%q,"transaction_id":%q}`, productID, transactionID),
		})
		if err != nil {
			return err
		}
		if !created {
			result = &EntitlementResult{AlreadyProcessed: true, ProductID: productID}
			return nil
		}

		user.Gems += grant.Gems
		user.GracePassesAvailable += grant.GracePasses
		if err := tx.SaveUser(user); err != nil {
			return err
		}

		if grant.BoosterType.Valid() {
			if err := tx.CreateBooster(&models.Booster{
				UserID:     userID,
				Type:       grant.BoosterType,
				Multiplier: grant.BoosterType.Factor(),
				ExpiresAt:  now.Add(grant.BoosterType.Duration()),
			}); err != nil {
				return err
			}
		}

		if err := tx.CreateActivity(&models.SocialActivity{
			UserID:   userID,
			Kind:     models.ActivityEntitlement,
			Message:  fmt.Sprintf("unlocked %s", grant.Name),
			Metadata: fmt.Sprintf(`{"product_id":%q}`, productID),
		}); err != nil {
			return err
		}

		result = &EntitlementResult{
			ProductID:   productID,
			GemsGranted: grant.Gems,
			GracePasses: grant.GracePasses,
			BoosterType: grant.BoosterType,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("entitlement granted",
		zap.String("user_id", userID),
		zap.String("product_id", productID),
		zap.Bool("replayed", result.AlreadyProcessed))
	return result, nil
}
