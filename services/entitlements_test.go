package services

import (
	"errors"
	"testing"

	"habit-league-system/models"
	"habit-league-system/store"
)

func TestGrantEntitlements_GemProduct(t *testing.T) {
	st := store.NewMemoryStore()
	seedUser(t, st, "u1", nil)
	svc := newTestEntitlements(t, st, testNow)

	res, err := svc.GrantEntitlements("u1", "gems_small", "txn-1")
	if err != nil {
		t.Fatalf("GrantEntitlements: %v", err)
	}
	if res.GemsGranted != 200 {
		t.Errorf("GemsGranted = %d, want 200", res.GemsGranted)
	}
	if got := mustGetUser(t, st, "u1").Gems; got != models.StarterGems+200 {
		t.Errorf("Gems = %d, want %d", got, models.StarterGems+200)
	}
}

func TestGrantEntitlements_StarterBundleIncludesBooster(t *testing.T) {
	st := store.NewMemoryStore()
	seedUser(t, st, "u1", nil)
	svc := newTestEntitlements(t, st, testNow)

	res, err := svc.GrantEntitlements("u1", "starter_bundle", "txn-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.GemsGranted != 500 || res.GracePasses != 1 || res.BoosterType != models.BoosterType2x {
		t.Errorf("result = %+v, want 500 gems, 1 pass, 2x booster", res)
	}

	u := mustGetUser(t, st, "u1")
	if u.GracePassesAvailable != models.StarterGracePasses+1 {
		t.Errorf("GracePassesAvailable = %d, want %d", u.GracePassesAvailable, models.StarterGracePasses+1)
	}
	b, err := st.ActiveBooster("u1", testNow)
	if err != nil || b == nil {
		t.Fatalf("ActiveBooster = %v, %v; want the bundled booster", b, err)
	}
	if b.Type != models.BoosterType2x {
		t.Errorf("booster type = %s, want 2x", b.Type)
	}
}

func TestGrantEntitlements_WebhookRedelivery(t *testing.T) {
	st := store.NewMemoryStore()
	seedUser(t, st, "u1", nil)
	svc := newTestEntitlements(t, st, testNow)

	if _, err := svc.GrantEntitlements("u1", "gems_large", "txn-9"); err != nil {
		t.Fatal(err)
	}
	res, err := svc.GrantEntitlements("u1", "gems_large", "txn-9")
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !res.AlreadyProcessed {
		t.Error("AlreadyProcessed = false on redelivered transaction")
	}
	if got := mustGetUser(t, st, "u1").Gems; got != models.StarterGems+1200 {
		t.Errorf("Gems = %d, want single grant applied", got)
	}
}

func TestGrantEntitlements_DistinctTransactionsBothApply(t *testing.T) {
	st := store.NewMemoryStore()
	seedUser(t, st, "u1", nil)
	svc := newTestEntitlements(t, st, testNow)

	if _, err := svc.GrantEntitlements("u1", "gems_small", "txn-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GrantEntitlements("u1", "gems_small", "txn-2"); err != nil {
		t.Fatal(err)
	}
	if got := mustGetUser(t, st, "u1").Gems; got != models.StarterGems+400 {
		t.Errorf("Gems = %d, want both purchases applied", got)
	}
}

func TestGrantEntitlements_Validation(t *testing.T) {
	st := store.NewMemoryStore()
	seedUser(t, st, "u1", nil)
	svc := newTestEntitlements(t, st, testNow)

	if _, err := svc.GrantEntitlements("u1", "gems_mega", "txn-1"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown product: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.GrantEntitlements("u1", "gems_small", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty transaction id: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.GrantEntitlements("ghost", "gems_small", "txn-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: err = %v, want ErrNotFound", err)
	}
}
