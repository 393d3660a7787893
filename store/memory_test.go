package store

import (
	"errors"
	"testing"
	"time"

	"habit-league-system/models"
)

var now = time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)

func TestMemoryStore_TransactRollsBack(t *testing.T) {
	st := NewMemoryStore()
	if err := st.CreateUser(&models.UserProgression{ExternalUserID: "u1", Gems: 10}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := st.Transact(func(tx Store) error {
		u, err := tx.GetUserForUpdate("u1")
		if err != nil {
			return err
		}
		u.Gems = 999
		if err := tx.SaveUser(u); err != nil {
			return err
		}
		if _, err := tx.InsertLedgerEntry(&models.LedgerEntry{ActionID: "a1", UserID: "u1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transact err = %v, want boom", err)
	}

	u, err := st.GetUser("u1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Gems != 10 {
		t.Errorf("Gems = %d after rollback, want 10", u.Gems)
	}
	if len(st.Ledger()) != 0 {
		t.Error("ledger entry survived the rollback")
	}
}

func TestMemoryStore_TransactCommits(t *testing.T) {
	st := NewMemoryStore()
	if err := st.CreateUser(&models.UserProgression{ExternalUserID: "u1"}); err != nil {
		t.Fatal(err)
	}

	err := st.Transact(func(tx Store) error {
		u, err := tx.GetUserForUpdate("u1")
		if err != nil {
			return err
		}
		u.Gems = 77
		return tx.SaveUser(u)
	})
	if err != nil {
		t.Fatal(err)
	}
	u, _ := st.GetUser("u1")
	if u.Gems != 77 {
		t.Errorf("Gems = %d after commit, want 77", u.Gems)
	}
}

func TestMemoryStore_InsertLedgerEntryConflict(t *testing.T) {
	st := NewMemoryStore()

	created, err := st.InsertLedgerEntry(&models.LedgerEntry{ActionID: "a1", UserID: "u1", Amount: 5})
	if err != nil || !created {
		t.Fatalf("first insert = %v, %v; want created", created, err)
	}
	created, err = st.InsertLedgerEntry(&models.LedgerEntry{ActionID: "a1", UserID: "u1", Amount: 5})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second insert with same action id reported as created")
	}
	if got := len(st.Ledger()); got != 1 {
		t.Errorf("ledger size = %d, want 1", got)
	}
}

func TestMemoryStore_GetUserNotFound(t *testing.T) {
	st := NewMemoryStore()
	if _, err := st.GetUser("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	st := NewMemoryStore()
	if err := st.CreateUser(&models.UserProgression{ExternalUserID: "u1", Gems: 10}); err != nil {
		t.Fatal(err)
	}

	u, _ := st.GetUser("u1")
	u.Gems = 999

	again, _ := st.GetUser("u1")
	if again.Gems != 10 {
		t.Errorf("Gems = %d, mutation of a read leaked into the store", again.Gems)
	}
}

func TestMemoryStore_PendingActionsOrderAndMarking(t *testing.T) {
	st := NewMemoryStore()
	for _, id := range []string{"first", "second", "third"} {
		created, err := st.EnqueueAction(&models.QueuedAction{UserID: "u1", ActionID: id, Kind: models.ActionAwardXP})
		if err != nil || !created {
			t.Fatalf("enqueue %s = %v, %v", id, created, err)
		}
	}

	pending, err := st.PendingActions("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 3 || pending[0].ActionID != "first" || pending[2].ActionID != "third" {
		t.Fatalf("pending = %+v, want insertion order", pending)
	}

	if err := st.MarkActionProcessed(pending[1].ID, now); err != nil {
		t.Fatal(err)
	}
	pending, _ = st.PendingActions("u1")
	if len(pending) != 2 || pending[0].ActionID != "first" || pending[1].ActionID != "third" {
		t.Errorf("pending after marking = %+v, want first and third", pending)
	}
}

func TestMemoryStore_UsersWithPendingActions(t *testing.T) {
	st := NewMemoryStore()
	old := now.Add(-time.Hour)
	if _, err := st.EnqueueAction(&models.QueuedAction{
		UserID: "stale", ActionID: "a", Kind: models.ActionAwardXP, CreatedAt: old,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.EnqueueAction(&models.QueuedAction{
		UserID: "fresh", ActionID: "b", Kind: models.ActionAwardXP, CreatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	users, err := st.UsersWithPendingActions(now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0] != "stale" {
		t.Errorf("users = %v, want [stale]", users)
	}
}

func TestMemoryStore_ActiveBoosterSelection(t *testing.T) {
	st := NewMemoryStore()
	if err := st.CreateBooster(&models.Booster{UserID: "u1", Multiplier: 3, ExpiresAt: now.Add(-time.Minute)}); err != nil {
		t.Fatal(err)
	}

	// Only an expired booster: no active booster, no error.
	b, err := st.ActiveBooster("u1", now)
	if err != nil {
		t.Fatal(err)
	}
	if b != nil {
		t.Errorf("ActiveBooster = %+v, want nil for expired booster", b)
	}

	if err := st.CreateBooster(&models.Booster{UserID: "u1", Multiplier: 2, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	b, err = st.ActiveBooster("u1", now)
	if err != nil || b == nil {
		t.Fatalf("ActiveBooster = %v, %v; want the live booster", b, err)
	}
	if b.Multiplier != 2 {
		t.Errorf("Multiplier = %d, want 2", b.Multiplier)
	}
}

func TestMemoryStore_SnapshotPeriodGuard(t *testing.T) {
	st := NewMemoryStore()
	created, err := st.InsertSnapshot(&models.LeagueSnapshot{PeriodKey: "2025-W11"})
	if err != nil || !created {
		t.Fatalf("first insert = %v, %v", created, err)
	}
	created, err = st.InsertSnapshot(&models.LeagueSnapshot{PeriodKey: "2025-W11"})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second snapshot for the same period reported as created")
	}
}
