package workers

import (
	"testing"
	"time"

	"habit-league-system/models"
	"habit-league-system/services"
	"habit-league-system/store"

	"go.uber.org/zap"
)

// transactHookStore runs a callback before each transaction, so a test can
// interleave a concurrent commit between a worker's read and its write.
type transactHookStore struct {
	store.Store
	beforeTransact func(call int)
	calls          int
}

func (h *transactHookStore) Transact(fn func(tx store.Store) error) error {
	h.calls++
	if h.beforeTransact != nil {
		h.beforeTransact(h.calls)
	}
	return h.Store.Transact(fn)
}

func TestProfileSyncApply_RenameDoesNotRevertConcurrentAward(t *testing.T) {
	mem := store.NewMemoryStore()
	if err := mem.CreateUser(&models.UserProgression{
		ExternalUserID: "u1",
		DisplayName:    "old-name",
		Level:          1,
		League:         models.LeagueBronze,
	}); err != nil {
		t.Fatal(err)
	}

	log := zap.NewNop()
	hooked := &transactHookStore{Store: mem}
	prog := services.NewProgressionService(hooked, log)
	w := NewProfileSyncWorker(hooked, prog, log, "http://profiles", "", time.Minute)

	// The first transaction is the ensure-record read; the second is the
	// rename. An XP award lands on the row between the two, the way a
	// live AwardXP commit would.
	hooked.beforeTransact = func(call int) {
		if call != 2 {
			return
		}
		u, err := mem.GetUser("u1")
		if err != nil {
			t.Fatal(err)
		}
		u.XP, u.WeeklyXP, u.LifetimeXP = 100, 100, 100
		if err := mem.SaveUser(u); err != nil {
			t.Fatal(err)
		}
	}

	if err := w.apply(mirroredProfile{ExternalID: "u1", Username: "new-name"}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	u, err := mem.GetUser("u1")
	if err != nil {
		t.Fatal(err)
	}
	if u.DisplayName != "new-name" {
		t.Errorf("DisplayName = %q, want new-name", u.DisplayName)
	}
	if u.XP != 100 || u.LifetimeXP != 100 {
		t.Errorf("XP = %d LifetimeXP = %d after rename, want 100 each (concurrent award preserved)", u.XP, u.LifetimeXP)
	}
}

func TestProfileSyncApply_CreatesMissingRecordWithStarterGrants(t *testing.T) {
	mem := store.NewMemoryStore()
	log := zap.NewNop()
	prog := services.NewProgressionService(mem, log)
	w := NewProfileSyncWorker(mem, prog, log, "http://profiles", "", time.Minute)

	if err := w.apply(mirroredProfile{ExternalID: "u2", Username: "fresh"}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	u, err := mem.GetUser("u2")
	if err != nil {
		t.Fatal(err)
	}
	if u.DisplayName != "fresh" || u.Gems != models.StarterGems || u.League != models.LeagueBronze {
		t.Errorf("user = %+v, want starter grants with the synced name", u)
	}
}
