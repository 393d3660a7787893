package services

import (
	"testing"
	"time"

	"habit-league-system/models"
	"habit-league-system/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// A Wednesday, well inside an ISO week, outside the morning window.
var testNow = time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)

func newTestProgression(t *testing.T, st store.Store, at time.Time) *ProgressionService {
	t.Helper()
	svc := NewProgressionService(st, zap.NewNop())
	svc.Clock = clockwork.NewFakeClockAt(at)
	return svc
}

func newTestStreak(t *testing.T, st store.Store, at time.Time) *StreakService {
	t.Helper()
	svc := NewStreakService(st, zap.NewNop())
	svc.Clock = clockwork.NewFakeClockAt(at)
	return svc
}

func newTestBooster(t *testing.T, st store.Store, at time.Time) *BoosterService {
	t.Helper()
	svc := NewBoosterService(st, zap.NewNop())
	svc.Clock = clockwork.NewFakeClockAt(at)
	return svc
}

func newTestLeague(t *testing.T, st store.Store, at time.Time) *LeagueService {
	t.Helper()
	svc := NewLeagueService(st, zap.NewNop())
	svc.Clock = clockwork.NewFakeClockAt(at)
	return svc
}

func newTestEntitlements(t *testing.T, st store.Store, at time.Time) *EntitlementService {
	t.Helper()
	svc := NewEntitlementService(st, zap.NewNop())
	svc.Clock = clockwork.NewFakeClockAt(at)
	return svc
}

// seedUser creates a progression row with starter defaults, then applies mut.
func seedUser(t *testing.T, st store.Store, id string, mut func(*models.UserProgression)) *models.UserProgression {
	t.Helper()
	u := &models.UserProgression{
		ExternalUserID:       id,
		DisplayName:          id,
		Level:                1,
		Gems:                 models.StarterGems,
		GracePassesAvailable: models.StarterGracePasses,
		League:               models.LeagueBronze,
	}
	if mut != nil {
		mut(u)
	}
	if err := st.CreateUser(u); err != nil {
		t.Fatalf("CreateUser(%s): %v", id, err)
	}
	return u
}

func mustGetUser(t *testing.T, st store.Store, id string) *models.UserProgression {
	t.Helper()
	u, err := st.GetUser(id)
	if err != nil {
		t.Fatalf("GetUser(%s): %v", id, err)
	}
	return u
}
