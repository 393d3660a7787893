// Package store abstracts persistence behind an interface so the game
// engine can run against Postgres in production and an in-memory fake in
// tests.
package store

import (
	"errors"
	"time"

	"habit-league-system/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// LeaderboardOrder selects the in-league score column for leaderboard reads.
// The league tier always dominates the ordering regardless of this choice.
type LeaderboardOrder string

const (
	OrderWeekly  LeaderboardOrder = "weekly"
	OrderAllTime LeaderboardOrder = "alltime"
)

// Store is the persistence surface of the game engine. Implementations
// must make InsertLedgerEntry atomic with respect to concurrent inserts of
// the same action id: exactly one caller observes created=true.
type Store interface {
	// Transact runs fn atomically; either every write lands or none does.
	// Implementations pass a transactional view of themselves to fn.
	Transact(fn func(tx Store) error) error

	GetUser(externalUserID string) (*models.UserProgression, error)
	// GetUserForUpdate locks the user row for the rest of the transaction.
	GetUserForUpdate(externalUserID string) (*models.UserProgression, error)
	CreateUser(u *models.UserProgression) error
	SaveUser(u *models.UserProgression) error
	ListUsers() ([]models.UserProgression, error)
	ListLeaderboard(league int, order LeaderboardOrder, limit, offset int) ([]models.UserProgression, error)

	// InsertLedgerEntry appends e, reporting created=false when the action
	// id was already recorded.
	InsertLedgerEntry(e *models.LedgerEntry) (bool, error)

	CreateBooster(b *models.Booster) error
	// ActiveBooster returns the user's non-expired booster with the latest
	// expiry, or nil when none is live.
	ActiveBooster(userID string, now time.Time) (*models.Booster, error)

	CreateActivity(a *models.SocialActivity) error

	// InsertSnapshot persists a weekly snapshot, reporting created=false
	// when the period key was already recorded.
	InsertSnapshot(s *models.LeagueSnapshot) (bool, error)
	GetSnapshot(periodKey string) (*models.LeagueSnapshot, error)

	// EnqueueAction records an offline action, reporting created=false on a
	// duplicate action id.
	EnqueueAction(a *models.QueuedAction) (bool, error)
	// PendingActions returns a user's unprocessed actions oldest-first.
	PendingActions(userID string) ([]models.QueuedAction, error)
	UsersWithPendingActions(olderThan time.Time) ([]string, error)
	MarkActionProcessed(id string, at time.Time) error
}
