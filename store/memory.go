package store

import (
	"sort"
	"sync"
	"time"

	"habit-league-system/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local development.
// A single mutex serializes everything, which matches the transactional
// discipline the engine expects from Postgres.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	users      map[string]*models.UserProgression // by external user id
	ledger     map[string]*models.LedgerEntry     // by action id
	boosters   []*models.Booster
	activities []*models.SocialActivity
	snapshots  map[string]*models.LeagueSnapshot // by period key
	queue      []*models.QueuedAction
	seq        int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		users:     make(map[string]*models.UserProgression),
		ledger:    make(map[string]*models.LedgerEntry),
		snapshots: make(map[string]*models.LeagueSnapshot),
	}}
}

func (m *MemoryStore) Transact(fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.data.clone()
	if err := fn(&memTx{d: m.data}); err != nil {
		*m.data = *snapshot // roll back
		return err
	}
	return nil
}

// clone deep-copies the store contents for transaction rollback.
func (d *memData) clone() *memData {
	cp := &memData{
		users:      make(map[string]*models.UserProgression, len(d.users)),
		ledger:     make(map[string]*models.LedgerEntry, len(d.ledger)),
		boosters:   make([]*models.Booster, len(d.boosters)),
		activities: make([]*models.SocialActivity, len(d.activities)),
		snapshots:  make(map[string]*models.LeagueSnapshot, len(d.snapshots)),
		queue:      make([]*models.QueuedAction, len(d.queue)),
		seq:        d.seq,
	}
	for k, v := range d.users {
		u := *v
		cp.users[k] = &u
	}
	for k, v := range d.ledger {
		e := *v
		cp.ledger[k] = &e
	}
	for i, v := range d.boosters {
		b := *v
		cp.boosters[i] = &b
	}
	for i, v := range d.activities {
		a := *v
		cp.activities[i] = &a
	}
	for k, v := range d.snapshots {
		s := *v
		cp.snapshots[k] = &s
	}
	for i, v := range d.queue {
		q := *v
		cp.queue[i] = &q
	}
	return cp
}

// The non-transactional methods lock and delegate to the tx view.

func (m *MemoryStore) GetUser(id string) (*models.UserProgression, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).GetUser(id)
}

func (m *MemoryStore) GetUserForUpdate(id string) (*models.UserProgression, error) {
	return m.GetUser(id)
}

func (m *MemoryStore) CreateUser(u *models.UserProgression) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).CreateUser(u)
}

func (m *MemoryStore) SaveUser(u *models.UserProgression) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).SaveUser(u)
}

func (m *MemoryStore) ListUsers() ([]models.UserProgression, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).ListUsers()
}

func (m *MemoryStore) ListLeaderboard(league int, order LeaderboardOrder, limit, offset int) ([]models.UserProgression, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).ListLeaderboard(league, order, limit, offset)
}

func (m *MemoryStore) InsertLedgerEntry(e *models.LedgerEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).InsertLedgerEntry(e)
}

func (m *MemoryStore) CreateBooster(b *models.Booster) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).CreateBooster(b)
}

func (m *MemoryStore) ActiveBooster(userID string, now time.Time) (*models.Booster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).ActiveBooster(userID, now)
}

func (m *MemoryStore) CreateActivity(a *models.SocialActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).CreateActivity(a)
}

func (m *MemoryStore) InsertSnapshot(s *models.LeagueSnapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).InsertSnapshot(s)
}

func (m *MemoryStore) GetSnapshot(periodKey string) (*models.LeagueSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).GetSnapshot(periodKey)
}

func (m *MemoryStore) EnqueueAction(a *models.QueuedAction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).EnqueueAction(a)
}

func (m *MemoryStore) PendingActions(userID string) ([]models.QueuedAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).PendingActions(userID)
}

func (m *MemoryStore) UsersWithPendingActions(olderThan time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).UsersWithPendingActions(olderThan)
}

func (m *MemoryStore) MarkActionProcessed(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{d: m.data}).MarkActionProcessed(id, at)
}

// Ledger returns a copy of all ledger entries, for test assertions.
func (m *MemoryStore) Ledger() []models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LedgerEntry, 0, len(m.data.ledger))
	for _, e := range m.data.ledger {
		out = append(out, *e)
	}
	return out
}

// Activities returns a copy of all social activity rows, for test assertions.
func (m *MemoryStore) Activities() []models.SocialActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SocialActivity, len(m.data.activities))
	for i, a := range m.data.activities {
		out[i] = *a
	}
	return out
}

// memTx is the unlocked transactional view; the caller holds the mutex.
type memTx struct {
	d *memData
}

func (t *memTx) Transact(fn func(tx Store) error) error {
	// Already inside the outer transaction; join it.
	return fn(t)
}

func (t *memTx) GetUser(id string) (*models.UserProgression, error) {
	u, ok := t.d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (t *memTx) GetUserForUpdate(id string) (*models.UserProgression, error) {
	return t.GetUser(id)
}

func (t *memTx) CreateUser(u *models.UserProgression) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	t.d.users[u.ExternalUserID] = &cp
	return nil
}

func (t *memTx) SaveUser(u *models.UserProgression) error {
	cp := *u
	t.d.users[u.ExternalUserID] = &cp
	return nil
}

func (t *memTx) ListUsers() ([]models.UserProgression, error) {
	out := make([]models.UserProgression, 0, len(t.d.users))
	for _, u := range t.d.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalUserID < out[j].ExternalUserID })
	return out, nil
}

func (t *memTx) ListLeaderboard(league int, order LeaderboardOrder, limit, offset int) ([]models.UserProgression, error) {
	all, _ := t.ListUsers()
	filtered := all[:0]
	for _, u := range all {
		if league == 0 || u.League == league {
			filtered = append(filtered, u)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.League != b.League {
			return a.League > b.League
		}
		if order == OrderAllTime {
			if a.LifetimeXP != b.LifetimeXP {
				return a.LifetimeXP > b.LifetimeXP
			}
			return a.WeeklyXP > b.WeeklyXP
		}
		if a.WeeklyXP != b.WeeklyXP {
			return a.WeeklyXP > b.WeeklyXP
		}
		return a.LifetimeXP > b.LifetimeXP
	})
	if offset >= len(filtered) {
		return nil, nil
	}
	filtered = filtered[offset:]
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (t *memTx) InsertLedgerEntry(e *models.LedgerEntry) (bool, error) {
	if _, exists := t.d.ledger[e.ActionID]; exists {
		return false, nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	t.d.ledger[e.ActionID] = &cp
	return true, nil
}

func (t *memTx) CreateBooster(b *models.Booster) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	cp := *b
	t.d.boosters = append(t.d.boosters, &cp)
	return nil
}

func (t *memTx) ActiveBooster(userID string, now time.Time) (*models.Booster, error) {
	var best *models.Booster
	for _, b := range t.d.boosters {
		if b.UserID != userID || !b.ExpiresAt.After(now) {
			continue
		}
		if best == nil || b.ExpiresAt.After(best.ExpiresAt) {
			best = b
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (t *memTx) CreateActivity(a *models.SocialActivity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	t.d.activities = append(t.d.activities, &cp)
	return nil
}

func (t *memTx) InsertSnapshot(s *models.LeagueSnapshot) (bool, error) {
	if _, exists := t.d.snapshots[s.PeriodKey]; exists {
		return false, nil
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	cp := *s
	t.d.snapshots[s.PeriodKey] = &cp
	return true, nil
}

func (t *memTx) GetSnapshot(periodKey string) (*models.LeagueSnapshot, error) {
	s, ok := t.d.snapshots[periodKey]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (t *memTx) EnqueueAction(a *models.QueuedAction) (bool, error) {
	for _, q := range t.d.queue {
		if q.ActionID == a.ActionID {
			return false, nil
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		t.d.seq++
		a.CreatedAt = time.Now().UTC().Add(time.Duration(t.d.seq) * time.Microsecond)
	}
	cp := *a
	t.d.queue = append(t.d.queue, &cp)
	return true, nil
}

func (t *memTx) PendingActions(userID string) ([]models.QueuedAction, error) {
	var out []models.QueuedAction
	for _, q := range t.d.queue {
		if q.UserID == userID && !q.Processed {
			out = append(out, *q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) UsersWithPendingActions(olderThan time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, q := range t.d.queue {
		if !q.Processed && q.CreatedAt.Before(olderThan) && !seen[q.UserID] {
			seen[q.UserID] = true
			out = append(out, q.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (t *memTx) MarkActionProcessed(id string, at time.Time) error {
	for _, q := range t.d.queue {
		if q.ID == id {
			q.Processed = true
			q.ProcessedAt = &at
			return nil
		}
	}
	return ErrNotFound
}
