package store

import (
	"errors"
	"time"

	"habit-league-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transact(fn func(tx Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) GetUser(externalUserID string) (*models.UserProgression, error) {
	var u models.UserProgression
	err := s.db.Where("external_user_id = ?", externalUserID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) GetUserForUpdate(externalUserID string) (*models.UserProgression, error) {
	var u models.UserProgression
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ?", externalUserID).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) CreateUser(u *models.UserProgression) error {
	return s.db.Create(u).Error
}

func (s *GormStore) SaveUser(u *models.UserProgression) error {
	return s.db.Save(u).Error
}

func (s *GormStore) ListUsers() ([]models.UserProgression, error) {
	var users []models.UserProgression
	err := s.db.Find(&users).Error
	return users, err
}

func (s *GormStore) ListLeaderboard(league int, order LeaderboardOrder, limit, offset int) ([]models.UserProgression, error) {
	// League tier dominates: a lower-league member never outranks a
	// higher-league one no matter the raw score.
	orderBy := "league DESC, weekly_xp DESC, lifetime_xp DESC"
	if order == OrderAllTime {
		orderBy = "league DESC, lifetime_xp DESC, weekly_xp DESC"
	}

	q := s.db.Order(orderBy).Limit(limit).Offset(offset)
	if league != 0 {
		q = q.Where("league = ?", league)
	}

	var users []models.UserProgression
	err := q.Find(&users).Error
	return users, err
}

func (s *GormStore) InsertLedgerEntry(e *models.LedgerEntry) (bool, error) {
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "action_id"}},
		DoNothing: true,
	}).Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) CreateBooster(b *models.Booster) error {
	return s.db.Create(b).Error
}

func (s *GormStore) ActiveBooster(userID string, now time.Time) (*models.Booster, error) {
	var b models.Booster
	err := s.db.Where("user_id = ? AND expires_at > ?", userID, now).
		Order("expires_at DESC").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *GormStore) CreateActivity(a *models.SocialActivity) error {
	return s.db.Create(a).Error
}

func (s *GormStore) InsertSnapshot(snap *models.LeagueSnapshot) (bool, error) {
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "period_key"}},
		DoNothing: true,
	}).Create(snap)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) GetSnapshot(periodKey string) (*models.LeagueSnapshot, error) {
	var snap models.LeagueSnapshot
	err := s.db.Where("period_key = ?", periodKey).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *GormStore) EnqueueAction(a *models.QueuedAction) (bool, error) {
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "action_id"}},
		DoNothing: true,
	}).Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) PendingActions(userID string) ([]models.QueuedAction, error) {
	var actions []models.QueuedAction
	err := s.db.Where("user_id = ? AND processed = ?", userID, false).
		Order("created_at ASC, id ASC").
		Find(&actions).Error
	return actions, err
}

func (s *GormStore) UsersWithPendingActions(olderThan time.Time) ([]string, error) {
	var userIDs []string
	err := s.db.Model(&models.QueuedAction{}).
		Where("processed = ? AND created_at < ?", false, olderThan).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func (s *GormStore) MarkActionProcessed(id string, at time.Time) error {
	return s.db.Model(&models.QueuedAction{}).
		Where("id = ?", id).
		Updates(map[string]any{"processed": true, "processed_at": at}).Error
}
