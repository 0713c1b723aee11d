package repository

import (
	"context"
	"errors"

	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/notification/domain"
	"github.com/playpulse/clubsync/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) CreateIfAbsent(ctx context.Context, record *domain.Record) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) List(ctx context.Context, userID string, page pagination.Pagination) ([]domain.Record, error) {
	var records []domain.Record
	stmt := r.db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("recipient_id = ?", userID)
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.CreatedAt != "" {
			stmt = stmt.Where("created_at < ?", cursor.CreatedAt)
		}
	}
	err := page.Apply(stmt).
		Order("created_at desc, id desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) MarkRead(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("id = ? AND recipient_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) DeleteAll(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Delete(&domain.Record{}).Error
}

func (r *repo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

type prefRepo struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewPreferences(db *gorm.DB, clk clock.Clock) domain.PreferenceRepository {
	return &prefRepo{db: db, clock: clk}
}

func (r *prefRepo) Enabled(ctx context.Context, userID string, typ domain.Type) (bool, error) {
	var pref domain.Preference
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, string(typ)).
		First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return pref.Enabled, nil
}

func (r *prefRepo) Set(ctx context.Context, userID string, typ domain.Type, enabled bool) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
		}).
		Create(&domain.Preference{
			UserID:    userID,
			Type:      string(typ),
			Enabled:   enabled,
			UpdatedAt: r.clock.Now(),
		}).Error
}
