package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/challenge/domain"
	"github.com/playpulse/clubsync/internal/clock"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	clock clock.Clock
}

func New(db *gorm.DB, clk clock.Clock) domain.Repository {
	return &repo{db: db, clock: clk}
}

func (r *repo) Create(ctx context.Context, challenge *domain.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

func (r *repo) Get(ctx context.Context, id snowflake.ID) (*domain.Challenge, error) {
	var challenge domain.Challenge
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&challenge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *repo) List(ctx context.Context, status domain.Status) ([]domain.Challenge, error) {
	var challenges []domain.Challenge
	stmt := r.db.WithContext(ctx).Model(&domain.Challenge{})
	if status != "" {
		stmt = stmt.Where("status = ?", string(status))
	}
	err := stmt.Order("created_at desc").Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

func (r *repo) FindEndedOpen(ctx context.Context, now time.Time) ([]domain.Challenge, error) {
	var challenges []domain.Challenge
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at <= ?", string(domain.StatusOpen), now).
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// MarkEnded is a conditional update so concurrent sweepers race safely: only
// the caller whose update affects a row proceeds to fan out notifications.
func (r *repo) MarkEnded(ctx context.Context, id snowflake.ID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Challenge{}).
		Where("id = ? AND status = ?", id, string(domain.StatusOpen)).
		Updates(map[string]any{
			"status":     string(domain.StatusEnded),
			"updated_at": r.clock.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
