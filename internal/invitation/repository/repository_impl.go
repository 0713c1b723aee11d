package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/invitation/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, invitation *domain.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *repo) Get(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Invitation, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	var invitation domain.Invitation
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repo) ListByPlayer(ctx context.Context, playerID string, status domain.Status) ([]domain.Invitation, error) {
	var invitations []domain.Invitation
	stmt := r.db.WithContext(ctx).
		Where("player_id = ?", playerID)
	if status != "" {
		stmt = stmt.Where("status = ?", string(status))
	}
	err := stmt.Order("created_at desc").Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

// MarkResolved is the workflow's only write to invitation status. The status
// precondition in the WHERE clause is what makes concurrent responses safe:
// whichever update affects a row wins, every other caller sees zero rows.
func (r *repo) MarkResolved(ctx context.Context, tx *gorm.DB, id snowflake.ID, status domain.Status, respondedAt time.Time) (bool, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	result := conn.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ? AND status = ?", id, string(domain.StatusPending)).
		Updates(map[string]any{
			"status":       string(status),
			"responded_at": respondedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
