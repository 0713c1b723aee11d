package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/team/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, team *domain.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *repo) Get(ctx context.Context, id snowflake.ID) (*domain.Team, error) {
	var team domain.Team
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *repo) GetByCoach(ctx context.Context, coachID string) (*domain.Team, error) {
	var team domain.Team
	err := r.db.WithContext(ctx).
		Where("coach_id = ?", coachID).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *repo) AddMember(ctx context.Context, tx *gorm.DB, member *domain.Member) error {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	return conn.WithContext(ctx).Create(member).Error
}

func (r *repo) ListMembers(ctx context.Context, teamID snowflake.ID) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("joined_at asc").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
