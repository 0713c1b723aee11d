package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/feed/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db    *gorm.DB
	clock clock.Clock
}

func New(db *gorm.DB, clk clock.Clock) domain.Repository {
	return &repo{db: db, clock: clk}
}

func (r *repo) CreateSubmission(ctx context.Context, submission *domain.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *repo) DeleteSubmission(ctx context.Context, id snowflake.ID, ownerID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&domain.Submission{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Submission, error) {
	var submissions []domain.Submission
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc, id desc").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *repo) CountLikes(ctx context.Context, submissionID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Like{}).
		Where("submission_id = ?", submissionID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Like(ctx context.Context, submissionID snowflake.ID, userID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Like{
			SubmissionID: submissionID,
			UserID:       userID,
			CreatedAt:    r.clock.Now(),
		}).Error
}

func (r *repo) DistinctSubmitters(ctx context.Context, challengeID snowflake.ID) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Distinct("owner_id").
		Where("challenge_id = ?", challengeID).
		Pluck("owner_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
