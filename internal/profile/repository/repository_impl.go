package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/identity"
	"github.com/playpulse/clubsync/internal/observability/metrics"
	"github.com/playpulse/clubsync/internal/profile/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	log     *zap.Logger
	clock   clock.Clock
}

func New(db *gorm.DB, m *metrics.Metrics, log *zap.Logger, clk clock.Clock) domain.Repository {
	return &repo{
		db:      db,
		metrics: m,
		log:     log.Named("profile.repository"),
		clock:   clk,
	}
}

func (r *repo) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repo) Ensure(ctx context.Context, userID string, role string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUser
	}
	if role == "" {
		role = string(identity.RolePlayer)
	}
	now := r.clock.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Profile{
			UserID:      userID,
			Role:        role,
			CoachStatus: string(identity.VerificationPending),
			CreatedAt:   now,
			UpdatedAt:   now,
		}).Error
}

func (r *repo) SetCoachStatus(ctx context.Context, userID, status, reason, category string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"coach_status":       status,
			"rejection_reason":   reason,
			"rejection_category": category,
			"updated_at":         r.clock.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) SetTeam(ctx context.Context, tx *gorm.DB, userID string, teamID snowflake.ID) error {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	result := conn.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"team_id":    teamID,
			"updated_at": r.clock.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) ListPlayerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("role = ?", string(identity.RolePlayer)).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RoleDocs returns the projection input for one user. A row carrying values
// outside the closed role/status sets is dropped and counted, never fatal.
func (r *repo) RoleDocs(ctx context.Context, userID string) ([]identity.RoleDoc, error) {
	var rows []domain.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	docs := make([]identity.RoleDoc, 0, len(rows))
	for _, row := range rows {
		if !validRole(row.Role) || !validCoachStatus(row.CoachStatus) {
			r.metrics.IncDecodeDropped(ctx, "users")
			r.log.Warn("dropping malformed profile document",
				zap.String("user_id", row.UserID),
				zap.String("role", row.Role),
				zap.String("coach_status", row.CoachStatus),
			)
			continue
		}
		docs = append(docs, identity.RoleDoc{
			Role:              row.Role,
			CoachStatus:       row.CoachStatus,
			RejectionReason:   row.RejectionReason,
			RejectionCategory: row.RejectionCategory,
		})
	}
	return docs, nil
}

func validRole(role string) bool {
	switch role {
	case "", string(identity.RolePlayer), string(identity.RoleCoach):
		return true
	default:
		return false
	}
}

func validCoachStatus(status string) bool {
	switch status {
	case "", string(identity.VerificationPending), string(identity.VerificationApproved), string(identity.VerificationRejected):
		return true
	default:
		return false
	}
}
