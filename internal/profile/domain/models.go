package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/identity"
	"gorm.io/gorm"
)

// Profile is the users/{uid} document. Role and coach status are stored as
// strings and validated on read; rows with values outside the closed sets are
// dropped from projections rather than failing them.
type Profile struct {
	UserID            string       `gorm:"column:user_id;primaryKey" json:"user_id"`
	Role              string       `gorm:"not null;default:player" json:"role"`
	CoachStatus       string       `gorm:"not null;default:pending" json:"coach_status"`
	RejectionReason   string       `json:"rejection_reason,omitempty"`
	RejectionCategory string       `json:"rejection_category,omitempty"`
	TeamID            snowflake.ID `gorm:"index" json:"team_id,omitempty"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

func (Profile) TableName() string { return "users" }

type Repository interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Ensure(ctx context.Context, userID string, role string) error
	SetCoachStatus(ctx context.Context, userID, status, reason, category string) error
	SetTeam(ctx context.Context, tx *gorm.DB, userID string, teamID snowflake.ID) error
	ListPlayerIDs(ctx context.Context) ([]string, error)

	// RoleDocs backs the identity role projection.
	RoleDocs(ctx context.Context, userID string) ([]identity.RoleDoc, error)
}

type Service interface {
	ApproveCoach(ctx context.Context, userID string) error
	RejectCoach(ctx context.Context, userID, reason, category string) error
}

var (
	ErrInvalidUser = errors.New("invalid_user")
	ErrNotFound    = errors.New("not_found")
)
