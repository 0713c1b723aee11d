package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Invitation is a coach's offer to a player to join a team. TeamName is
// denormalized so listings render without a join.
type Invitation struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CoachID     string       `gorm:"not null;index" json:"coach_id"`
	PlayerID    string       `gorm:"not null;index" json:"player_id"`
	TeamID      snowflake.ID `gorm:"not null;index" json:"team_id"`
	TeamName    string       `gorm:"not null" json:"team_name"`
	Status      string       `gorm:"not null;default:pending" json:"status"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	RespondedAt *time.Time   `json:"responded_at,omitempty"`
}

func (Invitation) TableName() string { return "invitations" }

type CreateRequest struct {
	CoachID  string       `json:"-"`
	PlayerID string       `json:"player_id"`
	TeamID   snowflake.ID `json:"team_id"`
}

type Repository interface {
	Create(ctx context.Context, invitation *Invitation) error
	Get(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Invitation, error)
	ListByPlayer(ctx context.Context, playerID string, status Status) ([]Invitation, error)
	// MarkResolved transitions pending -> status and reports whether this
	// call won the transition. Runs inside the caller's transaction when tx
	// is non-nil.
	MarkResolved(ctx context.Context, tx *gorm.DB, id snowflake.ID, status Status, respondedAt time.Time) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Invitation, error)
	// Respond accepts or declines. Exactly one response ever wins; later
	// responses fail with ErrAlreadyResolved and change nothing.
	Respond(ctx context.Context, id snowflake.ID, playerID string, accept bool) (*Invitation, error)
	ListByPlayer(ctx context.Context, playerID string, status Status) ([]Invitation, error)
}

var (
	ErrAlreadyResolved = errors.New("already_resolved")
	ErrNotInvitee      = errors.New("not_invitee")
	ErrNotTeamOwner    = errors.New("not_team_owner")
	ErrNotFound        = errors.New("not_found")
)
