package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Team struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CoachID   string       `gorm:"not null;index" json:"coach_id"`
	Name      string       `gorm:"not null" json:"name"`
	Slug      string       `gorm:"not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Team) TableName() string { return "teams" }

// Member links a player to a team. The unique index keeps a player on one
// team at most.
type Member struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	TeamID   snowflake.ID `gorm:"not null;index" json:"team_id"`
	PlayerID string       `gorm:"not null;uniqueIndex" json:"player_id"`
	JoinedAt time.Time    `gorm:"not null" json:"joined_at"`
}

func (Member) TableName() string { return "team_members" }

type Repository interface {
	Create(ctx context.Context, team *Team) error
	Get(ctx context.Context, id snowflake.ID) (*Team, error)
	GetByCoach(ctx context.Context, coachID string) (*Team, error)
	// AddMember runs inside the caller's transaction when tx is non-nil.
	AddMember(ctx context.Context, tx *gorm.DB, member *Member) error
	ListMembers(ctx context.Context, teamID snowflake.ID) ([]Member, error)
}

type Service interface {
	Create(ctx context.Context, coachID, name string) (*Team, error)
	Get(ctx context.Context, id snowflake.ID) (*Team, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrNotFound    = errors.New("not_found")
)
