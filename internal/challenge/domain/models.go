package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusOpen  Status = "open"
	StatusEnded Status = "ended"
)

// Challenge is a monthly training challenge players submit entries to.
type Challenge struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CoachID   string       `gorm:"not null;index" json:"coach_id"`
	Title     string       `gorm:"not null" json:"title"`
	MonthName string       `gorm:"not null" json:"month_name"`
	Status    string       `gorm:"not null;default:open;index" json:"status"`
	EndsAt    time.Time    `gorm:"not null;index" json:"ends_at"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Challenge) TableName() string { return "challenges" }

type CreateRequest struct {
	CoachID   string    `json:"-"`
	Title     string    `json:"title"`
	MonthName string    `json:"month_name"`
	EndsAt    time.Time `json:"ends_at"`
}

type Repository interface {
	Create(ctx context.Context, challenge *Challenge) error
	Get(ctx context.Context, id snowflake.ID) (*Challenge, error)
	List(ctx context.Context, status Status) ([]Challenge, error)
	// FindEndedOpen returns open challenges whose deadline has passed.
	FindEndedOpen(ctx context.Context, now time.Time) ([]Challenge, error)
	// MarkEnded transitions open -> ended and reports whether this call won
	// the transition.
	MarkEnded(ctx context.Context, id snowflake.ID) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Challenge, error)
	Get(ctx context.Context, id snowflake.ID) (*Challenge, error)
	List(ctx context.Context, status Status) ([]Challenge, error)
}

var (
	ErrNotVerifiedCoach = errors.New("not_verified_coach")
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidDeadline  = errors.New("invalid_deadline")
	ErrNotFound         = errors.New("not_found")
)
