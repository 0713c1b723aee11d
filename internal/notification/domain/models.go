package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/watch"
	"github.com/playpulse/clubsync/pkg/db/pagination"
	"gorm.io/datatypes"
)

// Type is the closed notification type enum.
type Type string

const (
	TypeChallengeCreated         Type = "challenge_created"
	TypeChallengeEnded           Type = "challenge_ended"
	TypePlayerChallengeSubmitted Type = "player_challenge_submitted"
	TypeMonthlyRecap             Type = "monthly_recap"
	TypeTeamInvitation           Type = "team_invitation"
	TypeInvitationAccepted       Type = "invitation_accepted"
	TypeInvitationDeclined       Type = "invitation_declined"
	TypeCoachApproved            Type = "coach_approved"
	TypeCoachRejected            Type = "coach_rejected"
)

var allTypes = map[Type]struct{}{
	TypeChallengeCreated:         {},
	TypeChallengeEnded:           {},
	TypePlayerChallengeSubmitted: {},
	TypeMonthlyRecap:             {},
	TypeTeamInvitation:           {},
	TypeInvitationAccepted:       {},
	TypeInvitationDeclined:       {},
	TypeCoachApproved:            {},
	TypeCoachRejected:            {},
}

func (t Type) Valid() bool {
	_, ok := allTypes[t]
	return ok
}

// Record is a persisted notification. For event-bound types the id is
// deterministic over (type, recipient, correlation id), which makes creation
// a conditional insert and the idempotency invariant structural.
type Record struct {
	ID                string            `gorm:"primaryKey" json:"id"`
	RecipientID       string            `gorm:"not null;index" json:"recipient_id"`
	Type              string            `gorm:"not null" json:"type"`
	Title             string            `gorm:"not null" json:"title"`
	Message           string            `gorm:"not null" json:"message"`
	CorrelationFields datatypes.JSONMap `gorm:"type:jsonb" json:"correlation_fields,omitempty"`
	IsRead            bool              `gorm:"not null;default:false" json:"is_read"`
	CreatedAt         time.Time         `gorm:"not null;index" json:"created_at"`
}

func (Record) TableName() string { return "notifications" }

// Preference is one explicit per-user gate; absence of a row means enabled.
type Preference struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	Type      string    `gorm:"primaryKey" json:"type"`
	Enabled   bool      `gorm:"not null" json:"enabled"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Preference) TableName() string { return "notification_preferences" }

type Outcome string

const (
	OutcomeCreated           Outcome = "created"
	OutcomeSkippedPreference Outcome = "skipped_preference"
	OutcomeSkippedDuplicate  Outcome = "skipped_duplicate"
	OutcomeFailed            Outcome = "failed"
)

// Result is the per-recipient outcome of a fan-out.
type Result struct {
	RecipientID string
	Outcome     Outcome
	Err         error
}

// Request describes one fan-out. Correlation carries type-specific keys
// (challengeId, teamId, ...); for event-bound types the policy names which
// key forms the idempotency tuple.
type Request struct {
	Type        Type
	Recipients  []string
	Title       string
	Message     string
	Correlation map[string]string
}

type ListRequest struct {
	UserID string
	Page   pagination.Pagination
}

type ListResponse struct {
	pagination.PageInfo
	Notifications []Record `json:"notifications"`
}

type Service interface {
	Notify(ctx context.Context, req Request) ([]Result, error)
	NotifyChallengeEnded(ctx context.Context, challengeID snowflake.ID, challengeTitle string) ([]Result, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
	// WatchUnread streams the unread badge count, re-derived on every
	// notifications collection change.
	WatchUnread(ctx context.Context, userID string) *watch.Handle[int64]
	SetPreference(ctx context.Context, userID string, typ Type, enabled bool) error
}

type Repository interface {
	// CreateIfAbsent persists the record unless its id already exists and
	// reports whether a row was written.
	CreateIfAbsent(ctx context.Context, record *Record) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, userID string, page pagination.Pagination) ([]Record, error)
	MarkRead(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type PreferenceRepository interface {
	// Enabled defaults to true when no explicit preference row exists.
	Enabled(ctx context.Context, userID string, typ Type) (bool, error)
	Set(ctx context.Context, userID string, typ Type, enabled bool) error
}

// RecipientSource discovers fan-out recipients for batch notifications.
type RecipientSource interface {
	DistinctSubmitters(ctx context.Context, challengeID snowflake.ID) ([]string, error)
}

var (
	ErrInvalidType      = errors.New("invalid_type")
	ErrInvalidRecipient = errors.New("invalid_recipient")
	ErrNotFound         = errors.New("not_found")
)
