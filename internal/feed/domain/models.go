package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Submission is a player's entry to a challenge, as stored.
type Submission struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ChallengeID snowflake.ID `gorm:"not null;index" json:"challenge_id"`
	OwnerID     string       `gorm:"not null;index" json:"owner_id"`
	MediaURL    string       `gorm:"not null" json:"media_url"`
	CreatedAt   time.Time    `gorm:"not null;index" json:"created_at"`
}

func (Submission) TableName() string { return "submissions" }

// Like is one player's like on a submission. The composite key makes liking
// idempotent.
type Like struct {
	SubmissionID snowflake.ID `gorm:"primaryKey" json:"submission_id"`
	UserID       string       `gorm:"primaryKey" json:"user_id"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (Like) TableName() string { return "submission_likes" }

// Item is a feed entry after enrichment: the stored submission joined with
// its challenge title and like count.
type Item struct {
	ID             snowflake.ID `json:"id"`
	ChallengeID    snowflake.ID `json:"challenge_id"`
	OwnerID        string       `json:"owner_id"`
	ChallengeTitle string       `json:"challenge_title"`
	MediaURL       string       `json:"media_url"`
	LikeCount      int64        `json:"like_count"`
	CreatedAt      time.Time    `json:"created_at"`
}

type CreateSubmissionRequest struct {
	OwnerID     string       `json:"-"`
	ChallengeID snowflake.ID `json:"challenge_id"`
	MediaURL    string       `json:"media_url"`
}

type Repository interface {
	CreateSubmission(ctx context.Context, submission *Submission) error
	DeleteSubmission(ctx context.Context, id snowflake.ID, ownerID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]Submission, error)
	CountLikes(ctx context.Context, submissionID snowflake.ID) (int64, error)
	Like(ctx context.Context, submissionID snowflake.ID, userID string) error

	// DistinctSubmitters backs challenge-ended fan-out discovery.
	DistinctSubmitters(ctx context.Context, challengeID snowflake.ID) ([]string, error)
}

type Service interface {
	CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*Item, error)
	DeleteSubmission(ctx context.Context, id snowflake.ID, ownerID string) error
	Like(ctx context.Context, submissionID snowflake.ID, userID string) error
}

var (
	ErrInvalidMedia   = errors.New("invalid_media")
	ErrChallengeEnded = errors.New("challenge_ended")
	ErrNotFound       = errors.New("not_found")
)
