package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	challengedomain "github.com/playpulse/clubsync/internal/challenge/domain"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/feed/domain"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	"go.uber.org/zap"
)

const (
	submissionsCollection = "submissions"
	likesCollection       = "submission_likes"
)

type service struct {
	log        *zap.Logger
	repo       domain.Repository
	challenges challengedomain.Repository
	notifier   notificationdomain.Service
	bus        *eventbus.Bus
	clock      clock.Clock
	node       *snowflake.Node
}

func New(
	log *zap.Logger,
	repo domain.Repository,
	challenges challengedomain.Repository,
	notifier notificationdomain.Service,
	bus *eventbus.Bus,
	clk clock.Clock,
	node *snowflake.Node,
) domain.Service {
	return &service{
		log:        log.Named("feed"),
		repo:       repo,
		challenges: challenges,
		notifier:   notifier,
		bus:        bus,
		clock:      clk,
		node:       node,
	}
}

// CreateSubmission persists the entry, emits the optimistic feed event so the
// owner's view updates before the next authoritative snapshot, and records
// the owner's own submission confirmation.
func (s *service) CreateSubmission(ctx context.Context, req domain.CreateSubmissionRequest) (*domain.Item, error) {
	if strings.TrimSpace(req.MediaURL) == "" {
		return nil, domain.ErrInvalidMedia
	}
	challenge, err := s.challenges.Get(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Status != string(challengedomain.StatusOpen) {
		return nil, domain.ErrChallengeEnded
	}

	submission := &domain.Submission{
		ID:          s.node.Generate(),
		ChallengeID: req.ChallengeID,
		OwnerID:     req.OwnerID,
		MediaURL:    req.MediaURL,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.CreateSubmission(ctx, submission); err != nil {
		return nil, err
	}

	item := domain.Item{
		ID:             submission.ID,
		ChallengeID:    submission.ChallengeID,
		OwnerID:        submission.OwnerID,
		ChallengeTitle: challenge.Title,
		MediaURL:       submission.MediaURL,
		CreatedAt:      submission.CreatedAt,
	}
	s.bus.Publish(eventbus.TopicFeedItemCreated, item)
	s.bus.Publish(eventbus.CollectionChanged(submissionsCollection), nil)

	// Self-notification is keyed by challenge, so resubmitting to the same
	// challenge never produces a second record.
	if _, err := s.notifier.Notify(ctx, notificationdomain.Request{
		Type:       notificationdomain.TypePlayerChallengeSubmitted,
		Recipients: []string{req.OwnerID},
		Title:      "Submission received",
		Message:    fmt.Sprintf("Your entry for %q is in!", challenge.Title),
		Correlation: map[string]string{
			"challengeId":    challenge.ID.String(),
			"challengeTitle": challenge.Title,
		},
	}); err != nil {
		s.log.Warn("submission notification failed",
			zap.Stringer("submission_id", submission.ID),
			zap.Error(err),
		)
	}
	return &item, nil
}

// DeleteSubmission removes the entry and emits the optimistic delete so the
// owner's feed drops it immediately; the projector keeps it suppressed until
// the store confirms.
func (s *service) DeleteSubmission(ctx context.Context, id snowflake.ID, ownerID string) error {
	if err := s.repo.DeleteSubmission(ctx, id, ownerID); err != nil {
		return err
	}
	s.bus.Publish(eventbus.TopicFeedItemDeleted, id)
	s.bus.Publish(eventbus.CollectionChanged(submissionsCollection), nil)
	return nil
}

func (s *service) Like(ctx context.Context, submissionID snowflake.ID, userID string) error {
	if err := s.repo.Like(ctx, submissionID, userID); err != nil {
		return err
	}
	s.bus.Publish(eventbus.CollectionChanged(likesCollection), nil)
	return nil
}
