package service

import (
	"context"
	"strings"

	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/identity"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	"github.com/playpulse/clubsync/internal/profile/domain"
	"go.uber.org/zap"
)

const usersCollection = "users"

type service struct {
	log      *zap.Logger
	repo     domain.Repository
	notifier notificationdomain.Service
	bus      *eventbus.Bus
}

func New(log *zap.Logger, repo domain.Repository, notifier notificationdomain.Service, bus *eventbus.Bus) domain.Service {
	return &service{
		log:      log.Named("profile"),
		repo:     repo,
		notifier: notifier,
		bus:      bus,
	}
}

// ApproveCoach flips the verification state and notifies the coach. The
// notification is best-effort: a failed fan-out never rolls back the status
// change.
func (s *service) ApproveCoach(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUser
	}
	if err := s.repo.SetCoachStatus(ctx, userID, string(identity.VerificationApproved), "", ""); err != nil {
		return err
	}
	s.bus.Publish(eventbus.CollectionChanged(usersCollection), nil)

	if _, err := s.notifier.Notify(ctx, notificationdomain.Request{
		Type:       notificationdomain.TypeCoachApproved,
		Recipients: []string{userID},
		Title:      "You're verified!",
		Message:    "Your coach account has been approved. You can now create challenges and invite players.",
	}); err != nil {
		s.log.Warn("coach approval notification failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

func (s *service) RejectCoach(ctx context.Context, userID, reason, category string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUser
	}
	if err := s.repo.SetCoachStatus(ctx, userID, string(identity.VerificationRejected), reason, category); err != nil {
		return err
	}
	s.bus.Publish(eventbus.CollectionChanged(usersCollection), nil)

	message := "Your coach application was not approved."
	if strings.TrimSpace(reason) != "" {
		message = "Your coach application was not approved: " + reason
	}
	if _, err := s.notifier.Notify(ctx, notificationdomain.Request{
		Type:       notificationdomain.TypeCoachRejected,
		Recipients: []string{userID},
		Title:      "Application update",
		Message:    message,
		Correlation: map[string]string{
			"rejectionCategory": category,
		},
	}); err != nil {
		s.log.Warn("coach rejection notification failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}
