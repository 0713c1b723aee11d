package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/challenge/domain"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/identity"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	profiledomain "github.com/playpulse/clubsync/internal/profile/domain"
	"go.uber.org/zap"
)

const challengesCollection = "challenges"

type service struct {
	log      *zap.Logger
	repo     domain.Repository
	profiles profiledomain.Repository
	notifier notificationdomain.Service
	bus      *eventbus.Bus
	clock    clock.Clock
	node     *snowflake.Node
}

func New(
	log *zap.Logger,
	repo domain.Repository,
	profiles profiledomain.Repository,
	notifier notificationdomain.Service,
	bus *eventbus.Bus,
	clk clock.Clock,
	node *snowflake.Node,
) domain.Service {
	return &service{
		log:      log.Named("challenge"),
		repo:     repo,
		profiles: profiles,
		notifier: notifier,
		bus:      bus,
		clock:    clk,
		node:     node,
	}
}

// Create opens a challenge. Only an approved coach may create one; the
// announcement fans out to every player, honoring their preferences.
func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Challenge, error) {
	profile, err := s.profiles.Get(ctx, req.CoachID)
	if err != nil {
		return nil, err
	}
	if profile.Role != string(identity.RoleCoach) || profile.CoachStatus != string(identity.VerificationApproved) {
		return nil, domain.ErrNotVerifiedCoach
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	now := s.clock.Now()
	if !req.EndsAt.After(now) {
		return nil, domain.ErrInvalidDeadline
	}

	challenge := &domain.Challenge{
		ID:        s.node.Generate(),
		CoachID:   req.CoachID,
		Title:     title,
		MonthName: req.MonthName,
		Status:    string(domain.StatusOpen),
		EndsAt:    req.EndsAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, challenge); err != nil {
		return nil, err
	}
	s.bus.Publish(eventbus.CollectionChanged(challengesCollection), nil)

	players, err := s.profiles.ListPlayerIDs(ctx)
	if err != nil {
		s.log.Warn("player discovery failed, skipping announcement",
			zap.Stringer("challenge_id", challenge.ID),
			zap.Error(err),
		)
		return challenge, nil
	}
	if len(players) > 0 {
		if _, err := s.notifier.Notify(ctx, notificationdomain.Request{
			Type:       notificationdomain.TypeChallengeCreated,
			Recipients: players,
			Title:      "New challenge",
			Message:    fmt.Sprintf("%q is open. Submit your entry!", challenge.Title),
			Correlation: map[string]string{
				"challengeId":    challenge.ID.String(),
				"challengeTitle": challenge.Title,
			},
		}); err != nil {
			s.log.Warn("challenge announcement failed",
				zap.Stringer("challenge_id", challenge.ID),
				zap.Error(err),
			)
		}
	}
	return challenge, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Challenge, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context, status domain.Status) ([]domain.Challenge, error) {
	return s.repo.List(ctx, status)
}
