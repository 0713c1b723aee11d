package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/invitation/domain"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	"github.com/playpulse/clubsync/internal/observability/metrics"
	profiledomain "github.com/playpulse/clubsync/internal/profile/domain"
	teamdomain "github.com/playpulse/clubsync/internal/team/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	invitationsCollection = "invitations"
	membersCollection     = "team_members"
	usersCollection       = "users"
)

type service struct {
	log      *zap.Logger
	db       *gorm.DB
	repo     domain.Repository
	teams    teamdomain.Repository
	profiles profiledomain.Repository
	notifier notificationdomain.Service
	bus      *eventbus.Bus
	metrics  *metrics.Metrics
	clock    clock.Clock
	node     *snowflake.Node
}

func New(
	log *zap.Logger,
	db *gorm.DB,
	repo domain.Repository,
	teams teamdomain.Repository,
	profiles profiledomain.Repository,
	notifier notificationdomain.Service,
	bus *eventbus.Bus,
	m *metrics.Metrics,
	clk clock.Clock,
	node *snowflake.Node,
) domain.Service {
	return &service{
		log:      log.Named("invitation"),
		db:       db,
		repo:     repo,
		teams:    teams,
		profiles: profiles,
		notifier: notifier,
		bus:      bus,
		metrics:  m,
		clock:    clk,
		node:     node,
	}
}

// Create issues a team invitation. Only the team's own coach may invite; the
// player is notified immediately.
func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Invitation, error) {
	team, err := s.teams.Get(ctx, req.TeamID)
	if err != nil {
		if errors.Is(err, teamdomain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if team.CoachID != req.CoachID {
		return nil, domain.ErrNotTeamOwner
	}
	if _, err := s.profiles.Get(ctx, req.PlayerID); err != nil {
		return nil, err
	}

	invitation := &domain.Invitation{
		ID:        s.node.Generate(),
		CoachID:   req.CoachID,
		PlayerID:  req.PlayerID,
		TeamID:    team.ID,
		TeamName:  team.Name,
		Status:    string(domain.StatusPending),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, invitation); err != nil {
		return nil, err
	}
	s.bus.Publish(eventbus.CollectionChanged(invitationsCollection), nil)

	if _, err := s.notifier.Notify(ctx, notificationdomain.Request{
		Type:       notificationdomain.TypeTeamInvitation,
		Recipients: []string{req.PlayerID},
		Title:      "Team invitation",
		Message:    fmt.Sprintf("You've been invited to join %s.", team.Name),
		Correlation: map[string]string{
			"invitationId": invitation.ID.String(),
			"teamId":       team.ID.String(),
			"teamName":     team.Name,
		},
	}); err != nil {
		s.log.Warn("invitation notification failed",
			zap.Stringer("invitation_id", invitation.ID),
			zap.Error(err),
		)
	}
	return invitation, nil
}

// Respond resolves the invitation in one transaction: the conditional status
// update is the serialization point, and on accept the membership row and the
// player's denormalized team reference commit with it or not at all. The
// coach is notified only after the commit; a crash in between loses the
// notification, never the workflow's writes.
func (s *service) Respond(ctx context.Context, id snowflake.ID, playerID string, accept bool) (*domain.Invitation, error) {
	status := domain.StatusDeclined
	if accept {
		status = domain.StatusAccepted
	}
	now := s.clock.Now()

	var invitation *domain.Invitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.PlayerID != playerID {
			return domain.ErrNotInvitee
		}

		won, err := s.repo.MarkResolved(ctx, tx, id, status, now)
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrAlreadyResolved
		}

		if accept {
			if err := s.teams.AddMember(ctx, tx, &teamdomain.Member{
				ID:       s.node.Generate(),
				TeamID:   current.TeamID,
				PlayerID: playerID,
				JoinedAt: now,
			}); err != nil {
				return err
			}
			if err := s.profiles.SetTeam(ctx, tx, playerID, current.TeamID); err != nil {
				return err
			}
		}

		current.Status = string(status)
		current.RespondedAt = &now
		invitation = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncWorkflowResponded(ctx, string(status))
	s.bus.Publish(eventbus.CollectionChanged(invitationsCollection), nil)
	if accept {
		s.bus.Publish(eventbus.CollectionChanged(membersCollection), nil)
		s.bus.Publish(eventbus.CollectionChanged(usersCollection), nil)
	}

	typ := notificationdomain.TypeInvitationDeclined
	message := fmt.Sprintf("Your invitation to %s was declined.", invitation.TeamName)
	if accept {
		typ = notificationdomain.TypeInvitationAccepted
		message = fmt.Sprintf("Your invitation to %s was accepted!", invitation.TeamName)
	}
	if _, err := s.notifier.Notify(ctx, notificationdomain.Request{
		Type:       typ,
		Recipients: []string{invitation.CoachID},
		Title:      "Invitation update",
		Message:    message,
		Correlation: map[string]string{
			"invitationId": invitation.ID.String(),
			"teamId":       invitation.TeamID.String(),
		},
	}); err != nil {
		s.log.Warn("response notification failed",
			zap.Stringer("invitation_id", invitation.ID),
			zap.Error(err),
		)
	}
	return invitation, nil
}

func (s *service) ListByPlayer(ctx context.Context, playerID string, status domain.Status) ([]domain.Invitation, error) {
	return s.repo.ListByPlayer(ctx, playerID, status)
}
