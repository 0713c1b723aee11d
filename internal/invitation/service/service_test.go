package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/config"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/identity"
	"github.com/playpulse/clubsync/internal/invitation/domain"
	"github.com/playpulse/clubsync/internal/invitation/repository"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	notificationrepository "github.com/playpulse/clubsync/internal/notification/repository"
	notificationservice "github.com/playpulse/clubsync/internal/notification/service"
	profiledomain "github.com/playpulse/clubsync/internal/profile/domain"
	profilerepository "github.com/playpulse/clubsync/internal/profile/repository"
	teamdomain "github.com/playpulse/clubsync/internal/team/domain"
	teamrepository "github.com/playpulse/clubsync/internal/team/repository"
	"github.com/playpulse/clubsync/internal/watch"
	"github.com/playpulse/clubsync/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type noRecipients struct{}

func (noRecipients) DistinctSubmitters(context.Context, snowflake.ID) ([]string, error) {
	return nil, nil
}

type fixture struct {
	svc    domain.Service
	teams  teamdomain.Repository
	conn   *gorm.DB
	teamID snowflake.ID
}

const (
	coachID  = "coach-1"
	playerID = "player-1"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&profiledomain.Profile{},
		&teamdomain.Team{},
		&teamdomain.Member{},
		&domain.Invitation{},
		&notificationdomain.Record{},
		&notificationdomain.Preference{},
	))

	log := zaptest.NewLogger(t)
	bus := eventbus.NewBus()
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	notifier := notificationservice.New(
		log,
		notificationrepository.New(conn),
		notificationrepository.NewPreferences(conn, clk),
		noRecipients{},
		config.NewStaticNotificationPolicyHolder(config.DefaultNotificationPolicy()),
		clk,
		nil,
		bus,
		watch.NewWatcher(bus, nil, log),
	)
	profiles := profilerepository.New(conn, nil, log, clk)
	teams := teamrepository.New(conn)

	svc := New(log, conn, repository.New(conn), teams, profiles, notifier, bus, nil, clk, node)

	now := clk.Now()
	require.NoError(t, conn.Create(&profiledomain.Profile{
		UserID:      coachID,
		Role:        string(identity.RoleCoach),
		CoachStatus: string(identity.VerificationApproved),
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)
	require.NoError(t, conn.Create(&profiledomain.Profile{
		UserID:      playerID,
		Role:        string(identity.RolePlayer),
		CoachStatus: string(identity.VerificationPending),
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	teamID := node.Generate()
	require.NoError(t, conn.Create(&teamdomain.Team{
		ID:        teamID,
		CoachID:   coachID,
		Name:      "Demo United",
		Slug:      "demo-united",
		CreatedAt: now,
	}).Error)

	return &fixture{svc: svc, teams: teams, conn: conn, teamID: teamID}
}

func (f *fixture) invite(t *testing.T) *domain.Invitation {
	t.Helper()
	invitation, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CoachID:  coachID,
		PlayerID: playerID,
		TeamID:   f.teamID,
	})
	require.NoError(t, err)
	return invitation
}

func (f *fixture) coachNotifications(t *testing.T, typ notificationdomain.Type) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&notificationdomain.Record{}).
		Where("recipient_id = ? AND type = ?", coachID, string(typ)).
		Count(&count).Error)
	return count
}

func TestCreateNotifiesPlayer(t *testing.T) {
	f := newFixture(t)
	invitation := f.invite(t)

	assert.Equal(t, string(domain.StatusPending), invitation.Status)
	assert.Equal(t, "Demo United", invitation.TeamName)

	var count int64
	require.NoError(t, f.conn.Model(&notificationdomain.Record{}).
		Where("recipient_id = ? AND type = ?", playerID, string(notificationdomain.TypeTeamInvitation)).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateRequiresTeamOwnership(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CoachID:  "someone-else",
		PlayerID: playerID,
		TeamID:   f.teamID,
	})
	require.ErrorIs(t, err, domain.ErrNotTeamOwner)
}

func TestAcceptJoinsTeamAtomically(t *testing.T) {
	f := newFixture(t)
	invitation := f.invite(t)

	resolved, err := f.svc.Respond(context.Background(), invitation.ID, playerID, true)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusAccepted), resolved.Status)
	require.NotNil(t, resolved.RespondedAt)

	members, err := f.teams.ListMembers(context.Background(), f.teamID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, playerID, members[0].PlayerID)

	var profile profiledomain.Profile
	require.NoError(t, f.conn.Where("user_id = ?", playerID).First(&profile).Error)
	assert.Equal(t, f.teamID, profile.TeamID)

	assert.Equal(t, int64(1), f.coachNotifications(t, notificationdomain.TypeInvitationAccepted))
}

func TestDeclineLeavesTeamUntouched(t *testing.T) {
	f := newFixture(t)
	invitation := f.invite(t)

	resolved, err := f.svc.Respond(context.Background(), invitation.ID, playerID, false)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusDeclined), resolved.Status)

	members, err := f.teams.ListMembers(context.Background(), f.teamID)
	require.NoError(t, err)
	assert.Empty(t, members)

	var profile profiledomain.Profile
	require.NoError(t, f.conn.Where("user_id = ?", playerID).First(&profile).Error)
	assert.Zero(t, profile.TeamID)

	assert.Equal(t, int64(1), f.coachNotifications(t, notificationdomain.TypeInvitationDeclined))
}

func TestSecondResponseFailsAndChangesNothing(t *testing.T) {
	f := newFixture(t)
	invitation := f.invite(t)

	_, err := f.svc.Respond(context.Background(), invitation.ID, playerID, true)
	require.NoError(t, err)

	_, err = f.svc.Respond(context.Background(), invitation.ID, playerID, false)
	require.ErrorIs(t, err, domain.ErrAlreadyResolved)

	var stored domain.Invitation
	require.NoError(t, f.conn.Where("id = ?", invitation.ID).First(&stored).Error)
	assert.Equal(t, string(domain.StatusAccepted), stored.Status)

	// Exactly one coach notification across both attempts.
	assert.Equal(t, int64(1), f.coachNotifications(t, notificationdomain.TypeInvitationAccepted))
	assert.Equal(t, int64(0), f.coachNotifications(t, notificationdomain.TypeInvitationDeclined))
}

func TestRespondRejectsWrongPlayer(t *testing.T) {
	f := newFixture(t)
	invitation := f.invite(t)

	_, err := f.svc.Respond(context.Background(), invitation.ID, "intruder", true)
	require.ErrorIs(t, err, domain.ErrNotInvitee)

	var stored domain.Invitation
	require.NoError(t, f.conn.Where("id = ?", invitation.ID).First(&stored).Error)
	assert.Equal(t, string(domain.StatusPending), stored.Status)
}

func TestRespondUnknownInvitation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Respond(context.Background(), snowflake.ID(999), playerID, true)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
