package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/challenge/domain"
	"github.com/playpulse/clubsync/internal/challenge/repository"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/config"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/identity"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	notificationrepository "github.com/playpulse/clubsync/internal/notification/repository"
	notificationservice "github.com/playpulse/clubsync/internal/notification/service"
	profiledomain "github.com/playpulse/clubsync/internal/profile/domain"
	profilerepository "github.com/playpulse/clubsync/internal/profile/repository"
	"github.com/playpulse/clubsync/internal/watch"
	"github.com/playpulse/clubsync/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type noSubmitters struct{}

func (noSubmitters) DistinctSubmitters(context.Context, snowflake.ID) ([]string, error) {
	return nil, nil
}

func newService(t *testing.T) (domain.Service, *gorm.DB, clock.Clock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&profiledomain.Profile{},
		&domain.Challenge{},
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
		noSubmitters{},
		config.NewStaticNotificationPolicyHolder(config.DefaultNotificationPolicy()),
		clk,
		nil,
		bus,
		watch.NewWatcher(bus, nil, log),
	)
	profiles := profilerepository.New(conn, nil, log, clk)
	svc := New(log, repository.New(conn, clk), profiles, notifier, bus, clk, node)
	return svc, conn, clk
}

func seedProfile(t *testing.T, conn *gorm.DB, userID, role, status string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, conn.Create(&profiledomain.Profile{
		UserID:      userID,
		Role:        role,
		CoachStatus: status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)
}

func TestCreateAnnouncesToPlayers(t *testing.T) {
	svc, conn, clk := newService(t)
	seedProfile(t, conn, "coach-1", string(identity.RoleCoach), string(identity.VerificationApproved))
	seedProfile(t, conn, "p1", string(identity.RolePlayer), string(identity.VerificationPending))
	seedProfile(t, conn, "p2", string(identity.RolePlayer), string(identity.VerificationPending))

	challenge, err := svc.Create(context.Background(), domain.CreateRequest{
		CoachID:   "coach-1",
		Title:     "Juggling March",
		MonthName: "March",
		EndsAt:    clk.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusOpen), challenge.Status)

	var count int64
	require.NoError(t, conn.Model(&notificationdomain.Record{}).
		Where("type = ?", string(notificationdomain.TypeChallengeCreated)).
		Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCreateRequiresVerifiedCoach(t *testing.T) {
	svc, conn, clk := newService(t)
	seedProfile(t, conn, "coach-1", string(identity.RoleCoach), string(identity.VerificationPending))
	seedProfile(t, conn, "p1", string(identity.RolePlayer), string(identity.VerificationApproved))

	cases := []struct {
		name    string
		coachID string
	}{
		{"pending coach", "coach-1"},
		{"player with approved status", "p1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), domain.CreateRequest{
				CoachID: tc.coachID,
				Title:   "Juggling March",
				EndsAt:  clk.Now().AddDate(0, 1, 0),
			})
			require.ErrorIs(t, err, domain.ErrNotVerifiedCoach)
		})
	}
}

func TestCreateValidatesInput(t *testing.T) {
	svc, conn, clk := newService(t)
	seedProfile(t, conn, "coach-1", string(identity.RoleCoach), string(identity.VerificationApproved))

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		CoachID: "coach-1",
		Title:   "   ",
		EndsAt:  clk.Now().AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = svc.Create(context.Background(), domain.CreateRequest{
		CoachID: "coach-1",
		Title:   "Juggling March",
		EndsAt:  clk.Now().Add(-time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrInvalidDeadline)
}

func TestGetUnknownChallenge(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Get(context.Background(), snowflake.ID(999))
	require.ErrorIs(t, err, domain.ErrNotFound)
}
