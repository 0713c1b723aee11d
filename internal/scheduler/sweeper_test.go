package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	challengedomain "github.com/playpulse/clubsync/internal/challenge/domain"
	challengerepository "github.com/playpulse/clubsync/internal/challenge/repository"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/config"
	"github.com/playpulse/clubsync/internal/eventbus"
	feeddomain "github.com/playpulse/clubsync/internal/feed/domain"
	feedrepository "github.com/playpulse/clubsync/internal/feed/repository"
	notificationdomain "github.com/playpulse/clubsync/internal/notification/domain"
	notificationrepository "github.com/playpulse/clubsync/internal/notification/repository"
	notificationservice "github.com/playpulse/clubsync/internal/notification/service"
	"github.com/playpulse/clubsync/internal/watch"
	"github.com/playpulse/clubsync/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newSweeper(t *testing.T, clk clock.Clock) (*Sweeper, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&challengedomain.Challenge{},
		&feeddomain.Submission{},
		&notificationdomain.Record{},
		&notificationdomain.Preference{},
	))

	log := zaptest.NewLogger(t)
	bus := eventbus.NewBus()
	holder := config.NewStaticNotificationPolicyHolder(config.DefaultNotificationPolicy())
	notifier := notificationservice.New(
		log,
		notificationrepository.New(conn),
		notificationrepository.NewPreferences(conn, clk),
		feedrepository.New(conn, clk),
		holder,
		clk,
		nil,
		bus,
		watch.NewWatcher(bus, nil, log),
	)
	repo := challengerepository.New(conn, clk)
	return NewSweeper(log, repo, notifier, holder, nil, clk, bus), conn
}

func seedChallenge(t *testing.T, conn *gorm.DB, id int64, status challengedomain.Status, endsAt time.Time) {
	t.Helper()
	require.NoError(t, conn.Create(&challengedomain.Challenge{
		ID:        snowflake.ID(id),
		CoachID:   "coach-1",
		Title:     "Juggling March",
		MonthName: "March",
		Status:    string(status),
		EndsAt:    endsAt,
		CreatedAt: endsAt.AddDate(0, -1, 0),
		UpdatedAt: endsAt.AddDate(0, -1, 0),
	}).Error)
}

func seedSubmission(t *testing.T, conn *gorm.DB, id, challengeID int64, owner string) {
	t.Helper()
	require.NoError(t, conn.Create(&feeddomain.Submission{
		ID:          snowflake.ID(id),
		ChallengeID: snowflake.ID(challengeID),
		OwnerID:     owner,
		MediaURL:    "https://cdn.example.com/clip.mp4",
		CreatedAt:   time.Now().UTC(),
	}).Error)
}

func countEnded(t *testing.T, conn *gorm.DB, recipient string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&notificationdomain.Record{}).
		Where("recipient_id = ? AND type = ?", recipient, string(notificationdomain.TypeChallengeEnded)).
		Count(&count).Error)
	return count
}

func TestSweepClosesExpiredChallenges(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	sweeper, conn := newSweeper(t, clock.NewFakeClock(now))

	seedChallenge(t, conn, 1, challengedomain.StatusOpen, now.Add(-time.Hour))
	seedChallenge(t, conn, 2, challengedomain.StatusOpen, now.Add(time.Hour))
	seedSubmission(t, conn, 10, 1, "p1")
	seedSubmission(t, conn, 11, 1, "p2")
	seedSubmission(t, conn, 12, 1, "p2")

	sweeper.Sweep(context.Background())

	var expired, open challengedomain.Challenge
	require.NoError(t, conn.First(&expired, "id = ?", 1).Error)
	require.NoError(t, conn.First(&open, "id = ?", 2).Error)
	assert.Equal(t, string(challengedomain.StatusEnded), expired.Status)
	assert.Equal(t, string(challengedomain.StatusOpen), open.Status)

	// One notification per distinct submitter, p2's two entries collapse.
	assert.Equal(t, int64(1), countEnded(t, conn, "p1"))
	assert.Equal(t, int64(1), countEnded(t, conn, "p2"))
}

func TestSweepIsIdempotentAcrossRuns(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	sweeper, conn := newSweeper(t, clock.NewFakeClock(now))

	seedChallenge(t, conn, 1, challengedomain.StatusOpen, now.Add(-time.Hour))
	seedSubmission(t, conn, 10, 1, "p1")

	sweeper.Sweep(context.Background())
	sweeper.Sweep(context.Background())

	assert.Equal(t, int64(1), countEnded(t, conn, "p1"))
}

func TestSweepSkipsAlreadyEnded(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	sweeper, conn := newSweeper(t, clock.NewFakeClock(now))

	seedChallenge(t, conn, 1, challengedomain.StatusEnded, now.Add(-time.Hour))
	seedSubmission(t, conn, 10, 1, "p1")

	sweeper.Sweep(context.Background())

	assert.Equal(t, int64(0), countEnded(t, conn, "p1"))
}

func TestSweepWithNothingToDo(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	sweeper, _ := newSweeper(t, clock.NewFakeClock(now))

	sweeper.Sweep(context.Background())
}
