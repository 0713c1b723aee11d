package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/team/domain"
	"github.com/playpulse/clubsync/internal/team/repository"
	"github.com/playpulse/clubsync/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T, clk clock.Clock) domain.Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Team{}, &domain.Member{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(zaptest.NewLogger(t), repository.New(conn), node, clk)
}

func TestCreateStampsInjectedClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(t, clock.NewFakeClock(now))

	team, err := svc.Create(context.Background(), "coach-1", "Demo United")
	require.NoError(t, err)
	assert.Equal(t, now, team.CreatedAt)
	assert.Equal(t, "coach-1", team.CoachID)
	assert.Contains(t, team.Slug, "demo-united-")
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := newService(t, clock.NewFakeClock(time.Now()))
	_, err := svc.Create(context.Background(), "coach-1", "   ")
	require.ErrorIs(t, err, domain.ErrInvalidName)
}
