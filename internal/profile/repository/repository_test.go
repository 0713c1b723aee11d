package repository

import (
	"context"
	"testing"
	"time"

	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/identity"
	"github.com/playpulse/clubsync/internal/profile/domain"
	"github.com/playpulse/clubsync/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newRepo(t *testing.T) (domain.Repository, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Profile{}))
	return New(conn, nil, zaptest.NewLogger(t), clock.NewFakeClock(time.Now())), conn
}

func TestEnsureIsIdempotent(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "u1", ""))
	require.NoError(t, repo.Ensure(ctx, "u1", string(identity.RoleCoach)))

	// The second Ensure must not overwrite the first row.
	profile, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, string(identity.RolePlayer), profile.Role)
	assert.Equal(t, string(identity.VerificationPending), profile.CoachStatus)
}

func TestEnsureRejectsBlankUser(t *testing.T) {
	repo, _ := newRepo(t)
	require.ErrorIs(t, repo.Ensure(context.Background(), "  ", ""), domain.ErrInvalidUser)
}

func TestRoleDocsProjectsValidRow(t *testing.T) {
	repo, conn := newRepo(t)
	now := time.Now().UTC()
	require.NoError(t, conn.Create(&domain.Profile{
		UserID:            "u1",
		Role:              "coach",
		CoachStatus:       "rejected",
		RejectionReason:   "incomplete application",
		RejectionCategory: "documents",
		CreatedAt:         now,
		UpdatedAt:         now,
	}).Error)

	docs, err := repo.RoleDocs(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "coach", docs[0].Role)
	assert.Equal(t, "rejected", docs[0].CoachStatus)
	assert.Equal(t, "incomplete application", docs[0].RejectionReason)
	assert.Equal(t, "documents", docs[0].RejectionCategory)
}

func TestRoleDocsDropsMalformedRow(t *testing.T) {
	repo, conn := newRepo(t)
	now := time.Now().UTC()
	require.NoError(t, conn.Create(&domain.Profile{
		UserID:      "u1",
		Role:        "superadmin",
		CoachStatus: "approved",
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	// The malformed row is dropped, not an error; the caller projects the
	// authenticated-with-defaults session from the empty result.
	docs, err := repo.RoleDocs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRoleDocsMissingUser(t *testing.T) {
	repo, _ := newRepo(t)
	docs, err := repo.RoleDocs(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSetCoachStatusUnknownUser(t *testing.T) {
	repo, _ := newRepo(t)
	err := repo.SetCoachStatus(context.Background(), "ghost", "approved", "", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetTeamOutsideTransaction(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Ensure(ctx, "u1", ""))

	require.NoError(t, repo.SetTeam(ctx, nil, "u1", 42))

	profile, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 42, profile.TeamID)
}
