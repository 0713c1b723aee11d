package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/config"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/notification/domain"
	"github.com/playpulse/clubsync/internal/notification/repository"
	"github.com/playpulse/clubsync/internal/watch"
	"github.com/playpulse/clubsync/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type staticRecipients struct {
	submitters []string
}

func (s staticRecipients) DistinctSubmitters(context.Context, snowflake.ID) ([]string, error) {
	return s.submitters, nil
}

func newTestService(t *testing.T, recipients domain.RecipientSource) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Record{}, &domain.Preference{}))

	log := zaptest.NewLogger(t)
	bus := eventbus.NewBus()
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := New(
		log,
		repository.New(conn),
		repository.NewPreferences(conn, clk),
		recipients,
		config.NewStaticNotificationPolicyHolder(config.DefaultNotificationPolicy()),
		clk,
		nil,
		bus,
		watch.NewWatcher(bus, nil, log),
	)
	return svc, conn
}

func countRecords(t *testing.T, conn *gorm.DB, recipient string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&domain.Record{}).Where("recipient_id = ?", recipient).Count(&count).Error)
	return count
}

func TestNotifyCreatesRecordPerRecipient(t *testing.T) {
	svc, conn := newTestService(t, staticRecipients{})

	results, err := svc.Notify(context.Background(), domain.Request{
		Type:       domain.TypeTeamInvitation,
		Recipients: []string{"p1", "p2"},
		Title:      "Team invitation",
		Message:    "Join us",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, domain.OutcomeCreated, res.Outcome)
	}
	assert.Equal(t, int64(1), countRecords(t, conn, "p1"))
	assert.Equal(t, int64(1), countRecords(t, conn, "p2"))
}

func TestNotifyRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService(t, staticRecipients{})
	_, err := svc.Notify(context.Background(), domain.Request{
		Type:       domain.Type("password_reset"),
		Recipients: []string{"p1"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestEventBoundNotifyIsIdempotent(t *testing.T) {
	svc, conn := newTestService(t, staticRecipients{})

	req := domain.Request{
		Type:        domain.TypePlayerChallengeSubmitted,
		Recipients:  []string{"p1"},
		Title:       "Submission received",
		Correlation: map[string]string{"challengeId": "42"},
	}

	first, err := svc.Notify(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeCreated, first[0].Outcome)

	// A resubmission to the same challenge fires the same event again.
	second, err := svc.Notify(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSkippedDuplicate, second[0].Outcome)

	assert.Equal(t, int64(1), countRecords(t, conn, "p1"))
}

func TestEventBoundNotifyDistinguishesCorrelation(t *testing.T) {
	svc, conn := newTestService(t, staticRecipients{})

	for _, challengeID := range []string{"42", "43"} {
		_, err := svc.Notify(context.Background(), domain.Request{
			Type:        domain.TypeChallengeEnded,
			Recipients:  []string{"p1"},
			Correlation: map[string]string{"challengeId": challengeID},
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), countRecords(t, conn, "p1"))
}

func TestDisabledPreferenceSkipsRecipient(t *testing.T) {
	svc, conn := newTestService(t, staticRecipients{})
	ctx := context.Background()

	require.NoError(t, svc.SetPreference(ctx, "p1", domain.TypeChallengeCreated, false))

	results, err := svc.Notify(ctx, domain.Request{
		Type:       domain.TypeChallengeCreated,
		Recipients: []string{"p1", "p2"},
		Title:      "New challenge",
	})
	require.NoError(t, err)

	outcomes := map[string]domain.Outcome{}
	for _, res := range results {
		outcomes[res.RecipientID] = res.Outcome
	}
	assert.Equal(t, domain.OutcomeSkippedPreference, outcomes["p1"])
	assert.Equal(t, domain.OutcomeCreated, outcomes["p2"])
	assert.Equal(t, int64(0), countRecords(t, conn, "p1"))
	assert.Equal(t, int64(1), countRecords(t, conn, "p2"))
}

func TestPreferenceDefaultsToEnabled(t *testing.T) {
	svc, conn := newTestService(t, staticRecipients{})

	_, err := svc.Notify(context.Background(), domain.Request{
		Type:       domain.TypeMonthlyRecap,
		Recipients: []string{"p1"},
		Correlation: map[string]string{
			"monthName": "March",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRecords(t, conn, "p1"))
}

func TestUngatedTypeIgnoresPreferences(t *testing.T) {
	svc, conn := newTestService(t, staticRecipients{})
	ctx := context.Background()

	// team_invitation is not preference-gated; an explicit opt-out of a
	// gated type must not bleed over.
	require.NoError(t, svc.SetPreference(ctx, "p1", domain.TypeChallengeCreated, false))

	_, err := svc.Notify(ctx, domain.Request{
		Type:       domain.TypeTeamInvitation,
		Recipients: []string{"p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRecords(t, conn, "p1"))
}

func TestNotifyChallengeEndedFansOutToDistinctSubmitters(t *testing.T) {
	svc, conn := newTestService(t, staticRecipients{submitters: []string{"p1", "p2"}})

	results, err := svc.NotifyChallengeEnded(context.Background(), snowflake.ID(42), "Juggling March")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int64(1), countRecords(t, conn, "p1"))
	assert.Equal(t, int64(1), countRecords(t, conn, "p2"))

	// The sweep re-running for the same challenge changes nothing.
	results, err = svc.NotifyChallengeEnded(context.Background(), snowflake.ID(42), "Juggling March")
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, domain.OutcomeSkippedDuplicate, res.Outcome)
	}
	assert.Equal(t, int64(1), countRecords(t, conn, "p1"))
}

func TestMarkAllReadDeletesRecords(t *testing.T) {
	svc, conn := newTestService(t, staticRecipients{})
	ctx := context.Background()

	_, err := svc.Notify(ctx, domain.Request{
		Type:       domain.TypeTeamInvitation,
		Recipients: []string{"p1"},
	})
	require.NoError(t, err)

	unread, err := svc.CountUnread(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	require.NoError(t, svc.MarkAllRead(ctx, "p1"))

	unread, err = svc.CountUnread(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
	assert.Equal(t, int64(0), countRecords(t, conn, "p1"))
}

func TestMarkReadIsScopedToRecipient(t *testing.T) {
	svc, _ := newTestService(t, staticRecipients{})
	ctx := context.Background()

	_, err := svc.Notify(ctx, domain.Request{
		Type:       domain.TypeTeamInvitation,
		Recipients: []string{"p1"},
	})
	require.NoError(t, err)

	list, err := svc.List(ctx, domain.ListRequest{UserID: "p1"})
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	id := list.Notifications[0].ID

	require.ErrorIs(t, svc.MarkRead(ctx, "someone-else", id), domain.ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, "p1", id))

	unread, err := svc.CountUnread(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestDuplicateRecipientsCollapse(t *testing.T) {
	svc, conn := newTestService(t, staticRecipients{})

	_, err := svc.Notify(context.Background(), domain.Request{
		Type:       domain.TypeTeamInvitation,
		Recipients: []string{"p1", "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRecords(t, conn, "p1"))
}
