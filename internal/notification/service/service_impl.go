package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/playpulse/clubsync/internal/clock"
	"github.com/playpulse/clubsync/internal/config"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/notification/domain"
	"github.com/playpulse/clubsync/internal/observability/metrics"
	"github.com/playpulse/clubsync/internal/watch"
	"github.com/playpulse/clubsync/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// recordNamespace scopes the deterministic UUIDv5 ids derived from the
// idempotency tuple (type, recipient, correlation id).
var recordNamespace = uuid.MustParse("7b8a1c52-9f04-4a7d-8e31-2f6f9d2b5c10")

const notificationsCollection = "notifications"

type service struct {
	log        *zap.Logger
	repo       domain.Repository
	prefs      domain.PreferenceRepository
	recipients domain.RecipientSource
	policy     *config.NotificationPolicyHolder
	clock      clock.Clock
	metrics    *metrics.Metrics
	bus        *eventbus.Bus
	watcher    *watch.Watcher
}

func New(
	log *zap.Logger,
	repo domain.Repository,
	prefs domain.PreferenceRepository,
	recipients domain.RecipientSource,
	policy *config.NotificationPolicyHolder,
	clk clock.Clock,
	m *metrics.Metrics,
	bus *eventbus.Bus,
	watcher *watch.Watcher,
) domain.Service {
	return &service{
		log:        log.Named("notification"),
		repo:       repo,
		prefs:      prefs,
		recipients: recipients,
		policy:     policy,
		clock:      clk,
		metrics:    m,
		bus:        bus,
		watcher:    watcher,
	}
}

// Notify fans one event out to each recipient independently: preference
// check, idempotency check, conditional insert. A failing recipient is
// reported in its Result and never aborts the rest of the batch.
func (s *service) Notify(ctx context.Context, req domain.Request) ([]domain.Result, error) {
	if !req.Type.Valid() {
		return nil, domain.ErrInvalidType
	}

	policy := s.policy.Get()
	gated := policy.IsPreferenceGated(string(req.Type))
	correlationField := policy.CorrelationField(string(req.Type))
	correlationValue := ""
	if correlationField != "" {
		correlationValue = strings.TrimSpace(req.Correlation[correlationField])
	}

	results := make([]domain.Result, 0, len(req.Recipients))
	created := 0
	for _, recipient := range dedupe(req.Recipients) {
		outcome := s.notifyOne(ctx, req, recipient, gated, correlationValue)
		s.metrics.IncNotifyOutcome(ctx, string(req.Type), string(outcome.Outcome))
		if outcome.Outcome == domain.OutcomeCreated {
			created++
		}
		results = append(results, outcome)
	}

	if created > 0 {
		s.bus.Publish(eventbus.CollectionChanged(notificationsCollection), nil)
	}
	return results, nil
}

func (s *service) notifyOne(ctx context.Context, req domain.Request, recipient string, gated bool, correlationValue string) domain.Result {
	if strings.TrimSpace(recipient) == "" {
		return domain.Result{RecipientID: recipient, Outcome: domain.OutcomeFailed, Err: domain.ErrInvalidRecipient}
	}

	if gated {
		enabled, err := s.prefs.Enabled(ctx, recipient, req.Type)
		if err != nil {
			s.log.Warn("preference lookup failed",
				zap.String("type", string(req.Type)),
				zap.String("recipient", recipient),
				zap.Error(err),
			)
			return domain.Result{RecipientID: recipient, Outcome: domain.OutcomeFailed, Err: err}
		}
		if !enabled {
			return domain.Result{RecipientID: recipient, Outcome: domain.OutcomeSkippedPreference}
		}
	}

	id := uuid.NewString()
	if correlationValue != "" {
		// Deterministic id makes the insert "create if absent" at the
		// storage layer; the Exists call is only a fast path.
		id = recordID(req.Type, recipient, correlationValue)
		exists, err := s.repo.Exists(ctx, id)
		if err == nil && exists {
			return domain.Result{RecipientID: recipient, Outcome: domain.OutcomeSkippedDuplicate}
		}
	}

	title, message := copyFor(req)
	record := &domain.Record{
		ID:                id,
		RecipientID:       recipient,
		Type:              string(req.Type),
		Title:             title,
		Message:           message,
		CorrelationFields: correlationMap(req.Correlation),
		CreatedAt:         s.clock.Now(),
	}

	wrote, err := s.repo.CreateIfAbsent(ctx, record)
	if err != nil {
		s.log.Warn("notification write failed",
			zap.String("type", string(req.Type)),
			zap.String("recipient", recipient),
			zap.Error(err),
		)
		return domain.Result{RecipientID: recipient, Outcome: domain.OutcomeFailed, Err: err}
	}
	if !wrote {
		return domain.Result{RecipientID: recipient, Outcome: domain.OutcomeSkippedDuplicate}
	}
	return domain.Result{RecipientID: recipient, Outcome: domain.OutcomeCreated}
}

// NotifyChallengeEnded discovers every distinct submitter of the challenge
// and notifies each independently.
func (s *service) NotifyChallengeEnded(ctx context.Context, challengeID snowflake.ID, challengeTitle string) ([]domain.Result, error) {
	submitters, err := s.recipients.DistinctSubmitters(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if len(submitters) == 0 {
		return nil, nil
	}
	return s.Notify(ctx, domain.Request{
		Type:       domain.TypeChallengeEnded,
		Recipients: submitters,
		Title:      "Challenge ended",
		Message:    fmt.Sprintf("%q has ended. Check the results!", challengeTitle),
		Correlation: map[string]string{
			"challengeId":    challengeID.String(),
			"challengeTitle": challengeTitle,
		},
	})
}

func (s *service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return domain.ListResponse{}, domain.ErrInvalidRecipient
	}

	records, err := s.repo.List(ctx, req.UserID, req.Page)
	if err != nil {
		return domain.ListResponse{}, err
	}

	size := req.Page.PageSize
	if size <= 0 {
		size = 20
	}
	records, hasMore := pagination.Trim(records, size)

	resp := domain.ListResponse{Notifications: records}
	resp.HasMore = hasMore
	if hasMore && len(records) > 0 {
		last := records[len(records)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID,
			CreatedAt: last.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999Z"),
		})
		if err == nil {
			resp.NextPageToken = token
		}
	}
	return resp, nil
}

func (s *service) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		return err
	}
	s.bus.Publish(eventbus.CollectionChanged(notificationsCollection), nil)
	return nil
}

// MarkAllRead deletes all of the user's notification records. This mirrors
// the product's collapse-on-read-all semantics: the list and the unread badge
// read the same table, and deleting re-arms the idempotency key for
// event-bound types, which is acceptable because the bound event is over by
// the time anyone reads its notification.
func (s *service) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return err
	}
	s.bus.Publish(eventbus.CollectionChanged(notificationsCollection), nil)
	return nil
}

func (s *service) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// WatchUnread re-derives the unread count on every notifications change.
// Each snapshot carries exactly one element.
func (s *service) WatchUnread(ctx context.Context, userID string) *watch.Handle[int64] {
	query := func(ctx context.Context) ([]int64, error) {
		count, err := s.repo.CountUnread(ctx, userID)
		if err != nil {
			return nil, err
		}
		return []int64{count}, nil
	}
	return watch.Start(s.watcher, ctx, "unread/"+userID, query, notificationsCollection)
}

func (s *service) SetPreference(ctx context.Context, userID string, typ domain.Type, enabled bool) error {
	if !typ.Valid() {
		return domain.ErrInvalidType
	}
	return s.prefs.Set(ctx, userID, typ, enabled)
}

func recordID(typ domain.Type, recipient, correlation string) string {
	key := string(typ) + "|" + recipient + "|" + correlation
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

func copyFor(req domain.Request) (string, string) {
	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	if title == "" {
		title = strings.ReplaceAll(string(req.Type), "_", " ")
	}
	if message == "" {
		message = title
	}
	return title, message
}

func correlationMap(fields map[string]string) datatypes.JSONMap {
	if len(fields) == 0 {
		return nil
	}
	m := make(datatypes.JSONMap, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return m
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
