package projector

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	challengedomain "github.com/playpulse/clubsync/internal/challenge/domain"
	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/feed/domain"
	"github.com/playpulse/clubsync/internal/watch"
	"go.uber.org/zap"
)

// Projector maintains one consumer's merged feed view: authoritative store
// snapshots overlaid with optimistic local create/delete events, reconciled
// on a single goroutine per feed.
type Projector struct {
	log        *zap.Logger
	repo       domain.Repository
	challenges challengedomain.Repository
	watcher    *watch.Watcher
	bus        *eventbus.Bus
}

func New(
	log *zap.Logger,
	repo domain.Repository,
	challenges challengedomain.Repository,
	watcher *watch.Watcher,
	bus *eventbus.Bus,
) *Projector {
	return &Projector{
		log:        log.Named("feed.projector"),
		repo:       repo,
		challenges: challenges,
		watcher:    watcher,
		bus:        bus,
	}
}

// Snapshot builds the enriched feed once, without subscribing.
func (p *Projector) Snapshot(ctx context.Context, ownerID string) ([]domain.Item, error) {
	submissions, err := p.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return p.enrich(ctx, submissions), nil
}

// Feed is one open feed projection. Updates carries the latest complete item
// list; a slow reader only ever misses intermediate states, never the newest.
type Feed struct {
	ch     chan []domain.Item
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (f *Feed) Updates() <-chan []domain.Item { return f.ch }

func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) Cancel() { f.once.Do(f.cancel) }

// Open starts the projection for one owner. At most one projection per owner
// is active through the watcher's keyed registry.
func (p *Projector) Open(ctx context.Context, ownerID string) *Feed {
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed{
		ch:     make(chan []domain.Item, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	handle := watch.Start(p.watcher, ctx, "feed/"+ownerID,
		func(ctx context.Context) ([]domain.Submission, error) {
			return p.repo.ListByOwner(ctx, ownerID)
		},
		"submissions", "challenges", "submission_likes",
	)
	created, _ := p.bus.Subscribe(eventbus.TopicFeedItemCreated)
	deleted, _ := p.bus.Subscribe(eventbus.TopicFeedItemDeleted)

	go p.run(ctx, ownerID, f, handle, created, deleted)
	return f
}

func (p *Projector) run(
	ctx context.Context,
	ownerID string,
	f *Feed,
	handle *watch.Handle[domain.Submission],
	created, deleted *eventbus.Subscription,
) {
	defer func() {
		created.Close()
		deleted.Close()
		handle.Cancel()
		close(f.ch)
		close(f.done)
	}()

	var state []domain.Item
	suppressed := make(map[snowflake.ID]struct{})
	snapshots := handle.Snapshots()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				// Watch ended; keep serving optimistic events on the last
				// good state.
				snapshots = nil
				continue
			}
			if snap.Err != nil {
				p.log.Warn("feed snapshot failed, keeping last state",
					zap.String("owner_id", ownerID),
					zap.Error(snap.Err),
				)
				continue
			}

			items := p.enrich(ctx, snap.Items)

			// An authoritative snapshot replaces state wholesale. Optimistic
			// deletes stay suppressed while the store still returns the row;
			// a snapshot without the row retires the suppression.
			present := make(map[snowflake.ID]struct{}, len(items))
			for _, item := range items {
				present[item.ID] = struct{}{}
			}
			for id := range suppressed {
				if _, ok := present[id]; !ok {
					delete(suppressed, id)
				}
			}
			state = state[:0]
			for _, item := range items {
				if _, ok := suppressed[item.ID]; ok {
					continue
				}
				state = append(state, item)
			}
			publish(f.ch, state)

		case ev, ok := <-created.Events():
			if !ok {
				return
			}
			item, isItem := ev.Payload.(domain.Item)
			if !isItem || item.OwnerID != ownerID {
				continue
			}
			delete(suppressed, item.ID)
			state = insertHead(state, item)
			publish(f.ch, state)

		case ev, ok := <-deleted.Events():
			if !ok {
				return
			}
			id, isID := ev.Payload.(snowflake.ID)
			if !isID {
				continue
			}
			suppressed[id] = struct{}{}
			state = removeID(state, id)
			publish(f.ch, state)

		case <-ctx.Done():
			return
		}
	}
}

// enrich joins each submission with its challenge title and like count. The
// lookups run concurrently per item and all settle before the merged list is
// returned; a failed lookup degrades that item, never the snapshot.
func (p *Projector) enrich(ctx context.Context, submissions []domain.Submission) []domain.Item {
	items := make([]domain.Item, len(submissions))
	var wg sync.WaitGroup
	for i, sub := range submissions {
		wg.Add(1)
		go func(i int, sub domain.Submission) {
			defer wg.Done()
			item := domain.Item{
				ID:          sub.ID,
				ChallengeID: sub.ChallengeID,
				OwnerID:     sub.OwnerID,
				MediaURL:    sub.MediaURL,
				CreatedAt:   sub.CreatedAt,
			}
			if challenge, err := p.challenges.Get(ctx, sub.ChallengeID); err == nil {
				item.ChallengeTitle = challenge.Title
			} else {
				p.log.Debug("challenge title lookup failed",
					zap.Stringer("challenge_id", sub.ChallengeID),
					zap.Error(err),
				)
			}
			if count, err := p.repo.CountLikes(ctx, sub.ID); err == nil {
				item.LikeCount = count
			}
			items[i] = item
		}(i, sub)
	}
	wg.Wait()
	return items
}

// publish delivers with latest-value semantics: a stale undelivered list is
// dropped in favor of the new one.
func publish(ch chan []domain.Item, state []domain.Item) {
	out := make([]domain.Item, len(state))
	copy(out, state)
	for {
		select {
		case ch <- out:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func insertHead(state []domain.Item, item domain.Item) []domain.Item {
	next := make([]domain.Item, 0, len(state)+1)
	next = append(next, item)
	for _, existing := range state {
		if existing.ID == item.ID {
			continue
		}
		next = append(next, existing)
	}
	return next
}

func removeID(state []domain.Item, id snowflake.ID) []domain.Item {
	next := state[:0]
	for _, existing := range state {
		if existing.ID == id {
			continue
		}
		next = append(next, existing)
	}
	return next
}
