package watch

import (
	"context"
	"sync"

	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/playpulse/clubsync/internal/observability/metrics"
	"go.uber.org/zap"
)

// Query produces the complete result set for a live subscription at a point
// in time.
type Query[T any] func(ctx context.Context) ([]T, error)

// Snapshot is one delivery on a live subscription. Err, when set, is a
// terminal transport/query failure: no further snapshots follow and the
// consumer decides how to degrade.
type Snapshot[T any] struct {
	Seq   uint64
	Items []T
	Err   error
}

// Handle is an active live subscription. Snapshots are delivered in strict
// arrival order on a single goroutine. Cancel is idempotent: no query result
// produced after cancellation is observed is ever delivered, so a cancelled
// handle cannot mutate consumer state through a late delivery. A snapshot
// already buffered when Cancel lands may still be read until the channel
// closes; it predates the cancel.
type Handle[T any] struct {
	key    string
	gen    uint64
	ch     chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *Handle[T]) Snapshots() <-chan Snapshot[T] { return h.ch }

// Done closes once the delivery loop has fully stopped.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

func (h *Handle[T]) Cancel() {
	h.once.Do(h.cancel)
}

// Watcher executes live queries against the document store, re-running them
// whenever the store signals a change on a watched collection.
type Watcher struct {
	bus     *eventbus.Bus
	metrics *metrics.Metrics
	log     *zap.Logger

	mu     sync.Mutex
	active map[string]interface{ Cancel() }
	gens   map[string]uint64
}

func NewWatcher(bus *eventbus.Bus, m *metrics.Metrics, log *zap.Logger) *Watcher {
	return &Watcher{
		bus:     bus,
		metrics: m,
		log:     log.Named("watch"),
		active:  make(map[string]interface{ Cancel() }),
		gens:    make(map[string]uint64),
	}
}

// Start opens a live subscription under a logical key. At most one handle per
// key is active: an existing handle for the same key is cancelled before the
// new one begins, so two subscriptions never run concurrently for one key.
// The collections list names the store collections whose changes invalidate
// the query.
func Start[T any](w *Watcher, ctx context.Context, key string, query Query[T], collections ...string) *Handle[T] {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle[T]{
		key:    key,
		ch:     make(chan Snapshot[T], 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	w.mu.Lock()
	if prev, ok := w.active[key]; ok {
		prev.Cancel()
	}
	w.gens[key]++
	h.gen = w.gens[key]
	w.active[key] = h
	w.mu.Unlock()

	// Subscribe to invalidation signals before the initial query so a write
	// landing between query and subscribe is not missed.
	signals := make(chan struct{}, 1)
	var subs []*eventbus.Subscription
	for _, collection := range collections {
		sub, err := w.bus.Subscribe(eventbus.CollectionChanged(collection))
		if err != nil {
			continue
		}
		subs = append(subs, sub)
		go coalesce(sub, signals)
	}

	go run(w, ctx, h, query, signals, subs)
	return h
}

// coalesce folds bus deliveries into a level-triggered signal channel.
func coalesce(sub *eventbus.Subscription, signals chan<- struct{}) {
	for range sub.Events() {
		select {
		case signals <- struct{}{}:
		default:
		}
	}
}

func run[T any](w *Watcher, ctx context.Context, h *Handle[T], query Query[T], signals chan struct{}, subs []*eventbus.Subscription) {
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
		w.release(h.key, h.gen)
		close(h.ch)
		close(h.done)
	}()

	var seq uint64
	for {
		items, err := query(ctx)
		if ctx.Err() != nil {
			return
		}
		seq++
		if err != nil {
			// Terminal error: report it, then stop. The consumer restarts
			// the subscription if it wants recovery.
			w.metrics.IncSubscriptionError(ctx, h.key)
			w.log.Warn("subscription failed",
				zap.String("key", h.key),
				zap.Error(err),
			)
			select {
			case h.ch <- Snapshot[T]{Seq: seq, Err: err}:
			case <-ctx.Done():
			}
			return
		}

		w.metrics.IncSnapshot(ctx, h.key)
		select {
		case h.ch <- Snapshot[T]{Seq: seq, Items: items}:
			// Both select cases are ready when a Cancel races the delivery
			// and the runtime may pick the send; retract the snapshot unless
			// the consumer already took it.
			if ctx.Err() != nil {
				select {
				case <-h.ch:
				default:
				}
				return
			}
		case <-ctx.Done():
			return
		}

		select {
		case <-signals:
		case <-ctx.Done():
			return
		}
	}
}

// release drops the registry entry, but only if it still belongs to this
// generation; a replacement handle under the same key must not be evicted.
func (w *Watcher) release(key string, gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gens[key] == gen {
		delete(w.active, key)
	}
}

// CancelKey cancels whichever handle currently owns the key, if any.
func (w *Watcher) CancelKey(key string) {
	w.mu.Lock()
	prev, ok := w.active[key]
	if ok {
		delete(w.active, key)
	}
	w.mu.Unlock()
	if ok {
		prev.Cancel()
	}
}
