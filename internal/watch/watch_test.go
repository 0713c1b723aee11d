package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/playpulse/clubsync/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestWatcher(t *testing.T) (*Watcher, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.NewBus()
	return NewWatcher(bus, nil, zaptest.NewLogger(t)), bus
}

type countingQuery struct {
	mu    sync.Mutex
	calls int
}

func (q *countingQuery) query(context.Context) ([]int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	return []int{q.calls}, nil
}

func waitSnapshot[T any](t *testing.T, h *Handle[T]) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-h.Snapshots():
		require.True(t, ok, "snapshot channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot[T]{}
	}
}

func TestInitialSnapshotDelivered(t *testing.T) {
	w, _ := newTestWatcher(t)
	q := &countingQuery{}

	h := Start(w, context.Background(), "k", q.query, "users")
	defer h.Cancel()

	snap := waitSnapshot(t, h)
	require.NoError(t, snap.Err)
	assert.Equal(t, []int{1}, snap.Items)
	assert.Equal(t, uint64(1), snap.Seq)
}

func TestChangeSignalTriggersRequery(t *testing.T) {
	w, bus := newTestWatcher(t)
	q := &countingQuery{}

	h := Start(w, context.Background(), "k", q.query, "users")
	defer h.Cancel()

	first := waitSnapshot(t, h)
	require.NoError(t, first.Err)

	bus.Publish(eventbus.CollectionChanged("users"), nil)

	second := waitSnapshot(t, h)
	require.NoError(t, second.Err)
	assert.Equal(t, []int{2}, second.Items)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestSnapshotsAreStrictlyOrdered(t *testing.T) {
	w, bus := newTestWatcher(t)
	q := &countingQuery{}

	h := Start(w, context.Background(), "k", q.query, "users")
	defer h.Cancel()

	var lastSeq uint64
	for i := 0; i < 5; i++ {
		snap := waitSnapshot(t, h)
		require.NoError(t, snap.Err)
		assert.Greater(t, snap.Seq, lastSeq)
		lastSeq = snap.Seq
		bus.Publish(eventbus.CollectionChanged("users"), nil)
	}
}

func TestCancelledHandleNeverDeliversAgain(t *testing.T) {
	w, bus := newTestWatcher(t)

	release := make(chan struct{})
	first := true
	query := func(ctx context.Context) ([]int, error) {
		if first {
			first = false
			return []int{1}, nil
		}
		// Hold the re-query until after the handle is cancelled so a stale
		// result is ready to deliver.
		<-release
		return []int{2}, nil
	}

	h := Start(w, context.Background(), "k", query, "users")
	snap := waitSnapshot(t, h)
	require.Equal(t, []int{1}, snap.Items)

	bus.Publish(eventbus.CollectionChanged("users"), nil)
	time.Sleep(50 * time.Millisecond)

	h.Cancel()
	close(release)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("handle did not stop")
	}

	// Any snapshot still buffered was produced before Cancel; nothing new
	// may arrive after the channel closes.
	for snap := range h.Snapshots() {
		assert.Equal(t, []int{1}, snap.Items, "stale post-cancel result must not be delivered")
	}
}

func TestCancelRacingDeliveryLeavesNoSnapshotBehind(t *testing.T) {
	w, _ := newTestWatcher(t)

	// Cancel lands while the delivery select may already have the send case
	// ready; the buffered snapshot must be retracted, not left for a reader
	// that observed the cancel.
	for i := 0; i < 200; i++ {
		queried := make(chan struct{}, 1)
		h := Start(w, context.Background(), "k", func(context.Context) ([]int, error) {
			select {
			case queried <- struct{}{}:
			default:
			}
			return []int{1}, nil
		}, "users")

		<-queried
		h.Cancel()

		<-h.Done()
		if snap, ok := <-h.Snapshots(); ok {
			// At most the single pre-cancel snapshot may remain buffered.
			require.NoError(t, snap.Err)
			_, ok = <-h.Snapshots()
			require.False(t, ok)
		}
	}
}

func TestStartReplacesHandleUnderSameKey(t *testing.T) {
	w, _ := newTestWatcher(t)
	q := &countingQuery{}

	first := Start(w, context.Background(), "role/u1", q.query, "users")
	waitSnapshot(t, first)

	second := Start(w, context.Background(), "role/u1", q.query, "users")
	defer second.Cancel()

	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("previous handle was not cancelled")
	}

	snap := waitSnapshot(t, second)
	require.NoError(t, snap.Err)
}

func TestQueryErrorIsTerminal(t *testing.T) {
	w, _ := newTestWatcher(t)
	boom := errors.New("store offline")

	h := Start(w, context.Background(), "k", func(context.Context) ([]int, error) {
		return nil, boom
	}, "users")
	defer h.Cancel()

	snap := waitSnapshot(t, h)
	require.ErrorIs(t, snap.Err, boom)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after terminal error")
	}
	_, open := <-h.Snapshots()
	assert.False(t, open)
}

func TestCancelKeyStopsActiveHandle(t *testing.T) {
	w, _ := newTestWatcher(t)
	q := &countingQuery{}

	h := Start(w, context.Background(), "k", q.query, "users")
	waitSnapshot(t, h)

	w.CancelKey("k")

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("handle did not stop")
	}
}
