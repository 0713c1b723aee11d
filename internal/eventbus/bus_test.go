package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe("orders.created")
	require.NoError(t, err)
	defer sub.Close()

	bus.Publish("orders.created", "payload")

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "orders.created", ev.Topic)
		assert.Equal(t, "payload", ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected delivery")
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	bus.Publish("nobody.listening", nil)
}

func TestSubscribeRejectsEmptyTopic(t *testing.T) {
	bus := NewBus()
	_, err := bus.Subscribe("  ")
	require.Error(t, err)
}

func TestCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe("auth.state")
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	_, open := <-sub.Events()
	assert.False(t, open)

	bus.Publish("auth.state", nil)
}

func TestFullSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe("collection.changed.users")
	require.NoError(t, err)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < DefaultSubscriberBuffer*3; i++ {
			bus.Publish("collection.changed.users", nil)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestPublishRacingCloseDoesNotPanic(t *testing.T) {
	bus := NewBus()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					bus.Publish("feed.item.created", nil)
				}
			}
		}()
	}

	// Subscribers detaching mid-publish, as every SSE disconnect does.
	for i := 0; i < 500; i++ {
		sub, err := bus.Subscribe("feed.item.created")
		require.NoError(t, err)
		sub.Close()
	}

	close(stop)
	wg.Wait()
}

func TestCollectionChangedTopic(t *testing.T) {
	assert.Equal(t, "collection.changed.submissions", CollectionChanged("submissions"))
}

func TestSubscribersReceiveIndependently(t *testing.T) {
	bus := NewBus()

	first, err := bus.Subscribe("feed.item.created")
	require.NoError(t, err)
	defer first.Close()
	second, err := bus.Subscribe("feed.item.created")
	require.NoError(t, err)
	defer second.Close()

	bus.Publish("feed.item.created", 42)

	for _, sub := range []*Subscription{first, second} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, 42, ev.Payload)
		case <-time.After(time.Second):
			t.Fatal("expected delivery on every subscriber")
		}
	}
}
