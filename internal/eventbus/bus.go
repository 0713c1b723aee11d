package eventbus

import (
	"errors"
	"strings"
	"sync"
)

// Topics carried by the bus. Collection-change topics are level-triggered
// invalidation signals: consumers re-query on receipt, so dropping a signal
// while another is already queued loses nothing.
const (
	TopicAuthState       = "auth.state"
	TopicFeedItemCreated = "feed.item.created"
	TopicFeedItemDeleted = "feed.item.deleted"

	collectionChangedPrefix = "collection.changed."
)

const DefaultSubscriberBuffer = 16

// CollectionChanged returns the invalidation topic for a collection.
func CollectionChanged(collection string) string {
	return collectionChangedPrefix + collection
}

// Event is a single bus delivery.
type Event struct {
	Topic   string
	Payload any
}

// Bus is the in-process publish/subscribe channel connecting optimistic local
// actions and collection invalidation signals to projectors.
type Bus struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	subscriberBuffer int

	remote remotePublisher
}

type remotePublisher interface {
	forward(topic string)
}

type stream struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	nextID uint64
}

// Subscription is one consumer's attachment to a topic. Close is idempotent.
type Subscription struct {
	bus   *Bus
	topic string
	id    uint64
	ch    chan Event
	once  sync.Once
}

func NewBus() *Bus {
	return &Bus{
		streams:          make(map[string]*stream),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish delivers to local subscribers and forwards collection invalidation
// signals to other instances when a remote bridge is attached.
func (b *Bus) Publish(topic string, payload any) {
	b.publishLocal(topic, payload)

	if b.remote != nil && strings.HasPrefix(topic, collectionChangedPrefix) {
		b.remote.forward(topic)
	}
}

func (b *Bus) publishLocal(topic string, payload any) {
	if b == nil || strings.TrimSpace(topic) == "" {
		return
	}
	b.mu.RLock()
	s := b.streams[topic]
	b.mu.RUnlock()
	if s == nil {
		return
	}

	event := Event{Topic: topic, Payload: payload}

	// Sends happen under the stream lock: unsubscribe closes subscriber
	// channels under the same lock, so a send can never hit a closed channel.
	// The sends are non-blocking against buffered channels and cannot stall
	// publishers.
	s.mu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
	s.mu.Unlock()
}

func (b *Bus) Subscribe(topic string) (*Subscription, error) {
	if b == nil {
		return nil, errors.New("bus_unavailable")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("invalid_topic")
	}

	s := b.ensureStream(topic)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan Event, b.subscriberBuffer)
	s.subs[id] = ch
	s.mu.Unlock()

	return &Subscription{
		bus:   b,
		topic: topic,
		id:    id,
		ch:    ch,
	}, nil
}

func (b *Bus) ensureStream(topic string) *stream {
	b.mu.RLock()
	current := b.streams[topic]
	b.mu.RUnlock()
	if current != nil {
		return current
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	current = b.streams[topic]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		b.streams[topic] = current
	}
	return current
}

func (b *Bus) unsubscribe(topic string, id uint64) {
	if b == nil {
		return
	}
	b.mu.RLock()
	s := b.streams[topic]
	b.mu.RUnlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
	remaining := len(s.subs)
	s.mu.Unlock()
	if remaining != 0 {
		return
	}

	b.mu.Lock()
	current := b.streams[topic]
	if current == s {
		s.mu.Lock()
		if len(s.subs) == 0 {
			delete(b.streams, topic)
		}
		s.mu.Unlock()
	}
	b.mu.Unlock()
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.bus == nil {
		return
	}
	s.once.Do(func() {
		s.bus.unsubscribe(s.topic, s.id)
	})
}
