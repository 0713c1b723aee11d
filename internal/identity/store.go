package identity

import "sync"

// Store holds the current Session. It is a single-writer resource: only the
// Resolver mutates it, and each mutation publishes a complete snapshot to all
// subscribers in order, so no consumer sees a mix of old and new state.
type Store struct {
	mu      sync.RWMutex
	current Session
	subs    map[uint64]chan Session
	nextID  uint64
}

// Subscription is one consumer's attachment to session snapshots. Channels
// carry latest-value semantics: a slow consumer observes the newest session,
// never a torn or reordered one.
type Subscription struct {
	store *Store
	id    uint64
	ch    chan Session
	once  sync.Once
}

func NewStore() *Store {
	return &Store{
		current: Guest(),
		subs:    make(map[uint64]chan Session),
	}
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Swap replaces the session and fans the new snapshot out while holding the
// write lock, keeping publication ordered with respect to Current readers.
func (s *Store) Swap(next Session) {
	s.mu.Lock()
	s.current = next
	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
			// Replace the stale pending value so the subscriber always
			// drains the latest session.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
	s.mu.Unlock()
}

// Subscribe returns the current session and a stream of subsequent snapshots.
func (s *Store) Subscribe() (Session, *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Session, 1)
	s.subs[id] = ch

	return s.current, &Subscription{store: s, id: id, ch: ch}
}

func (sub *Subscription) Sessions() <-chan Session {
	if sub == nil {
		return nil
	}
	return sub.ch
}

func (sub *Subscription) Close() {
	if sub == nil || sub.store == nil {
		return
	}
	sub.once.Do(func() {
		sub.store.mu.Lock()
		if ch, ok := sub.store.subs[sub.id]; ok {
			delete(sub.store.subs, sub.id)
			close(ch)
		}
		sub.store.mu.Unlock()
	})
}
