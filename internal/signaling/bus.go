package signaling

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Bus is an in-process Transport used to run two peers inside one process
// (the local demo and the test suite). It is an explicit shared object:
// construct one Bus and hand it to both peers.
//
// Messages are kept in a lock-protected backlog so late subscribers replay
// everything inserted before they arrived, then stream live additions in
// insertion order. Delivery is per-subscriber ordered and never drops a
// message; a slow consumer only delays itself.
type Bus struct {
	mu      sync.Mutex
	backlog []busRecord
	subs    map[*busSubscriber]struct{}
}

type busRecord struct {
	from Role
	room string
	env  Envelope
}

// NewBus creates an empty loopback bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*busSubscriber]struct{})}
}

// CreateRoom generates a new room key. The loopback store has no server, so
// the key is minted locally.
func (b *Bus) CreateRoom(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Send appends the envelope to the backlog and fans it out to every
// matching live subscriber, all under one lock so insertion order is the
// delivery order for everyone.
func (b *Bus) Send(_ context.Context, role Role, roomID string, env Envelope) error {
	record := busRecord{from: role, room: roomID, env: env}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.backlog = append(b.backlog, record)
	for sub := range b.subs {
		sub.offer(record)
	}
	return nil
}

// Subscribe registers a consumer for envelopes the peer role writes into
// roomID. The current backlog is queued before any live message.
func (b *Bus) Subscribe(_ context.Context, role Role, roomID string) (*Subscription, error) {
	sub := &busSubscriber{
		from: role.Peer(),
		room: roomID,
		done: make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)

	b.mu.Lock()
	for _, record := range b.backlog {
		sub.offer(record)
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	subscription := newSubscription(0, func() { b.unsubscribe(sub) })
	go sub.drain(subscription.envelopes)
	return subscription, nil
}

func (b *Bus) unsubscribe(sub *busSubscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()

	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.done)
		sub.cond.Broadcast()
	}
	sub.mu.Unlock()
}

// busSubscriber buffers matching records without bound so Send never blocks
// on a consumer. A dedicated drain goroutine moves records onto the
// subscription channel.
type busSubscriber struct {
	from Role
	room string
	done chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Envelope
	closed  bool
}

func (s *busSubscriber) offer(record busRecord) {
	if record.from != s.from || record.room != s.room {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, record.env)
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *busSubscriber) drain(out chan<- Envelope) {
	defer close(out)
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		env := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		select {
		case out <- env:
		case <-s.done:
			return
		}
	}
}

// Compile-time interface check.
var _ Transport = (*Bus)(nil)
