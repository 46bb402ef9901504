package signaling

import (
	"context"
	"errors"
	"sync"
)

// Role identifies which side of the room a peer occupies. The role is fixed
// for the lifetime of a negotiation session: it selects the message folder a
// peer writes to and, by exclusion, the one it reads from.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

// Peer returns the other side's role.
func (r Role) Peer() Role {
	if r == RoleInitiator {
		return RoleResponder
	}
	return RoleInitiator
}

// folder returns the store folder this role appends its messages to. The
// names match the original room layout so mixed deployments stay compatible.
func (r Role) folder() string {
	if r == RoleInitiator {
		return "initiatorMessages"
	}
	return "nonInitiatorMessages"
}

// ErrTransportUnavailable is returned when the backing store for a transport
// cannot be reached. The session surfaces it to the caller; no automatic
// retry happens at this layer.
var ErrTransportUnavailable = errors.New("signaling transport unavailable")

// Transport exchanges signaling envelopes for a room over an external
// ordered broadcast medium.
//
// Send is fire-and-forget with at-least-once, per-sender-ordered delivery.
// Subscribe yields only envelopes written by the other role, replaying any
// backlog inserted before the subscription started so racing peers never
// miss messages.
type Transport interface {
	CreateRoom(ctx context.Context) (string, error)
	Send(ctx context.Context, role Role, roomID string, env Envelope) error
	Subscribe(ctx context.Context, role Role, roomID string) (*Subscription, error)
}

// Subscription is a live envelope stream for one role in one room. Close
// stops delivery and releases the underlying listener; calling it more than
// once is a no-op.
type Subscription struct {
	envelopes chan Envelope
	closeOnce sync.Once
	stop      func()
}

func newSubscription(buffer int, stop func()) *Subscription {
	return &Subscription{
		envelopes: make(chan Envelope, buffer),
		stop:      stop,
	}
}

// Envelopes returns the stream of envelopes from the peer role. The channel
// is closed when the subscription is closed or its transport shuts down.
func (s *Subscription) Envelopes() <-chan Envelope {
	return s.envelopes
}

// Close unsubscribes. Idempotent.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}
