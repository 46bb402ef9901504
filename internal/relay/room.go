package relay

import "encoding/json"

// Room holds the two peers of a signaling session and the append-only log
// of signal records each side has produced. The log is what lets a peer
// that connects after its counterpart started signaling replay the backlog
// instead of missing it.
type Room struct {
	// ID is the unique identifier for the room.
	ID string

	// Initiator is the peer that created the room.
	Initiator *Client

	// Responder is the peer that joined the room.
	Responder *Client

	// initiatorLog and responderLog store every signal record relayed so
	// far, in arrival order. Rooms are never pruned while the server runs;
	// garbage collection of stale rooms is out of scope.
	initiatorLog []json.RawMessage
	responderLog []json.RawMessage
}

func (r *Room) member(c *Client) bool {
	return r.Initiator == c || r.Responder == c
}

// counterpart returns the other peer in the room, or nil if it has not
// connected (or already left).
func (r *Room) counterpart(c *Client) *Client {
	if r.Initiator == c {
		return r.Responder
	}
	return r.Initiator
}

// appendLog records a signal produced by c.
func (r *Room) appendLog(c *Client, payload json.RawMessage) {
	if r.Initiator == c {
		r.initiatorLog = append(r.initiatorLog, payload)
	} else {
		r.responderLog = append(r.responderLog, payload)
	}
}

// backlogFor returns the records the given peer has not produced itself,
// i.e. the counterpart's log, in insertion order.
func (r *Room) backlogFor(c *Client) []json.RawMessage {
	if r.Initiator == c {
		return r.responderLog
	}
	return r.initiatorLog
}
