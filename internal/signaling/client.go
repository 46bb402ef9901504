package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spundev/webrtcshare/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// RelayTransport is the production Transport: a websocket client of the
// relay server. One RelayTransport serves one negotiation session in one
// room, matching the relay's one-room-per-connection model.
//
// The relay knows each connection's role from whether it created or joined
// the room, so Send carries no role on the wire; the role parameters exist
// to satisfy the Transport contract and are validated against the
// connection's actual role.
type RelayTransport struct {
	conn *websocket.Conn

	outgoing chan *relay.Message
	signals  chan *relay.Message

	roomCreated chan string
	joined      chan error
	peerEvents  chan string

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewRelayTransport dials the relay server and starts the connection pumps.
func NewRelayTransport(serverURL string) (*RelayTransport, error) {
	if _, err := url.Parse(serverURL); err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	t := &RelayTransport{
		conn:        conn,
		outgoing:    make(chan *relay.Message, 1),
		signals:     make(chan *relay.Message, 32),
		roomCreated: make(chan string, 1),
		joined:      make(chan error, 1),
		peerEvents:  make(chan string, 4),
		done:        make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go t.readPump()
	go t.writePump()
	return t, nil
}

// readPump reads messages from the websocket and routes them by type.
func (t *RelayTransport) readPump() {
	defer func() {
		t.conn.Close()
		close(t.signals)
	}()

	t.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg relay.Message
		if err := t.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case relay.MessageTypeRoomCreated:
			t.roomCreated <- msg.RoomID
		case relay.MessageTypeJoinSuccess:
			t.joined <- nil
		case relay.MessageTypeError:
			var payload relay.ErrorPayload
			text := "relay error"
			if err := decodeJSON(msg.Payload, &payload); err == nil && payload.Error != "" {
				text = payload.Error
			}
			select {
			case t.joined <- fmt.Errorf("%w: %s", ErrTransportUnavailable, text):
			default:
				slog.Warn("relay error", "error", text)
			}
		case relay.MessageTypeSignal:
			t.signals <- &msg
		case relay.MessageTypePeerJoined, relay.MessageTypePeerLeft:
			select {
			case t.peerEvents <- msg.Type:
			default:
			}
		}
	}
}

// writePump writes messages to the websocket and sends periodic pings.
func (t *RelayTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case message := <-t.outgoing:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-t.done:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			t.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// CreateRoom asks the relay for a fresh room and registers this connection
// as its initiator.
func (t *RelayTransport) CreateRoom(ctx context.Context) (string, error) {
	t.send(ctx, &relay.Message{Type: relay.MessageTypeCreateRoom})

	select {
	case roomID := <-t.roomCreated:
		return roomID, nil
	case err := <-t.joined:
		if err == nil {
			err = fmt.Errorf("%w: unexpected join response", ErrTransportUnavailable)
		}
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// JoinRoom registers this connection as the room's responder. The relay
// replays the initiator's backlog immediately after the join succeeds, so
// call Subscribe before triggering any reply traffic.
func (t *RelayTransport) JoinRoom(ctx context.Context, roomID string) error {
	t.send(ctx, &relay.Message{Type: relay.MessageTypeJoinRoom, RoomID: roomID})

	select {
	case err := <-t.joined:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send forwards the envelope to the peer through the relay.
func (t *RelayTransport) Send(ctx context.Context, _ Role, roomID string, env Envelope) error {
	payload, err := Encode(env)
	if err != nil {
		return err
	}
	msg := &relay.Message{Type: relay.MessageTypeSignal, RoomID: roomID, Payload: payload}
	select {
	case t.outgoing <- msg:
		return nil
	case <-t.done:
		return ErrTransportUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe exposes the stream of peer signal records. The relay already
// partitions by sender, so every received record came from the other role.
func (t *RelayTransport) Subscribe(ctx context.Context, _ Role, roomID string) (*Subscription, error) {
	sub := newSubscription(32, func() {})

	go func() {
		defer close(sub.envelopes)
		for {
			select {
			case msg, ok := <-t.signals:
				if !ok {
					return
				}
				env, err := Decode(msg.Payload)
				if err != nil {
					slog.Warn("dropping malformed signaling message",
						"room", roomID, "error", err)
					continue
				}
				select {
				case sub.envelopes <- env:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			case <-t.done:
				return
			}
		}
	}()

	return sub, nil
}

// PeerEvents reports peer_joined / peer_left notifications for the UI.
func (t *RelayTransport) PeerEvents() <-chan string {
	return t.peerEvents
}

// send enqueues a message for the write pump without blocking past the
// caller's deadline or the transport's shutdown.
func (t *RelayTransport) send(ctx context.Context, msg *relay.Message) {
	select {
	case t.outgoing <- msg:
	case <-t.done:
	case <-ctx.Done():
	}
}

// Close closes the websocket connection and stops the pumps. Idempotent.
func (t *RelayTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.done)
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(data, v)
}

// Compile-time interface check.
var _ Transport = (*RelayTransport)(nil)
