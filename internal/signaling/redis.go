package signaling

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisTransport stores each room's signaling traffic as two append-only
// Redis lists, one per role:
//
//	rooms/{roomId}/initiatorMessages
//	rooms/{roomId}/nonInitiatorMessages
//
// Sends RPUSH the encoded envelope and publish it on a channel of the same
// name. Subscribers attach to the pub/sub channel first, then replay the
// list, so a peer that starts late still sees every message. The overlap
// between replay and live delivery can duplicate an envelope; delivery is
// at-least-once and the negotiation layer tolerates repeats.
type RedisTransport struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisTransport wraps an existing Redis client.
func NewRedisTransport(client *redis.Client, logger *slog.Logger) *RedisTransport {
	return &RedisTransport{client: client, logger: logger}
}

func roomKey(roomID string, role Role) string {
	return "rooms/" + roomID + "/" + role.folder()
}

// CreateRoom mints a new room key and records it in the room index.
func (t *RedisTransport) CreateRoom(ctx context.Context) (string, error) {
	roomID := uuid.NewString()
	if err := t.client.RPush(ctx, "rooms", roomID).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return roomID, nil
}

// Send appends the envelope to this role's room list and broadcasts it to
// live subscribers.
func (t *RedisTransport) Send(ctx context.Context, role Role, roomID string, env Envelope) error {
	data, err := Encode(env)
	if err != nil {
		return err
	}
	key := roomKey(roomID, role)
	if err := t.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	if err := t.client.Publish(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return nil
}

// Subscribe streams the peer role's envelopes for roomID: current backlog
// first, then live additions.
func (t *RedisTransport) Subscribe(ctx context.Context, role Role, roomID string) (*Subscription, error) {
	key := roomKey(roomID, role.Peer())

	pubsub := t.client.Subscribe(ctx, key)
	// Wait for the subscription to be confirmed before reading the backlog,
	// otherwise a message could land between LRANGE and the first delivery.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	backlog, err := t.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	sub := newSubscription(len(backlog)+16, func() { pubsub.Close() })

	go func() {
		defer close(sub.envelopes)

		deliver := func(raw string) {
			env, err := Decode([]byte(raw))
			if err != nil {
				t.logger.Warn("dropping malformed signaling message",
					"room", roomID, "error", err)
				return
			}
			select {
			case sub.envelopes <- env:
			case <-ctx.Done():
			}
		}

		for _, raw := range backlog {
			deliver(raw)
		}
		for {
			select {
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				deliver(msg.Payload)
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// Compile-time interface check.
var _ Transport = (*RedisTransport)(nil)
