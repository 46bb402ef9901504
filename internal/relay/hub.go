package relay

import (
	"log/slog"

	"github.com/google/uuid"
)

// Hub is the central brain of the relay. It manages all active rooms and
// clients from a single goroutine, so no room state needs a lock.
type Hub struct {
	// rooms maps room IDs to Room instances.
	rooms map[string]*Room

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Broadcast is a channel for clients to submit messages to. The hub
	// processes them in arrival order.
	Broadcast chan *Message

	logger *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Message),
		logger:     logger,
	}
}

// Run starts the hub's main processing loop. This is the single goroutine
// that safely manages all state (rooms, clients).
func (h *Hub) Run() {
	for {
		select {
		case <-h.Register:
			// The client is not in a room yet. It needs to send a
			// "create_room" or "join_room" message first.
			h.logger.Debug("client registered")

		case client := <-h.Unregister:
			h.removeClient(client)

		case message := <-h.Broadcast:
			h.handleMessage(message)
		}
	}
}

func (h *Hub) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypeCreateRoom:
		h.createRoom(message.client)
	case MessageTypeJoinRoom:
		h.joinRoom(message.client, message.RoomID)
	case MessageTypeSignal:
		h.relaySignal(message)
	default:
		h.logger.Warn("unknown message type", "type", message.Type)
	}
}

// createRoom opens a fresh room with the requesting client as initiator.
// Room keys come from the server so they are unique with overwhelming
// probability, mirroring a real-time store's generated push keys.
func (h *Hub) createRoom(client *Client) {
	roomID := uuid.NewString()
	h.rooms[roomID] = &Room{ID: roomID, Initiator: client}
	client.RoomID = roomID

	h.logger.Info("room created", "room", roomID)
	client.Send <- &Message{Type: MessageTypeRoomCreated, RoomID: roomID}
}

// joinRoom attaches the client as the room's responder, replays the
// initiator's signal backlog to it, and notifies the initiator.
//
// Joining is the only way back into a surviving room, and it always takes
// the responder slot: a departed initiator cannot reclaim its role and
// must create a fresh room. A lone responder therefore keeps the room's
// logs alive but can never be rejoined by its original initiator.
func (h *Hub) joinRoom(client *Client, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		h.logger.Info("room join failed: not found", "room", roomID)
		client.Send <- errorMessage("Room not found")
		return
	}
	if room.Responder != nil {
		h.logger.Info("room join failed: full", "room", roomID)
		client.Send <- errorMessage("Room is full")
		return
	}

	room.Responder = client
	client.RoomID = roomID
	h.logger.Info("client joined room", "room", roomID)

	client.Send <- &Message{Type: MessageTypeJoinSuccess, RoomID: roomID}

	// Replay everything the initiator produced before the responder
	// connected. Without this, a fast initiator's offer and early ICE
	// candidates would be lost.
	for _, record := range room.backlogFor(client) {
		client.Send <- &Message{Type: MessageTypeSignal, RoomID: roomID, Payload: record}
	}

	if room.Initiator != nil {
		room.Initiator.Send <- &Message{Type: MessageTypePeerJoined, RoomID: roomID}
	}
}

// relaySignal appends the record to the sender's room log and forwards it
// to the counterpart if one is connected. A missing counterpart is not an
// error: the record waits in the log for the replay on join.
func (h *Hub) relaySignal(message *Message) {
	client := message.client
	if client.RoomID == "" {
		client.Send <- errorMessage("You must join a room first")
		return
	}
	room, ok := h.rooms[client.RoomID]
	if !ok || !room.member(client) {
		client.Send <- errorMessage("Room not found")
		return
	}

	room.appendLog(client, message.Payload)

	if target := room.counterpart(client); target != nil {
		target.Send <- &Message{Type: MessageTypeSignal, RoomID: room.ID, Payload: message.Payload}
	}
}

// removeClient detaches a disconnected client from its room and notifies
// the remaining peer. The room itself survives until both sides are gone;
// its logs stay replayable while one peer remains.
func (h *Hub) removeClient(client *Client) {
	defer close(client.Send)

	if client.RoomID == "" {
		return
	}
	room, ok := h.rooms[client.RoomID]
	if !ok {
		return
	}

	other := room.counterpart(client)
	if room.Initiator == client {
		room.Initiator = nil
	} else if room.Responder == client {
		room.Responder = nil
	}

	if room.Initiator == nil && room.Responder == nil {
		delete(h.rooms, room.ID)
		h.logger.Info("room deleted", "room", room.ID)
		return
	}
	if other != nil {
		other.Send <- &Message{Type: MessageTypePeerLeft, RoomID: room.ID}
	}
}
