package rtc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spundev/webrtcshare/internal/protocol"
	"github.com/spundev/webrtcshare/internal/signaling"
)

// ErrSignalingLost reports that the session's signaling stream ended while
// the session was still running. An established data channel keeps working
// peer to peer, but no further negotiation can happen.
var ErrSignalingLost = errors.New("signaling stream closed")

// ChatMessage is one entry of the session's message log: a chat line or a
// file announcement. Notice is non-nil for announcements, with Value
// holding the filename.
type ChatMessage struct {
	Timestamp time.Time
	Value     string
	Outgoing  bool
	Notice    *protocol.FileNoticePayload
}

// Session owns one peer connection and negotiates it against the remote
// peer through a signaling transport.
//
// Every engine callback, signaling envelope, and chat channel event is
// funneled into a single goroutine (run), so the negotiation flags and the
// signaling-state decisions need no locking. Only the candidate buffer has
// its own mutex, because candidates legitimately race with the flush that
// follows remote-description application.
type Session struct {
	engine    Engine
	transport signaling.Transport
	role      signaling.Role
	roomID    string
	logger    *slog.Logger

	// polite is fixed true in production: with role-partitioned signaling
	// in a strict two-party room, glare is rare enough that both sides
	// yielding is safe. Tests override it to exercise the impolite path.
	polite bool

	// makingOffer guards the window between deciding to offer and clearing
	// the local description attempt. Touched only on the run goroutine.
	makingOffer bool

	candidates candidateBuffer

	chat       DataChannel
	chatEvents chan chatEvent

	connected atomic.Bool

	mu  sync.Mutex
	log []ChatMessage

	states        chan bool
	messages      chan ChatMessage
	notices       chan protocol.FileNoticePayload
	failures      chan error
	ignoredOffers atomic.Int64

	ctx       context.Context
	cancel    context.CancelFunc
	sub       *signaling.Subscription
	closeOnce sync.Once
	done      chan struct{}
}

type chatEventKind int

const (
	chatOpened chatEventKind = iota
	chatClosed
	chatMessage
)

type chatEvent struct {
	kind chatEventKind
	msg  ChannelMessage
}

// NewSession wires a session for one room. It does not touch the network;
// call Start to begin negotiating.
func NewSession(engine Engine, transport signaling.Transport, role signaling.Role, roomID string, logger *slog.Logger) *Session {
	return &Session{
		engine:     engine,
		transport:  transport,
		role:       role,
		roomID:     roomID,
		logger:     logger.With("role", role.String(), "room", roomID),
		polite:     true,
		chatEvents: make(chan chatEvent, 32),
		states:     make(chan bool, 4),
		messages:   make(chan ChatMessage, 32),
		notices:    make(chan protocol.FileNoticePayload, 4),
		failures:   make(chan error, 4),
		done:       make(chan struct{}),
	}
}

// Start creates the chat channel, subscribes to the room's signaling
// stream, and launches the session goroutine. Creating the pre-negotiated
// chat channel is also what triggers the engine's first negotiation-needed
// event on the initiator.
func (s *Session) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	sub, err := s.transport.Subscribe(s.ctx, s.role, s.roomID)
	if err != nil {
		s.cancel()
		return err
	}
	s.sub = sub

	chat, err := s.engine.CreateDataChannel(protocol.ChatChannelLabel, protocol.ChatChannelID)
	if err != nil {
		sub.Close()
		s.cancel()
		return fmt.Errorf("create chat channel: %w", err)
	}
	s.chat = chat
	s.bindChannel(chat)

	go s.run()
	return nil
}

// bindChannel converts the channel's callbacks into chat events consumed
// by the run goroutine.
func (s *Session) bindChannel(ch DataChannel) {
	ch.OnOpen(func() { s.pushChatEvent(chatEvent{kind: chatOpened}) })
	ch.OnClose(func() { s.pushChatEvent(chatEvent{kind: chatClosed}) })
	ch.OnMessage(func(msg ChannelMessage) {
		s.pushChatEvent(chatEvent{kind: chatMessage, msg: msg})
	})
}

func (s *Session) pushChatEvent(ev chatEvent) {
	select {
	case s.chatEvents <- ev:
	case <-s.done:
	}
}

// run is the session's single event loop.
func (s *Session) run() {
	envelopes := s.sub.Envelopes()
	for {
		select {
		case ev, ok := <-s.engine.Events():
			if !ok {
				return
			}
			s.handleEngineEvent(ev)

		case env, ok := <-envelopes:
			if !ok {
				// The stream ending mid-session means the transport is
				// gone. An open data channel keeps working peer to peer,
				// so surface the loss and keep serving engine and chat
				// events; the nil channel drops out of the select.
				s.fail(ErrSignalingLost)
				envelopes = nil
				continue
			}
			s.handleEnvelope(env)

		case ev := <-s.chatEvents:
			s.handleChatEvent(ev)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) handleEngineEvent(ev Event) {
	switch ev.Kind {
	case EventNegotiationNeeded:
		// Renegotiation is left to the initiator; the responder's engine
		// raises the event too but never originates offers.
		if s.role == signaling.RoleInitiator {
			s.sendOffer()
		}

	case EventICECandidate:
		// Local candidates go out immediately, whatever the negotiation
		// state; only the receive side buffers.
		env := signaling.NewCandidateEnvelope(ev.Candidate)
		if err := s.transport.Send(s.ctx, s.role, s.roomID, env); err != nil {
			s.fail(fmt.Errorf("send candidate: %w", err))
		}

	case EventSignalingChange:
		s.logger.Debug("signaling state changed", "state", ev.State.String())
	}
}

// sendOffer runs the offer side of perfect negotiation. makingOffer is
// cleared on every exit path so a failed description attempt cannot leak
// the flag.
func (s *Session) sendOffer() {
	s.makingOffer = true
	defer func() { s.makingOffer = false }()

	offer, err := s.engine.CreateOffer(s.ctx)
	if err != nil {
		s.logger.Warn("create offer failed", "error", err)
		return
	}
	if err := s.engine.SetLocalDescription(s.ctx, offer); err != nil {
		s.logger.Warn("set local offer failed", "error", err)
		return
	}
	env := signaling.NewDescriptionEnvelope(offer)
	if err := s.transport.Send(s.ctx, s.role, s.roomID, env); err != nil {
		s.fail(fmt.Errorf("send offer: %w", err))
	}
}

func (s *Session) handleEnvelope(env signaling.Envelope) {
	if desc, ok := env.Description(); ok {
		s.handleDescription(desc)
		return
	}
	if cand, ok := env.Candidate(); ok {
		if err := s.candidates.Add(s.engine, cand); err != nil {
			s.logger.Warn("add candidate failed", "error", err)
		}
	}
}

// handleDescription applies the perfect-negotiation rules to an incoming
// offer or answer.
func (s *Session) handleDescription(desc signaling.Description) {
	isOffer := desc.Type == signaling.TypeOffer
	collision := isOffer &&
		(s.makingOffer || s.engine.SignalingState() != SignalingStateStable)

	if !s.polite && collision {
		// Impolite side of glare: drop the incoming offer and keep ours.
		// Expected outcome of collision resolution, not a failure.
		s.ignoredOffers.Add(1)
		s.logger.Debug("ignoring colliding offer")
		return
	}

	// On a polite peer this implicitly rolls back any offer in progress;
	// that rollback is the engine's behavior, not ours.
	if err := s.engine.SetRemoteDescription(s.ctx, desc); err != nil {
		s.logger.Warn("set remote description failed", "error", err)
		return
	}
	if err := s.candidates.Flush(s.engine); err != nil {
		s.logger.Warn("flush candidates failed", "error", err)
	}

	if !isOffer {
		return
	}

	answer, err := s.engine.CreateAnswer(s.ctx)
	if err != nil {
		s.logger.Warn("create answer failed", "error", err)
		return
	}
	if err := s.engine.SetLocalDescription(s.ctx, answer); err != nil {
		s.logger.Warn("set local answer failed", "error", err)
		return
	}
	env := signaling.NewDescriptionEnvelope(answer)
	if err := s.transport.Send(s.ctx, s.role, s.roomID, env); err != nil {
		s.fail(fmt.Errorf("send answer: %w", err))
	}
}

func (s *Session) handleChatEvent(ev chatEvent) {
	switch ev.kind {
	case chatOpened:
		s.connected.Store(true)
		s.notifyState(true)

	case chatClosed:
		s.connected.Store(false)
		s.notifyState(false)

	case chatMessage:
		msg, err := protocol.Decode(ev.msg.Data)
		if err != nil {
			s.logger.Warn("dropping malformed chat message", "error", err)
			return
		}
		switch msg.Type {
		case protocol.MessageTypeText:
			var text protocol.TextPayload
			if err := msg.DecodePayload(&text); err != nil {
				s.logger.Warn("dropping malformed text payload", "error", err)
				return
			}
			s.appendLog(ChatMessage{
				Timestamp: time.UnixMilli(text.Timestamp),
				Value:     text.Value,
			})

		case protocol.MessageTypeFileNotice:
			var notice protocol.FileNoticePayload
			if err := msg.DecodePayload(&notice); err != nil {
				s.logger.Warn("dropping malformed file notice", "error", err)
				return
			}
			s.appendLog(ChatMessage{
				Timestamp: time.Now(),
				Value:     notice.Filename,
				Notice:    &notice,
			})
			// Announcements must reach the transfer layer; block until it
			// takes the notice or the session closes.
			select {
			case s.notices <- notice:
			case <-s.done:
			}

		default:
			s.logger.Warn("unknown chat message type", "type", msg.Type)
		}
	}
}

func (s *Session) appendLog(msg ChatMessage) {
	s.mu.Lock()
	s.log = append(s.log, msg)
	s.mu.Unlock()

	select {
	case s.messages <- msg:
	default:
	}
}

func (s *Session) notifyState(connected bool) {
	select {
	case s.states <- connected:
	default:
	}
}

func (s *Session) fail(err error) {
	select {
	case s.failures <- err:
	default:
		s.logger.Error("session failure dropped", "error", err)
	}
}

// SendText sends a chat line to the peer and appends it to the local log.
func (s *Session) SendText(value string) error {
	if !s.connected.Load() {
		return ErrChannelNotReady
	}
	now := time.Now()
	data, err := protocol.Encode(protocol.MessageTypeText, protocol.TextPayload{
		Timestamp: now.UnixMilli(),
		Value:     value,
	})
	if err != nil {
		return err
	}
	if err := s.chat.Send(data); err != nil {
		return err
	}
	s.appendLog(ChatMessage{Timestamp: now, Value: value, Outgoing: true})
	return nil
}

// SendFileNotice announces an upcoming file transfer on the chat channel
// and records the announcement in the message log.
func (s *Session) SendFileNotice(notice protocol.FileNoticePayload) error {
	if !s.connected.Load() {
		return ErrChannelNotReady
	}
	data, err := protocol.Encode(protocol.MessageTypeFileNotice, notice)
	if err != nil {
		return err
	}
	if err := s.chat.Send(data); err != nil {
		return err
	}
	s.appendLog(ChatMessage{
		Timestamp: time.Now(),
		Value:     notice.Filename,
		Outgoing:  true,
		Notice:    &notice,
	})
	return nil
}

// CreateTransferChannel opens a pre-negotiated transfer channel with the
// given fixed id.
func (s *Session) CreateTransferChannel(id uint16) (DataChannel, error) {
	return s.engine.CreateDataChannel(protocol.TransferChannelLabel, id)
}

// Role returns the session's fixed signaling role.
func (s *Session) Role() signaling.Role { return s.role }

// RoomID returns the room this session negotiates in.
func (s *Session) RoomID() string { return s.roomID }

// IsConnected reports whether the chat channel is open.
func (s *Session) IsConnected() bool { return s.connected.Load() }

// States notifies chat channel open/close transitions.
func (s *Session) States() <-chan bool { return s.states }

// Messages returns a copy of the monotonically growing message log.
func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.log...)
}

// MessageEvents streams log additions as they happen.
func (s *Session) MessageEvents() <-chan ChatMessage { return s.messages }

// Notices streams incoming file transfer announcements.
func (s *Session) Notices() <-chan protocol.FileNoticePayload { return s.notices }

// Failures surfaces transport-level errors the session cannot absorb.
// Protocol-level problems (malformed envelopes, ignored glare) never
// appear here.
func (s *Session) Failures() <-chan error { return s.failures }

// IgnoredOffers counts offers dropped by glare resolution, for tests and
// diagnostics.
func (s *Session) IgnoredOffers() int64 { return s.ignoredOffers.Load() }

// Close tears the session down: the signaling subscription is released,
// the chat channel and the engine are closed, and no further callbacks are
// delivered. Safe to call multiple times.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
		if s.sub != nil {
			s.sub.Close()
		}
		if s.chat != nil {
			s.chat.Close()
		}
		err = s.engine.Close()
	})
	return err
}
