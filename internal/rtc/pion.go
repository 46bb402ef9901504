package rtc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/spundev/webrtcshare/internal/signaling"
)

// PionEngine adapts a pion peer connection to the Engine interface.
//
// Pion fires its callbacks on internal goroutines; the adapter forwards
// them into a buffered event channel so the session loop observes them in
// order without holding pion locks.
type PionEngine struct {
	pc     *webrtc.PeerConnection
	events chan Event
	logger *slog.Logger

	closeOnce sync.Once
}

// PionConfig carries the few knobs a session exposes for the underlying
// peer connection.
type PionConfig struct {
	// STUNServers lists stun: URLs for server-reflexive candidates.
	// Empty means host candidates only, which is fine for LAN use.
	STUNServers []string
}

// NewPionEngine builds a peer connection and installs the event bridge.
func NewPionEngine(cfg PionConfig, logger *slog.Logger) (*PionEngine, error) {
	var rtcCfg webrtc.Configuration
	if len(cfg.STUNServers) > 0 {
		rtcCfg.ICEServers = []webrtc.ICEServer{{URLs: cfg.STUNServers}}
	}

	pc, err := webrtc.NewPeerConnection(rtcCfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	e := &PionEngine{
		pc:     pc,
		events: make(chan Event, 64),
		logger: logger,
	}

	pc.OnNegotiationNeeded(func() {
		e.push(Event{Kind: EventNegotiationNeeded})
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			// End-of-gathering marker; peers learn completion from the
			// description, not from an explicit null candidate.
			return
		}
		init := c.ToJSON()
		cand := signaling.Candidate{Candidate: init.Candidate}
		if init.SDPMid != nil {
			cand.SDPMid = *init.SDPMid
		}
		if init.SDPMLineIndex != nil {
			cand.SDPMLineIndex = int(*init.SDPMLineIndex)
		}
		e.push(Event{Kind: EventICECandidate, Candidate: cand})
	})

	pc.OnSignalingStateChange(func(state webrtc.SignalingState) {
		e.push(Event{Kind: EventSignalingChange, State: fromPionSignalingState(state)})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		e.logger.Debug("connection state changed", "state", state.String())
	})

	return e, nil
}

func (e *PionEngine) push(ev Event) {
	select {
	case e.events <- ev:
	default:
		// The session loop has stalled badly; dropping beats deadlocking
		// pion's signaling goroutine.
		e.logger.Warn("engine event dropped", "kind", ev.Kind)
	}
}

func (e *PionEngine) CreateOffer(ctx context.Context) (signaling.Description, error) {
	offer, err := e.pc.CreateOffer(nil)
	if err != nil {
		return signaling.Description{}, fmt.Errorf("create offer: %w", err)
	}
	return fromPionDescription(offer), nil
}

func (e *PionEngine) CreateAnswer(ctx context.Context) (signaling.Description, error) {
	answer, err := e.pc.CreateAnswer(nil)
	if err != nil {
		return signaling.Description{}, fmt.Errorf("create answer: %w", err)
	}
	return fromPionDescription(answer), nil
}

func (e *PionEngine) SetLocalDescription(ctx context.Context, desc signaling.Description) error {
	if err := e.pc.SetLocalDescription(toPionDescription(desc)); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	return nil
}

func (e *PionEngine) SetRemoteDescription(ctx context.Context, desc signaling.Description) error {
	if err := e.pc.SetRemoteDescription(toPionDescription(desc)); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (e *PionEngine) AddICECandidate(cand signaling.Candidate) error {
	mid := cand.SDPMid
	mLine := uint16(cand.SDPMLineIndex)
	init := webrtc.ICECandidateInit{
		Candidate:     cand.Candidate,
		SDPMid:        &mid,
		SDPMLineIndex: &mLine,
	}
	if err := e.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}
	return nil
}

func (e *PionEngine) HasRemoteDescription() bool {
	return e.pc.RemoteDescription() != nil
}

func (e *PionEngine) SignalingState() SignalingState {
	return fromPionSignalingState(e.pc.SignalingState())
}

func (e *PionEngine) CreateDataChannel(label string, id uint16) (DataChannel, error) {
	negotiated := true
	channelID := id
	dc, err := e.pc.CreateDataChannel(label, &webrtc.DataChannelInit{
		Negotiated: &negotiated,
		ID:         &channelID,
	})
	if err != nil {
		return nil, fmt.Errorf("create data channel %q: %w", label, err)
	}
	return &pionChannel{dc: dc}, nil
}

func (e *PionEngine) Events() <-chan Event { return e.events }

func (e *PionEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = e.pc.Close()
		close(e.events)
	})
	return err
}

func fromPionDescription(d webrtc.SessionDescription) signaling.Description {
	t := signaling.TypeOffer
	if d.Type == webrtc.SDPTypeAnswer {
		t = signaling.TypeAnswer
	}
	return signaling.Description{Type: t, SDP: d.SDP}
}

func toPionDescription(d signaling.Description) webrtc.SessionDescription {
	t := webrtc.SDPTypeOffer
	if d.Type == signaling.TypeAnswer {
		t = webrtc.SDPTypeAnswer
	}
	return webrtc.SessionDescription{Type: t, SDP: d.SDP}
}

func fromPionSignalingState(s webrtc.SignalingState) SignalingState {
	switch s {
	case webrtc.SignalingStateStable:
		return SignalingStateStable
	case webrtc.SignalingStateHaveLocalOffer, webrtc.SignalingStateHaveLocalPranswer:
		return SignalingStateHaveLocalOffer
	case webrtc.SignalingStateHaveRemoteOffer, webrtc.SignalingStateHaveRemotePranswer:
		return SignalingStateHaveRemoteOffer
	default:
		return SignalingStateClosed
	}
}

// pionChannel wraps a pion data channel behind the DataChannel interface.
type pionChannel struct {
	dc *webrtc.DataChannel
}

func (c *pionChannel) Label() string { return c.dc.Label() }

func (c *pionChannel) State() ChannelState {
	switch c.dc.ReadyState() {
	case webrtc.DataChannelStateConnecting:
		return ChannelConnecting
	case webrtc.DataChannelStateOpen:
		return ChannelOpen
	default:
		return ChannelClosed
	}
}

func (c *pionChannel) Send(data []byte) error {
	if c.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotReady
	}
	return c.dc.Send(data)
}

func (c *pionChannel) SendText(text string) error {
	if c.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotReady
	}
	return c.dc.SendText(text)
}

func (c *pionChannel) BufferedAmount() uint64 {
	return c.dc.BufferedAmount()
}

func (c *pionChannel) SetBufferedAmountLowThreshold(n uint64) {
	c.dc.SetBufferedAmountLowThreshold(n)
}

func (c *pionChannel) OnBufferedAmountLow(f func()) {
	c.dc.OnBufferedAmountLow(f)
}

func (c *pionChannel) OnOpen(f func()) { c.dc.OnOpen(f) }

func (c *pionChannel) OnClose(f func()) { c.dc.OnClose(f) }

func (c *pionChannel) OnMessage(f func(msg ChannelMessage)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		f(ChannelMessage{Data: msg.Data, IsText: msg.IsString})
	})
}

func (c *pionChannel) Close() error { return c.dc.Close() }
