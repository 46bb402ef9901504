// Package rtc drives WebRTC session negotiation: the perfect-negotiation
// state machine, ICE candidate buffering, and the chat data channel. The
// underlying WebRTC engine is consumed through the Engine interface so the
// negotiation logic stays independent of pion's callback surface.
package rtc

import (
	"context"
	"errors"

	"github.com/spundev/webrtcshare/internal/signaling"
)

// SignalingState mirrors the engine's offer/answer state machine. The
// session never drives these transitions itself; it reacts to what the
// engine reports.
type SignalingState int

const (
	SignalingStateStable SignalingState = iota
	SignalingStateHaveLocalOffer
	SignalingStateHaveRemoteOffer
	SignalingStateClosed
)

func (s SignalingState) String() string {
	switch s {
	case SignalingStateStable:
		return "stable"
	case SignalingStateHaveLocalOffer:
		return "have-local-offer"
	case SignalingStateHaveRemoteOffer:
		return "have-remote-offer"
	default:
		return "closed"
	}
}

// EventKind tags the entries of the engine's event stream.
type EventKind int

const (
	// EventNegotiationNeeded fires when the engine wants a new offer.
	EventNegotiationNeeded EventKind = iota

	// EventICECandidate reports a locally gathered candidate. End-of-
	// gathering markers are filtered out at the adapter boundary and never
	// appear here.
	EventICECandidate

	// EventSignalingChange reports a signaling state transition.
	EventSignalingChange
)

// Event is one entry of the engine's ordered event stream. All engine
// callbacks are funneled into this single stream so one session goroutine
// observes everything in order.
type Event struct {
	Kind      EventKind
	Candidate signaling.Candidate // EventICECandidate
	State     SignalingState      // EventSignalingChange
}

// Engine is the capability surface this package needs from a WebRTC
// implementation.
type Engine interface {
	CreateOffer(ctx context.Context) (signaling.Description, error)
	CreateAnswer(ctx context.Context) (signaling.Description, error)
	SetLocalDescription(ctx context.Context, desc signaling.Description) error
	SetRemoteDescription(ctx context.Context, desc signaling.Description) error
	AddICECandidate(cand signaling.Candidate) error

	HasRemoteDescription() bool
	SignalingState() SignalingState

	// CreateDataChannel opens a pre-negotiated, ordered, reliable channel
	// with a fixed id agreed on by both peers out of band.
	CreateDataChannel(label string, id uint16) (DataChannel, error)

	// Events returns the engine's merged event stream. The channel is
	// closed when the engine shuts down.
	Events() <-chan Event

	Close() error
}

// ChannelState describes a data channel's lifecycle position.
type ChannelState int

const (
	ChannelConnecting ChannelState = iota
	ChannelOpen
	ChannelClosed
)

// ChannelMessage is one received data channel frame.
type ChannelMessage struct {
	Data   []byte
	IsText bool
}

// DataChannel is the ordered/reliable byte channel abstraction the session
// and the file transfer protocol build on.
type DataChannel interface {
	Label() string
	State() ChannelState

	Send(data []byte) error
	SendText(text string) error

	// Backpressure surface for the chunked file sender.
	BufferedAmount() uint64
	SetBufferedAmountLowThreshold(n uint64)
	OnBufferedAmountLow(f func())

	OnOpen(f func())
	OnClose(f func())
	OnMessage(f func(msg ChannelMessage))

	Close() error
}

// ErrChannelNotReady is returned when a send is attempted before the data
// channel reached its open state. Reference implementations sometimes drop
// such sends silently; failing loudly is deliberate.
var ErrChannelNotReady = errors.New("data channel not ready")
