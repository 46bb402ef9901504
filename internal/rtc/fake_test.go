package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/spundev/webrtcshare/internal/signaling"
)

// fakeEngine models the signaling-state behavior of a real peer
// connection, including the implicit rollback a polite peer relies on:
// applying a remote offer from have-local-offer succeeds and lands in
// have-remote-offer.
type fakeEngine struct {
	mu          sync.Mutex
	state       SignalingState
	remoteSet   bool
	added       []signaling.Candidate
	addErr      map[string]error
	localDescs  []signaling.Description
	remoteDescs []signaling.Description
	offerSeq    int
	answerSeq   int
	channels    map[uint16]*fakeChannel

	events    chan Event
	closeOnce sync.Once
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		state:    SignalingStateStable,
		channels: make(map[uint16]*fakeChannel),
		events:   make(chan Event, 64),
	}
}

func (e *fakeEngine) CreateOffer(context.Context) (signaling.Description, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offerSeq++
	return signaling.Description{Type: signaling.TypeOffer, SDP: fmt.Sprintf("offer-%d", e.offerSeq)}, nil
}

func (e *fakeEngine) CreateAnswer(context.Context) (signaling.Description, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != SignalingStateHaveRemoteOffer {
		return signaling.Description{}, fmt.Errorf("create answer in state %v", e.state)
	}
	e.answerSeq++
	return signaling.Description{Type: signaling.TypeAnswer, SDP: fmt.Sprintf("answer-%d", e.answerSeq)}, nil
}

func (e *fakeEngine) SetLocalDescription(_ context.Context, desc signaling.Description) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch desc.Type {
	case signaling.TypeOffer:
		if e.state != SignalingStateStable {
			return fmt.Errorf("local offer in state %v", e.state)
		}
		e.state = SignalingStateHaveLocalOffer
	case signaling.TypeAnswer:
		if e.state != SignalingStateHaveRemoteOffer {
			return fmt.Errorf("local answer in state %v", e.state)
		}
		e.state = SignalingStateStable
	}
	e.localDescs = append(e.localDescs, desc)
	return nil
}

func (e *fakeEngine) SetRemoteDescription(_ context.Context, desc signaling.Description) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch desc.Type {
	case signaling.TypeOffer:
		// Stable or have-local-offer both accept a remote offer; the
		// latter is the implicit rollback.
		if e.state != SignalingStateStable && e.state != SignalingStateHaveLocalOffer {
			return fmt.Errorf("remote offer in state %v", e.state)
		}
		e.state = SignalingStateHaveRemoteOffer
	case signaling.TypeAnswer:
		if e.state != SignalingStateHaveLocalOffer {
			return fmt.Errorf("remote answer in state %v", e.state)
		}
		e.state = SignalingStateStable
	}
	e.remoteSet = true
	e.remoteDescs = append(e.remoteDescs, desc)
	return nil
}

func (e *fakeEngine) AddICECandidate(cand signaling.Candidate) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.addErr[cand.Candidate]; err != nil {
		return err
	}
	e.added = append(e.added, cand)
	return nil
}

func (e *fakeEngine) HasRemoteDescription() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remoteSet
}

func (e *fakeEngine) SignalingState() SignalingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *fakeEngine) CreateDataChannel(label string, id uint16) (DataChannel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := newFakeChannel(label)
	e.channels[id] = ch
	return ch, nil
}

func (e *fakeEngine) Events() <-chan Event { return e.events }

func (e *fakeEngine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.state = SignalingStateClosed
		e.mu.Unlock()
		close(e.events)
	})
	return nil
}

func (e *fakeEngine) addedCandidates() []signaling.Candidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]signaling.Candidate(nil), e.added...)
}

func (e *fakeEngine) localDescriptions() []signaling.Description {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]signaling.Description(nil), e.localDescs...)
}

func (e *fakeEngine) remoteDescriptions() []signaling.Description {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]signaling.Description(nil), e.remoteDescs...)
}

func (e *fakeEngine) channel(id uint16) *fakeChannel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels[id]
}

// fakeChannel is an in-memory data channel whose remote side is the test.
type fakeChannel struct {
	mu        sync.Mutex
	label     string
	state     ChannelState
	sent      [][]byte
	sentTexts []string
	buffered  uint64
	onLow     func()
	onOpen    func()
	onClose   func()
	onMessage func(ChannelMessage)
}

func newFakeChannel(label string) *fakeChannel {
	return &fakeChannel{label: label, state: ChannelConnecting}
}

func (c *fakeChannel) Label() string { return c.label }

func (c *fakeChannel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	if c.state != ChannelOpen {
		c.mu.Unlock()
		return ErrChannelNotReady
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	c.buffered += uint64(len(data))
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) SendText(text string) error {
	c.mu.Lock()
	if c.state != ChannelOpen {
		c.mu.Unlock()
		return ErrChannelNotReady
	}
	c.sentTexts = append(c.sentTexts, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) BufferedAmount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered
}

func (c *fakeChannel) SetBufferedAmountLowThreshold(uint64) {}

func (c *fakeChannel) OnBufferedAmountLow(f func()) {
	c.mu.Lock()
	c.onLow = f
	c.mu.Unlock()
}

func (c *fakeChannel) OnOpen(f func()) {
	c.mu.Lock()
	c.onOpen = f
	c.mu.Unlock()
}

func (c *fakeChannel) OnClose(f func()) {
	c.mu.Lock()
	c.onClose = f
	c.mu.Unlock()
}

func (c *fakeChannel) OnMessage(f func(msg ChannelMessage)) {
	c.mu.Lock()
	c.onMessage = f
	c.mu.Unlock()
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	already := c.state == ChannelClosed
	c.state = ChannelClosed
	f := c.onClose
	c.mu.Unlock()
	if !already && f != nil {
		f()
	}
	return nil
}

// open flips the channel open and fires the callback, as the engine would
// once the transport connects.
func (c *fakeChannel) open() {
	c.mu.Lock()
	c.state = ChannelOpen
	f := c.onOpen
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

// deliver hands an inbound frame to the message callback.
func (c *fakeChannel) deliver(data []byte, isText bool) {
	c.mu.Lock()
	f := c.onMessage
	c.mu.Unlock()
	if f != nil {
		f(ChannelMessage{Data: data, IsText: isText})
	}
}

// drainBuffered simulates the transport flushing n bytes and firing the
// low-buffer callback when the threshold is crossed.
func (c *fakeChannel) drainBuffered(n uint64) {
	c.mu.Lock()
	if n > c.buffered {
		n = c.buffered
	}
	c.buffered -= n
	f := c.onLow
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

func (c *fakeChannel) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeChannel) sentTextFrames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sentTexts...)
}

var _ Engine = (*fakeEngine)(nil)
var _ DataChannel = (*fakeChannel)(nil)
