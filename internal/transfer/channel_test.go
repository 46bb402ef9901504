package transfer

import (
	"sync"

	"github.com/spundev/webrtcshare/internal/rtc"
)

// loopChannel is an in-memory data channel for transfer tests. When paired,
// Send delivers straight into the peer's message callback; when unpaired,
// frames pile up in buffered so backpressure paths can be driven by hand.
type loopChannel struct {
	mu        sync.Mutex
	state     rtc.ChannelState
	peer      *loopChannel
	frames    [][]byte
	texts     []string
	buffered  uint64
	onLow     func()
	onOpen    func()
	onClose   func()
	onMessage func(rtc.ChannelMessage)
}

func newLoopChannel() *loopChannel {
	return &loopChannel{state: rtc.ChannelConnecting}
}

// pairChannels wires two channels together as the two ends of a transfer.
func pairChannels() (*loopChannel, *loopChannel) {
	a, b := newLoopChannel(), newLoopChannel()
	a.peer, b.peer = b, a
	return a, b
}

func (c *loopChannel) Label() string { return "file-transfer" }

func (c *loopChannel) State() rtc.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *loopChannel) Send(data []byte) error {
	c.mu.Lock()
	if c.state != rtc.ChannelOpen {
		c.mu.Unlock()
		return rtc.ErrChannelNotReady
	}
	copied := append([]byte(nil), data...)
	c.frames = append(c.frames, copied)
	peer := c.peer
	if peer == nil {
		c.buffered += uint64(len(data))
	}
	c.mu.Unlock()

	if peer != nil {
		peer.receive(copied, false)
	}
	return nil
}

func (c *loopChannel) SendText(text string) error {
	c.mu.Lock()
	if c.state != rtc.ChannelOpen {
		c.mu.Unlock()
		return rtc.ErrChannelNotReady
	}
	c.texts = append(c.texts, text)
	peer := c.peer
	c.mu.Unlock()

	if peer != nil {
		peer.receive([]byte(text), true)
	}
	return nil
}

func (c *loopChannel) receive(data []byte, isText bool) {
	c.mu.Lock()
	f := c.onMessage
	c.mu.Unlock()
	if f != nil {
		f(rtc.ChannelMessage{Data: data, IsText: isText})
	}
}

func (c *loopChannel) BufferedAmount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered
}

func (c *loopChannel) SetBufferedAmountLowThreshold(uint64) {}

func (c *loopChannel) OnBufferedAmountLow(f func()) {
	c.mu.Lock()
	c.onLow = f
	c.mu.Unlock()
}

func (c *loopChannel) OnOpen(f func()) {
	c.mu.Lock()
	c.onOpen = f
	c.mu.Unlock()
}

func (c *loopChannel) OnClose(f func()) {
	c.mu.Lock()
	c.onClose = f
	c.mu.Unlock()
}

func (c *loopChannel) OnMessage(f func(msg rtc.ChannelMessage)) {
	c.mu.Lock()
	c.onMessage = f
	c.mu.Unlock()
}

func (c *loopChannel) Close() error {
	c.mu.Lock()
	already := c.state == rtc.ChannelClosed
	c.state = rtc.ChannelClosed
	f := c.onClose
	c.mu.Unlock()
	if !already && f != nil {
		f()
	}
	return nil
}

// open marks the channel open and fires its open callback.
func (c *loopChannel) open() {
	c.mu.Lock()
	c.state = rtc.ChannelOpen
	f := c.onOpen
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

// drain flushes n buffered bytes and fires the low-buffer callback.
func (c *loopChannel) drain(n uint64) {
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

func (c *loopChannel) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *loopChannel) sentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

var _ rtc.DataChannel = (*loopChannel)(nil)
