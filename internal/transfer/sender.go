package transfer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spundev/webrtcshare/internal/protocol"
	"github.com/spundev/webrtcshare/internal/rtc"
)

// Sender drives one outgoing file over a dedicated transfer channel.
//
// It waits for the receiver's ready signal before the first chunk: the
// channel's open event can fire before the remote side is able to accept
// binary frames, so readiness is confirmed explicitly in-band.
type Sender struct {
	channel      rtc.DataChannel
	chunkSize    int
	stallTimeout time.Duration
	logger       *slog.Logger

	buffer []byte

	readyOnce sync.Once
	ready     chan struct{}
	closed    chan struct{}
	lowBuffer chan struct{}
}

// NewSender binds a sender to an already created transfer channel. The
// channel's callbacks are claimed here; nothing else may install them.
func NewSender(channel rtc.DataChannel, chunkSize int, stallTimeout time.Duration, logger *slog.Logger) *Sender {
	if chunkSize <= 0 {
		chunkSize = protocol.DefaultChunkSize
	}
	if chunkSize > protocol.MaxChunkSize {
		chunkSize = protocol.MaxChunkSize
	}

	s := &Sender{
		channel:      channel,
		chunkSize:    chunkSize,
		stallTimeout: stallTimeout,
		logger:       logger,
		buffer:       make([]byte, chunkSize),
		ready:        make(chan struct{}),
		closed:       make(chan struct{}),
		lowBuffer:    make(chan struct{}, 1),
	}

	channel.SetBufferedAmountLowThreshold(uint64(protocol.LowWaterMultiple * chunkSize))
	channel.OnBufferedAmountLow(func() {
		select {
		case s.lowBuffer <- struct{}{}:
		default:
		}
	})
	channel.OnOpen(func() {
		if err := channel.SendText(protocol.SenderReady); err != nil {
			s.logger.Warn("send ready signal failed", "error", err)
		}
	})
	channel.OnClose(func() { close(s.closed) })
	channel.OnMessage(func(msg rtc.ChannelMessage) {
		if msg.IsText && string(msg.Data) == protocol.ReceiverReady {
			s.readyOnce.Do(func() { close(s.ready) })
		}
	})

	return s
}

// highWaterMark is the buffered-amount ceiling above which sending pauses.
func (s *Sender) highWaterMark() uint64 {
	return uint64(protocol.HighWaterMultiple * s.chunkSize)
}

// Send streams file through the channel in fixed-size chunks, reporting
// cumulative bytes via onProgress after each accepted chunk. It returns
// once the channel's send buffer has drained.
func (s *Sender) Send(ctx context.Context, file io.Reader, onProgress func(uint64)) error {
	if err := s.awaitReceiver(ctx); err != nil {
		return err
	}

	var sent uint64
	for {
		select {
		case <-s.closed:
			return NewError("send", ErrChannelClosed)
		case <-ctx.Done():
			return NewError("send", ctx.Err())
		default:
		}

		if err := s.waitForWindow(ctx); err != nil {
			return err
		}

		n, err := file.Read(s.buffer)
		if n > 0 {
			if sendErr := s.channel.Send(s.buffer[:n]); sendErr != nil {
				return NewError("send", sendErr)
			}
			sent += uint64(n)
			if onProgress != nil {
				onProgress(sent)
			}
		}
		if err == io.EOF {
			return s.waitForDrain(ctx)
		}
		if err != nil {
			return NewError("read", err)
		}
	}
}

func (s *Sender) awaitReceiver(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.closed:
		return NewError("handshake", ErrChannelClosed)
	case <-ctx.Done():
		return NewError("handshake", ctx.Err())
	case <-time.After(s.stallTimeout):
		return WrapError("handshake", ErrTimeout, "receiver never signalled ready")
	}
}

// waitForWindow blocks while the channel holds more than the high water
// mark. A timeout only aborts when the buffer made no progress at all;
// a slow but draining link keeps going.
func (s *Sender) waitForWindow(ctx context.Context) error {
	for {
		buffered := s.channel.BufferedAmount()
		if buffered < s.highWaterMark() {
			return nil
		}

		select {
		case <-s.lowBuffer:
		case <-s.closed:
			return NewError("send", ErrChannelClosed)
		case <-ctx.Done():
			return NewError("send", ctx.Err())
		case <-time.After(s.stallTimeout):
			if s.channel.BufferedAmount() < buffered {
				continue
			}
			return WrapError("send", ErrBufferTimeout, "buffer not draining")
		}
	}
}

// waitForDrain lets the final chunks flush before the channel is closed.
func (s *Sender) waitForDrain(ctx context.Context) error {
	start := time.Now()
	for s.channel.BufferedAmount() > 0 {
		if time.Since(start) > s.stallTimeout {
			return WrapError("drain", ErrBufferTimeout, "buffer not draining")
		}
		select {
		case <-s.closed:
			return nil
		case <-ctx.Done():
			return NewError("drain", ctx.Err())
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

// Close closes the underlying transfer channel.
func (s *Sender) Close() error {
	return s.channel.Close()
}
