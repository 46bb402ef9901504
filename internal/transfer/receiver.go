package transfer

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/spundev/webrtcshare/internal/protocol"
	"github.com/spundev/webrtcshare/internal/rtc"
)

// Receiver accumulates one announced file from a transfer channel.
//
// Chunks arrive as raw binary frames in order; the transfer is complete
// exactly when the accumulated length equals the announced size. The
// sender's ready text frame is consumed and ignored.
type Receiver struct {
	channel      rtc.DataChannel
	notice       protocol.FileNoticePayload
	stallTimeout time.Duration
	logger       *slog.Logger

	chunks chan []byte
	closed chan struct{}
}

// NewReceiver binds a receiver to a freshly created transfer channel for
// the given announcement. The channel's callbacks are claimed here.
func NewReceiver(channel rtc.DataChannel, notice protocol.FileNoticePayload, stallTimeout time.Duration, logger *slog.Logger) *Receiver {
	r := &Receiver{
		channel:      channel,
		notice:       notice,
		stallTimeout: stallTimeout,
		logger:       logger,
		chunks:       make(chan []byte, 32),
		closed:       make(chan struct{}),
	}

	channel.OnOpen(func() {
		if err := channel.SendText(protocol.ReceiverReady); err != nil {
			r.logger.Warn("send ready signal failed", "error", err)
		}
	})
	channel.OnClose(func() { close(r.closed) })
	channel.OnMessage(func(msg rtc.ChannelMessage) {
		if msg.IsText {
			return
		}
		// The callback's slice may be reused by the engine.
		chunk := append([]byte(nil), msg.Data...)
		select {
		case r.chunks <- chunk:
		case <-r.closed:
		}
	})

	return r
}

// Receive blocks until the whole announced payload has arrived, verifies
// its hash when the announcement carries one, and returns the assembled
// bytes. Progress is reported as cumulative bytes received.
func (r *Receiver) Receive(ctx context.Context, onProgress func(uint64)) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, r.notice.Size))

	stall := time.NewTimer(r.stallTimeout)
	defer stall.Stop()

	for uint64(buf.Len()) < r.notice.Size {
		select {
		case chunk := <-r.chunks:
			if uint64(buf.Len())+uint64(len(chunk)) > r.notice.Size {
				return nil, NewFileError("receive", r.notice.Filename, ErrOversizedChunk)
			}
			buf.Write(chunk)
			if onProgress != nil {
				onProgress(uint64(buf.Len()))
			}
			if !stall.Stop() {
				<-stall.C
			}
			stall.Reset(r.stallTimeout)

		case <-r.closed:
			return nil, NewFileError("receive", r.notice.Filename, ErrChannelClosed)

		case <-ctx.Done():
			return nil, NewFileError("receive", r.notice.Filename, ctx.Err())

		case <-stall.C:
			return nil, &TransferError{
				Op:      "receive",
				File:    r.notice.Filename,
				Err:     ErrTransferStalled,
				Details: "no data within " + r.stallTimeout.String(),
			}
		}
	}

	data := buf.Bytes()
	if r.notice.Hash != "" && HashBytes(data) != r.notice.Hash {
		return nil, NewFileError("receive", r.notice.Filename, ErrHashMismatch)
	}
	return data, nil
}

// Close closes the underlying transfer channel.
func (r *Receiver) Close() error {
	return r.channel.Close()
}
