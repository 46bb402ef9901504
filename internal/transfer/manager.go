// Package transfer moves files between peers over dedicated data channels
// with explicit backpressure and content verification.
package transfer

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spundev/webrtcshare/internal/files"
	"github.com/spundev/webrtcshare/internal/protocol"
	"github.com/spundev/webrtcshare/internal/rtc"
	"github.com/spundev/webrtcshare/internal/signaling"
)

// Sink stores a completed incoming file and returns where it ended up.
type Sink interface {
	Save(filename string, data []byte) (string, error)
}

// DirSink writes incoming files into a directory, never overwriting.
type DirSink struct {
	Dir string
}

func (s DirSink) Save(filename string, data []byte) (string, error) {
	return files.WriteUnique(s.Dir, filename, data)
}

// EventKind classifies transfer progress events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventCompleted
	EventFailed
)

// Event reports the progress of one transfer in either direction.
type Event struct {
	Kind        EventKind
	Incoming    bool
	Filename    string
	Transferred uint64
	Total       uint64
	Path        string // destination path, EventCompleted on the receive side
	Err         error  // EventFailed only
}

// Options configures a transfer manager.
type Options struct {
	ChunkSize    int
	StallTimeout time.Duration
	Sink         Sink
}

// DefaultStallTimeout bounds how long either side waits without progress
// before declaring the transfer dead.
const DefaultStallTimeout = 30 * time.Second

// Manager binds file transfers to a negotiated session: it answers
// incoming announcements and originates outgoing ones.
type Manager struct {
	session      *rtc.Session
	chunkSize    int
	stallTimeout time.Duration
	sink         Sink
	logger       *slog.Logger
	events       chan Event
}

func NewManager(session *rtc.Session, opts Options, logger *slog.Logger) *Manager {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = protocol.DefaultChunkSize
	}
	if opts.ChunkSize > protocol.MaxChunkSize {
		opts.ChunkSize = protocol.MaxChunkSize
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = DefaultStallTimeout
	}
	return &Manager{
		session:      session,
		chunkSize:    opts.ChunkSize,
		stallTimeout: opts.StallTimeout,
		sink:         opts.Sink,
		logger:       logger,
		events:       make(chan Event, 16),
	}
}

// Events streams transfer lifecycle notifications for the UI.
func (m *Manager) Events() <-chan Event { return m.events }

// Run consumes the session's file announcements until ctx is cancelled.
// Each incoming transfer runs on its own goroutine; channels are per
// transfer, so concurrent receives do not interfere.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case notice := <-m.session.Notices():
			go m.receive(ctx, notice)
		case <-ctx.Done():
			return
		}
	}
}

// sendChannelID picks the transfer channel for this side's outgoing
// direction. Each direction has its own fixed pre-negotiated id so
// simultaneous transfers in both directions cannot collide.
func (m *Manager) sendChannelID() uint16 {
	if m.session.Role() == signaling.RoleInitiator {
		return protocol.InitiatorTransferChannelID
	}
	return protocol.ResponderTransferChannelID
}

// SendFile validates, hashes, announces, and streams one file to the peer.
func (m *Manager) SendFile(ctx context.Context, path string) error {
	info, err := files.ValidateFile(path)
	if err != nil {
		m.fail(Event{Filename: path}, NewFileError("send", path, ErrInvalidFile))
		return NewFileError("send", path, err)
	}

	hash, err := HashFile(info.Path)
	if err != nil {
		return err
	}

	channel, err := m.session.CreateTransferChannel(m.sendChannelID())
	if err != nil {
		return NewFileError("send", info.Name, err)
	}
	sender := NewSender(channel, m.chunkSize, m.stallTimeout, m.logger)
	defer sender.Close()

	notice := protocol.FileNoticePayload{
		Filename:          info.Name,
		Size:              uint64(info.Size),
		Hash:              hash,
		TransferChannelID: m.sendChannelID(),
	}
	if err := m.session.SendFileNotice(notice); err != nil {
		return NewFileError("send", info.Name, err)
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return NewFileError("send", info.Name, err)
	}
	defer f.Close()

	ev := Event{Filename: info.Name, Total: notice.Size}
	m.emit(Event{Kind: EventStarted, Filename: ev.Filename, Total: ev.Total})

	err = sender.Send(ctx, f, func(sent uint64) {
		m.emit(Event{
			Kind:        EventProgress,
			Filename:    ev.Filename,
			Transferred: sent,
			Total:       ev.Total,
		})
	})
	if err != nil {
		m.fail(ev, err)
		return err
	}

	m.emit(Event{Kind: EventCompleted, Filename: ev.Filename, Transferred: ev.Total, Total: ev.Total})
	m.logger.Info("file sent", "filename", ev.Filename, "bytes", ev.Total)
	return nil
}

func (m *Manager) receive(ctx context.Context, notice protocol.FileNoticePayload) {
	ev := Event{Incoming: true, Filename: notice.Filename, Total: notice.Size}

	channel, err := m.session.CreateTransferChannel(notice.TransferChannelID)
	if err != nil {
		m.fail(ev, NewFileError("receive", notice.Filename, err))
		return
	}
	receiver := NewReceiver(channel, notice, m.stallTimeout, m.logger)
	defer receiver.Close()

	m.emit(Event{Kind: EventStarted, Incoming: true, Filename: ev.Filename, Total: ev.Total})

	data, err := receiver.Receive(ctx, func(got uint64) {
		m.emit(Event{
			Kind:        EventProgress,
			Incoming:    true,
			Filename:    ev.Filename,
			Transferred: got,
			Total:       ev.Total,
		})
	})
	if err != nil {
		m.fail(ev, err)
		return
	}

	path, err := m.sink.Save(notice.Filename, data)
	if err != nil {
		m.fail(ev, NewFileError("save", notice.Filename, err))
		return
	}

	m.emit(Event{
		Kind:        EventCompleted,
		Incoming:    true,
		Filename:    ev.Filename,
		Transferred: ev.Total,
		Total:       ev.Total,
		Path:        path,
	})
	m.logger.Info("file received", "filename", ev.Filename, "bytes", ev.Total, "path", path)
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		// Progress events are advisory; an unread UI must not stall the
		// transfer itself.
	}
}

func (m *Manager) fail(ev Event, err error) {
	m.logger.Warn("transfer failed", "filename", ev.Filename, "error", err)
	m.emit(Event{Kind: EventFailed, Incoming: ev.Incoming, Filename: ev.Filename, Total: ev.Total, Err: err})
}
