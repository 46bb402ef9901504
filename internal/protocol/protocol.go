// Package protocol defines the messages carried over the peer-to-peer data
// channels: the chat envelope and the file transfer control records.
package protocol

import "github.com/vmihailenco/msgpack/v5"

// Pre-negotiated data channel identifiers. Both peers construct channels
// with these fixed ids instead of waiting for an in-band announcement.
const (
	ChatChannelLabel = "chat"
	ChatChannelID    uint16 = 0

	TransferChannelLabel = "file-transfer"

	// One transfer channel per sending direction.
	InitiatorTransferChannelID uint16 = 5
	ResponderTransferChannelID uint16 = 6
)

// Chunking and flow control parameters.
const (
	// DefaultChunkSize is the per-message payload size for file chunks.
	DefaultChunkSize = 16 * 1024

	// MaxChunkSize is a hard ceiling. Messages above it are not safe across
	// all peer implementations; never exceed it.
	MaxChunkSize = 256 * 1024

	// HighWaterMultiple scales the chunk size into the buffered-amount
	// threshold above which the sender pauses.
	HighWaterMultiple = 8

	// LowWaterMultiple scales the chunk size into the buffered-amount-low
	// threshold at which the sender resumes.
	LowWaterMultiple = 2
)

// Ready handshake literals exchanged on a transfer channel before any
// binary chunk flows. The channel's open event can fire before the remote
// end is able to receive binary frames; the sender must not start until it
// has seen ReceiverReady.
const (
	SenderReady   = "Sender ready"
	ReceiverReady = "Receiver ready"
)

// Chat message type constants.
const (
	MessageTypeText       = "text"
	MessageTypeFileNotice = "file_notice"
)

// Message is the envelope for every chat channel record.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// TextPayload is a plain chat line.
type TextPayload struct {
	Timestamp int64  `msgpack:"timestamp"`
	Value     string `msgpack:"value"`
}

// FileNoticePayload announces an incoming file transfer. Size must equal
// the total bytes the sender will push; the receiver finalizes exactly when
// that many bytes have accumulated.
type FileNoticePayload struct {
	Filename          string `msgpack:"filename"`
	Size              uint64 `msgpack:"size"`
	Hash              string `msgpack:"hash"`
	TransferChannelID uint16 `msgpack:"transferChannelId"`
}

// NewMessage creates a Message with the given type and payload.
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: b}, nil
}

// Encode builds and serializes a message in one step.
func Encode(t string, payload any) ([]byte, error) {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(msg)
}

// Decode parses a chat channel record.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// DecodePayload decodes the message payload into the provided struct.
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}
