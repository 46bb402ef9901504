package transfer

import (
	"errors"
	"fmt"

	"github.com/spundev/webrtcshare/internal/ui"
)

// Sentinel errors for the transfer protocol. Callers match them with
// errors.Is through the TransferError wrapper.
var (
	ErrPeerDisconnected = errors.New("peer disconnected")
	ErrTimeout          = errors.New("timed out waiting for peer")
	ErrChannelClosed    = errors.New("transfer channel closed")
	ErrChannelNotOpen   = errors.New("transfer channel not open")
	ErrBufferTimeout    = errors.New("send buffer stopped draining")
	ErrInvalidFile      = errors.New("file cannot be sent")
	ErrHashMismatch     = errors.New("received bytes do not match announced hash")
	ErrOversizedChunk   = errors.New("received more bytes than announced")
	ErrTransferStalled  = errors.New("no transfer progress")
)

// TransferError annotates a sentinel with the operation that failed and,
// when known, the file involved.
type TransferError struct {
	Op      string
	File    string
	Err     error
	Details string
}

func (e *TransferError) Error() string {
	switch {
	case e.File != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Err)
	case e.Details != "":
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *TransferError) Unwrap() error { return e.Err }

// Print renders the error through the shared terminal styles.
func (e *TransferError) Print() { ui.PrintError(e.Error()) }

func NewError(op string, err error) *TransferError {
	return &TransferError{Op: op, Err: err}
}

func NewFileError(op, file string, err error) *TransferError {
	return &TransferError{Op: op, File: file, Err: err}
}

func WrapError(op string, err error, details string) *TransferError {
	return &TransferError{Op: op, Err: err, Details: details}
}
