package client

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/tfc/wire"
)

// ApplicationError is a non-empty error_msg reported by the server, or a
// precondition the client refuses to continue past. The message is
// surfaced verbatim.
type ApplicationError struct {
	Op  string
	Msg string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// TransportError is a dial, write or read failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IntegrityError reports a checksum mismatch after a download. The
// destination file is left as is.
type IntegrityError struct {
	Path string
	Want uint64
	Got  uint64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: want %016x, got %016x", e.Path, e.Want, e.Got)
}

// ErrEmptyChunk is wrapped in a *wire.FrameError when the server answers a
// download transfer successfully but with no bytes.
var ErrEmptyChunk = errors.New("empty chunk in successful transfer response")

// ErrEmptyResponse is wrapped in a *wire.FrameError when the server closes
// the connection without answering.
var ErrEmptyResponse = errors.New("connection closed without a response")

func protocolError(msg string, err error) error {
	return &wire.FrameError{Kind: wire.FrameErrorPartial, Msg: msg, Err: err}
}

// Class names the error taxonomy bucket of err: "application",
// "protocol", "transport", "integrity" or "other".
func Class(err error) string {
	var (
		appErr       *ApplicationError
		transportErr *TransportError
		integrityErr *IntegrityError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &integrityErr):
		return "integrity"
	case wire.IsFrameError(err):
		return "protocol"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &appErr):
		return "application"
	default:
		return "other"
	}
}
