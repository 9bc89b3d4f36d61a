package wire

import (
	"errors"
	"fmt"
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or undersized frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorBadSignature indicates the first four bytes are not Signature.
	FrameErrorBadSignature
	// FrameErrorUnknownStep indicates an unrecognized step byte.
	FrameErrorUnknownStep
	// FrameErrorUnknownDirection indicates an unrecognized direction byte.
	FrameErrorUnknownDirection
	// FrameErrorTooLarge indicates metadata or a frame exceeding its ceiling.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

func (k FrameErrorKind) String() string {
	switch k {
	case FrameErrorPartial:
		return "partial"
	case FrameErrorBadSignature:
		return "bad_signature"
	case FrameErrorUnknownStep:
		return "unknown_step"
	case FrameErrorUnknownDirection:
		return "unknown_direction"
	case FrameErrorTooLarge:
		return "too_large"
	case FrameErrorDecode:
		return "decode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FrameError is a protocol error. Every kind is fatal for the connection
// and for the logical operation it belongs to.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFrameError reports whether err is (or wraps) a *FrameError.
func IsFrameError(err error) bool {
	var frameErr *FrameError
	return errors.As(err, &frameErr)
}

// KindOf returns the kind of a wrapped *FrameError.
func KindOf(err error) (FrameErrorKind, bool) {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.Kind, true
	}
	return 0, false
}
