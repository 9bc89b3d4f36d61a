// Package wire implements the TFC1 frame codec.
//
// A request frame is laid out as
//
//	signature(4) direction(1) step(1) payload
//
// where payload is msgpack metadata, or for chunk-carrying messages a bulk
// payload (see PackBulk). Responses carry only the payload; the connection
// they arrive on identifies them.
package wire

import (
	"bytes"
	"fmt"

	"github.com/pithecene-io/tfc/types"
)

// Signature identifies the protocol ("TFC1").
var Signature = [4]byte{0x54, 0x46, 0x43, 0x31}

// Frame layout constants.
const (
	// SignatureSize is the size of the magic prefix.
	SignatureSize = 4
	// HeaderSize is signature + direction + step.
	HeaderSize = SignatureSize + 2
)

// Header is the decoded fixed part of a frame.
type Header struct {
	Direction types.Direction
	Step      types.Step
}

// Encode builds a frame from its header fields and payload.
func Encode(dir types.Direction, step types.Step, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	copy(buf, Signature[:])
	buf[SignatureSize] = byte(dir)
	buf[SignatureSize+1] = byte(step)
	copy(buf[HeaderSize:], payload)
	return buf
}

// Decode splits a frame into header and payload.
// The returned payload aliases buf.
//
// Errors (all *FrameError, all fatal):
//   - FrameErrorPartial: fewer than HeaderSize bytes
//   - FrameErrorBadSignature: magic mismatch
//   - FrameErrorUnknownDirection / FrameErrorUnknownStep: unrecognized byte
func Decode(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderSize {
		return Header{}, nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  fmt.Sprintf("frame is %d bytes, header needs %d", len(buf), HeaderSize),
		}
	}

	if !bytes.Equal(buf[:SignatureSize], Signature[:]) {
		return Header{}, nil, &FrameError{
			Kind: FrameErrorBadSignature,
			Msg:  fmt.Sprintf("unexpected signature %x", buf[:SignatureSize]),
		}
	}

	dir := types.Direction(buf[SignatureSize])
	if !dir.Valid() {
		return Header{}, nil, &FrameError{
			Kind: FrameErrorUnknownDirection,
			Msg:  fmt.Sprintf("unknown direction %d", buf[SignatureSize]),
		}
	}

	step, ok := types.ParseStep(buf[SignatureSize+1])
	if !ok {
		return Header{}, nil, &FrameError{
			Kind: FrameErrorUnknownStep,
			Msg:  fmt.Sprintf("unknown step %d", buf[SignatureSize+1]),
		}
	}

	return Header{Direction: dir, Step: step}, buf[HeaderSize:], nil
}

// EncodeMessage marshals v and frames it.
func EncodeMessage(dir types.Direction, step types.Step, v any) ([]byte, error) {
	payload, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return Encode(dir, step, payload), nil
}

// EncodeBulkMessage marshals v as bulk metadata, appends raw, and frames it.
func EncodeBulkMessage(dir types.Direction, step types.Step, v any, raw []byte) ([]byte, error) {
	meta, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return Encode(dir, step, PackBulk(meta, raw)), nil
}
