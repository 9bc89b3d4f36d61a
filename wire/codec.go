package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxMetadataSize is the ceiling for a single msgpack-encoded record (4 MiB).
// Chunk bytes travel in the bulk tail and are not counted against it.
const MaxMetadataSize = 4 * 1024 * 1024

// Marshal encodes v as msgpack, enforcing MaxMetadataSize.
func Marshal(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("failed to encode %T", v),
			Err:  err,
		}
	}
	if len(b) > MaxMetadataSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("encoded %T is %d bytes, maximum %d", v, len(b), MaxMetadataSize),
		}
	}
	return b, nil
}

// Unmarshal decodes msgpack bytes into v, enforcing MaxMetadataSize.
func Unmarshal(b []byte, v any) error {
	if len(b) > MaxMetadataSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("metadata is %d bytes, maximum %d", len(b), MaxMetadataSize),
		}
	}
	if err := msgpack.Unmarshal(b, v); err != nil {
		return &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("failed to decode %T", v),
			Err:  err,
		}
	}
	return nil
}

// DecodeBulk unpacks a bulk payload and decodes its metadata into v.
// Returns the raw tail.
func DecodeBulk(buf []byte, v any) ([]byte, error) {
	meta, raw, err := UnpackBulk(buf)
	if err != nil {
		return nil, err
	}
	if err := Unmarshal(meta, v); err != nil {
		return nil, err
	}
	return raw, nil
}

// MaxFrameSize bounds a frame whose bulk tail carries at most chunkSize
// bytes before compression. Incompressible input grows slightly under
// zlib, hence the slack.
func MaxFrameSize(chunkSize int) int64 {
	n := int64(chunkSize)
	return HeaderSize + BulkLengthSize + MaxMetadataSize + n + n/64 + 4096
}
