package wire

import (
	"encoding/binary"
	"fmt"
)

// BulkLengthSize is the size of the little-endian metadata length prefix.
const BulkLengthSize = 8

// PackBulk lays out metadata and raw chunk bytes as
//
//	header_len(8, LE) header_bytes(header_len) raw(rest)
//
// so raw bytes never pass through the metadata codec and its ceiling.
func PackBulk(meta, raw []byte) []byte {
	buf := make([]byte, BulkLengthSize+len(meta)+len(raw))
	binary.LittleEndian.PutUint64(buf[:BulkLengthSize], uint64(len(meta)))
	copy(buf[BulkLengthSize:], meta)
	copy(buf[BulkLengthSize+len(meta):], raw)
	return buf
}

// UnpackBulk is the inverse of PackBulk. Both returned slices alias buf.
func UnpackBulk(buf []byte) (meta, raw []byte, err error) {
	if len(buf) < BulkLengthSize {
		return nil, nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  fmt.Sprintf("bulk payload is %d bytes, length prefix needs %d", len(buf), BulkLengthSize),
		}
	}

	headerLen := binary.LittleEndian.Uint64(buf[:BulkLengthSize])
	available := uint64(len(buf) - BulkLengthSize)
	if headerLen > available {
		return nil, nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  fmt.Sprintf("bulk header declares %d bytes, %d available", headerLen, available),
		}
	}

	end := BulkLengthSize + int(headerLen)
	return buf[BulkLengthSize:end], buf[end:], nil
}
