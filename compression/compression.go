// Package compression wraps zlib for chunk compression.
//
// Compression is applied per chunk and never changes the bytes that end
// up on disk, only the bytes on the wire.
package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compress returns the zlib encoding of data at the default level.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates zlib data. limit bounds the decompressed size;
// limit <= 0 means unbounded.
func Decompress(data []byte, limit int64) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer func() { _ = r.Close() }()

	var src io.Reader = r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	out, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if limit > 0 && int64(len(out)) > limit {
		return nil, fmt.Errorf("decompress: output exceeds %d bytes", limit)
	}
	return out, nil
}
