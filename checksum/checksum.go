// Package checksum computes whole-file CRC-64/NVME checksums.
//
// Client and server must agree on the algorithm; it is not negotiated on
// the wire.
package checksum

import (
	"fmt"
	"hash"
	"hash/crc64"
	"io"
	"os"

	"github.com/pithecene-io/tfc/iox"
)

// nvmePoly is the reflected CRC-64/NVME polynomial (0xAD93D23594C93659).
const nvmePoly = 0x9A6C9329AC4BC9B5

var nvmeTable = crc64.MakeTable(nvmePoly)

// New returns a streaming CRC-64/NVME hash.
func New() hash.Hash64 {
	return crc64.New(nvmeTable)
}

// Bytes returns the checksum of b.
func Bytes(b []byte) uint64 {
	return crc64.Checksum(b, nvmeTable)
}

// Reader returns the checksum of everything read from r.
func Reader(r io.Reader) (uint64, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// File returns the checksum of the file at path.
func File(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer iox.DiscardClose(f)

	sum, err := Reader(f)
	if err != nil {
		return 0, fmt.Errorf("checksum %s: %w", path, err)
	}
	return sum, nil
}
