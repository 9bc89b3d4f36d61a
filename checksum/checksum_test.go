package checksum

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBytes_CheckValue(t *testing.T) {
	// Standard check value for CRC-64/NVME over "123456789".
	const want = 0xAE8B14860A799888
	if got := Bytes([]byte("123456789")); got != want {
		t.Errorf("Bytes(123456789) = %#x, want %#x", got, uint64(want))
	}
}

func TestBytes_Empty(t *testing.T) {
	if got := Bytes(nil); got != 0 {
		t.Errorf("Bytes(nil) = %#x, want 0", got)
	}
}

func TestReader_MatchesBytes(t *testing.T) {
	data := strings.Repeat("resumable ", 10000)
	got, err := Reader(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	if want := Bytes([]byte(data)); got != want {
		t.Errorf("Reader = %#x, Bytes = %#x", got, want)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := File(path)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if got != Bytes([]byte("123456789")) {
		t.Errorf("File = %#x, want %#x", got, Bytes([]byte("123456789")))
	}
}

func TestFile_Missing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
