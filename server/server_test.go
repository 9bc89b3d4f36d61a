package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/tfc/adapter"
	"github.com/pithecene-io/tfc/adapter/webhook"
	"github.com/pithecene-io/tfc/checksum"
	"github.com/pithecene-io/tfc/compression"
	"github.com/pithecene-io/tfc/iox"
	"github.com/pithecene-io/tfc/journal"
	"github.com/pithecene-io/tfc/log"
	"github.com/pithecene-io/tfc/metrics"
	"github.com/pithecene-io/tfc/types"
	"github.com/pithecene-io/tfc/wire"
)

type harness struct {
	addr    string
	root    string
	metrics *metrics.Collector
}

func start(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	cfg := Config{
		Root:      t.TempDir(),
		Metrics:   metrics.NewCollector("server"),
		IOTimeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	return &harness{addr: ln.Addr().String(), root: srv.Root(), metrics: cfg.Metrics}
}

// exchange sends one raw frame and returns everything the server wrote.
func exchange(t *testing.T, addr string, frame []byte) []byte {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(iox.CloseFunc(conn))
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, _ = conn.Write(frame)
	_ = conn.(*net.TCPConn).CloseWrite()
	resp, _ := io.ReadAll(conn)
	return resp
}

func request(t *testing.T, addr string, dir types.Direction, step types.Step, v, out any) {
	t.Helper()
	frame, err := wire.EncodeMessage(dir, step, v)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	resp := exchange(t, addr, frame)
	if err := wire.Unmarshal(resp, out); err != nil {
		t.Fatalf("Unmarshal response %x: %v", resp, err)
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	srv, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if srv.cfg.MaxChunkSize != types.DefaultChunkSize {
		t.Errorf("MaxChunkSize = %d, want %d", srv.cfg.MaxChunkSize, types.DefaultChunkSize)
	}
	if srv.MaxRequestSize() <= int64(wire.MaxMetadataSize+types.DefaultChunkSize) {
		t.Errorf("MaxRequestSize = %d, too small", srv.MaxRequestSize())
	}
	if _, err := New(Config{MaxChunkSize: -1}); err == nil {
		t.Error("expected error for negative max chunk size")
	}
	if _, err := New(Config{MaxChunkSize: int(math.MaxUint32) + 1}); err == nil {
		t.Error("expected error for max chunk size above 4 GiB")
	}
}

func TestMalformedFrames_NoResponse(t *testing.T) {
	h := start(t, nil)

	valid := wire.Encode(types.DirectionDelete, types.StepInitialise, nil)
	badDirection := bytes.Clone(valid)
	badDirection[4] = 7
	badStep := bytes.Clone(valid)
	badStep[5] = 5

	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"short", []byte("TFC")},
		{"bad signature", append([]byte("XFC1"), 0, 0)},
		{"unknown direction", badDirection},
		{"unknown step", badStep},
		{"undecodable payload", append(bytes.Clone(valid), 0xc1)},
		{"truncated bulk", wire.Encode(types.DirectionUpload, types.StepTransfer, []byte{1, 2, 3})},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := exchange(t, h.addr, tt.frame); len(resp) != 0 {
				t.Errorf("response = %x, want none", resp)
			}
			if got := h.metrics.Snapshot().ProtocolErrors; got != int64(i+1) {
				t.Errorf("ProtocolErrors = %d, want %d", got, i+1)
			}
		})
	}
}

func TestUnsupportedStep(t *testing.T) {
	h := start(t, nil)

	for _, r := range []route{
		{types.DirectionDownload, types.StepEnd},
		{types.DirectionDelete, types.StepTransfer},
		{types.DirectionDelete, types.StepEnd},
	} {
		var resp types.ErrorResponse
		request(t, h.addr, r.dir, r.step, &types.DeleteRequest{RemotePath: "x"}, &resp)
		if resp.ErrorMsg != msgUnsupportedStep {
			t.Errorf("%s/%s: ErrorMsg = %q, want %q", r.dir, r.step, resp.ErrorMsg, msgUnsupportedStep)
		}
	}
}

func TestDownloadInit(t *testing.T) {
	h := start(t, nil)
	data := []byte("0123456789")
	writeFile(t, filepath.Join(h.root, "d", "f.txt"), data)
	mtime := time.Unix(1_650_000_000, 0)
	if err := os.Chtimes(filepath.Join(h.root, "d", "f.txt"), mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(h.root, "adir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var ok types.DownloadInitResponse
	request(t, h.addr, types.DirectionDownload, types.StepInitialise, &types.DownloadInitRequest{RemotePath: "/d/f.txt"}, &ok)
	if ok.ErrorMsg != "" {
		t.Fatalf("ErrorMsg = %q", ok.ErrorMsg)
	}
	if ok.FileLen != 10 || ok.Mtime != mtime.Unix() || ok.Checksum != checksum.Bytes(data) {
		t.Errorf("response = %+v", ok)
	}

	tests := []struct {
		path string
		want string
	}{
		{"missing.txt", "file not found: missing.txt"},
		{"adir", "not a regular file: adir"},
		{"../x", "invalid path: ../x"},
	}
	for _, tt := range tests {
		var resp types.DownloadInitResponse
		request(t, h.addr, types.DirectionDownload, types.StepInitialise, &types.DownloadInitRequest{RemotePath: tt.path}, &resp)
		if resp.ErrorMsg != tt.want {
			t.Errorf("%s: ErrorMsg = %q, want %q", tt.path, resp.ErrorMsg, tt.want)
		}
	}
}

func TestDownloadTransfer(t *testing.T) {
	h := start(t, func(cfg *Config) { cfg.MaxChunkSize = 4 })
	data := []byte("abcdefghij")
	writeFile(t, filepath.Join(h.root, "f"), data)

	transfer := func(req *types.DownloadTransferRequest) (types.DownloadTransferResponse, []byte) {
		t.Helper()
		frame, err := wire.EncodeMessage(types.DirectionDownload, types.StepTransfer, req)
		if err != nil {
			t.Fatalf("EncodeMessage: %v", err)
		}
		var meta types.DownloadTransferResponse
		raw, err := wire.DecodeBulk(exchange(t, h.addr, frame), &meta)
		if err != nil {
			t.Fatalf("DecodeBulk: %v", err)
		}
		return meta, raw
	}

	// Requested chunk larger than the server cap.
	meta, raw := transfer(&types.DownloadTransferRequest{RemotePath: "f", FromByte: 2, ChunkSize: 100})
	if meta.ErrorMsg != "" || string(raw) != "cdef" {
		t.Errorf("capped chunk = %q, %q; want %q", meta.ErrorMsg, raw, "cdef")
	}

	meta, raw = transfer(&types.DownloadTransferRequest{RemotePath: "f", FromByte: 8, ChunkSize: 4, Compress: true})
	if meta.ErrorMsg != "" {
		t.Fatalf("ErrorMsg = %q", meta.ErrorMsg)
	}
	plain, err := compression.Decompress(raw, 0)
	if err != nil || string(plain) != "ij" {
		t.Errorf("compressed tail = %q, %v; want %q", plain, err, "ij")
	}

	meta, raw = transfer(&types.DownloadTransferRequest{RemotePath: "f", FromByte: 10, ChunkSize: 4})
	if meta.ErrorMsg != msgNoMoreData || len(raw) != 0 {
		t.Errorf("past end = %q, %q; want %q", meta.ErrorMsg, raw, msgNoMoreData)
	}

	meta, _ = transfer(&types.DownloadTransferRequest{RemotePath: "missing", ChunkSize: 4})
	if meta.ErrorMsg != "file not found: missing" {
		t.Errorf("missing = %q", meta.ErrorMsg)
	}
}

func uploadChunk(t *testing.T, addr, remote string, chunk []byte, compress bool) types.UploadTransferResponse {
	t.Helper()
	payload := chunk
	if compress {
		var err error
		if payload, err = compression.Compress(chunk); err != nil {
			t.Fatalf("Compress: %v", err)
		}
	}
	frame, err := wire.EncodeBulkMessage(types.DirectionUpload, types.StepTransfer,
		&types.UploadTransferRequest{RemotePath: remote, Compress: compress}, payload)
	if err != nil {
		t.Fatalf("EncodeBulkMessage: %v", err)
	}
	var resp types.UploadTransferResponse
	if err := wire.Unmarshal(exchange(t, addr, frame), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return resp
}

func TestUploadSequence(t *testing.T) {
	h := start(t, nil)
	data := []byte("the quick brown fox")

	var init types.UploadInitResponse
	request(t, h.addr, types.DirectionUpload, types.StepInitialise, &types.UploadInitRequest{RemotePath: "new/dir/f", IsContinue: true}, &init)
	if init.ErrorMsg != "" || init.FileLen != 0 {
		t.Fatalf("init = %+v", init)
	}

	if resp := uploadChunk(t, h.addr, "new/dir/f", data[:9], false); resp.ErrorMsg != "" {
		t.Fatalf("chunk 1: %q", resp.ErrorMsg)
	}
	if resp := uploadChunk(t, h.addr, "new/dir/f", data[9:], true); resp.ErrorMsg != "" {
		t.Fatalf("chunk 2: %q", resp.ErrorMsg)
	}

	request(t, h.addr, types.DirectionUpload, types.StepInitialise, &types.UploadInitRequest{RemotePath: "new/dir/f", IsContinue: true}, &init)
	if init.FileLen != uint64(len(data)) {
		t.Errorf("resumed FileLen = %d, want %d", init.FileLen, len(data))
	}

	var bad types.UploadEndResponse
	request(t, h.addr, types.DirectionUpload, types.StepEnd, &types.UploadEndRequest{RemotePath: "new/dir/f", Mtime: 1, Checksum: 42}, &bad)
	if bad.ErrorMsg == "" {
		t.Error("End accepted a wrong checksum")
	}

	var end types.UploadEndResponse
	request(t, h.addr, types.DirectionUpload, types.StepEnd, &types.UploadEndRequest{
		RemotePath: "new/dir/f", Mtime: 1_700_000_000, Checksum: checksum.Bytes(data),
	}, &end)
	if end.ErrorMsg != "" {
		t.Fatalf("End: %q", end.ErrorMsg)
	}

	full := filepath.Join(h.root, "new", "dir", "f")
	got, err := os.ReadFile(full)
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("stored = %q, %v", got, err)
	}
	fi, _ := os.Stat(full)
	if fi.ModTime().Unix() != 1_700_000_000 {
		t.Errorf("mtime = %d, want 1700000000", fi.ModTime().Unix())
	}

	// Not continuing discards what is there.
	request(t, h.addr, types.DirectionUpload, types.StepInitialise, &types.UploadInitRequest{RemotePath: "new/dir/f"}, &init)
	if init.FileLen != 0 {
		t.Errorf("overwrite FileLen = %d, want 0", init.FileLen)
	}
}

func TestUploadEnd_Missing(t *testing.T) {
	h := start(t, nil)
	var end types.UploadEndResponse
	request(t, h.addr, types.DirectionUpload, types.StepEnd, &types.UploadEndRequest{RemotePath: "nope"}, &end)
	if end.ErrorMsg != "file not found: nope" {
		t.Errorf("ErrorMsg = %q", end.ErrorMsg)
	}
}

func TestRequestTooLarge(t *testing.T) {
	h := start(t, func(cfg *Config) { cfg.MaxChunkSize = 16 })

	frame := wire.Encode(types.DirectionUpload, types.StepTransfer, make([]byte, wire.MaxMetadataSize+64*1024))
	var resp types.ErrorResponse
	if err := wire.Unmarshal(exchange(t, h.addr, frame), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !strings.HasPrefix(resp.ErrorMsg, msgRequestTooLarge) {
		t.Errorf("ErrorMsg = %q, want prefix %q", resp.ErrorMsg, msgRequestTooLarge)
	}
	snap := h.metrics.Snapshot()
	if snap.ApplicationErrors != 1 || snap.ProtocolErrors != 0 {
		t.Errorf("errors = application %d, protocol %d; want 1, 0", snap.ApplicationErrors, snap.ProtocolErrors)
	}
}

func TestUploadTransfer_ChunkAboveMaxChunkSize(t *testing.T) {
	const maxChunk = 16
	h := start(t, func(cfg *Config) { cfg.MaxChunkSize = maxChunk })
	chunk := bytes.Repeat([]byte("0123456789abcdef"), 256)

	for _, compress := range []bool{false, true} {
		remote := fmt.Sprintf("big-%t", compress)
		if resp := uploadChunk(t, h.addr, remote, chunk, compress); resp.ErrorMsg != "" {
			t.Fatalf("compress=%t: ErrorMsg = %q", compress, resp.ErrorMsg)
		}
		got, err := os.ReadFile(filepath.Join(h.root, remote))
		if err != nil || !bytes.Equal(got, chunk) {
			t.Errorf("compress=%t: stored %d bytes, %v", compress, len(got), err)
		}
	}
}

func TestUploadTransfer_BadCompressedChunk(t *testing.T) {
	h := start(t, func(cfg *Config) { cfg.MaxChunkSize = 16 })
	srv, err := New(Config{Root: t.TempDir(), MaxChunkSize: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bomb, err := compression.Compress(make([]byte, srv.maxUploadChunk()+1))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	tests := []struct {
		name    string
		payload []byte
	}{
		{"not zlib", []byte("plain text, not deflate")},
		{"inflates past limit", bomb},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := wire.EncodeBulkMessage(types.DirectionUpload, types.StepTransfer,
				&types.UploadTransferRequest{RemotePath: "f", Compress: true}, tt.payload)
			if err != nil {
				t.Fatalf("EncodeBulkMessage: %v", err)
			}
			var resp types.UploadTransferResponse
			if err := wire.Unmarshal(exchange(t, h.addr, frame), &resp); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !strings.HasPrefix(resp.ErrorMsg, "invalid compressed chunk for f") {
				t.Errorf("ErrorMsg = %q", resp.ErrorMsg)
			}
		})
	}
	if got := h.metrics.Snapshot().ProtocolErrors; got != 0 {
		t.Errorf("ProtocolErrors = %d, want 0", got)
	}
}

// syncBuffer serialises writes from the server goroutine with reads from
// the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func TestCompletionHooks(t *testing.T) {
	var (
		mu     sync.Mutex
		events []adapter.TransferCompletedEvent
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev adapter.TransferCompletedEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode event: %v", err)
		}
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	notifier, err := webhook.New(webhook.Config{URL: ts.URL})
	if err != nil {
		t.Fatalf("webhook.New: %v", err)
	}
	j, err := journal.New(sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("journal.New: %v", err)
	}

	var logs syncBuffer
	h := start(t, func(cfg *Config) {
		cfg.Journal = j
		cfg.Notifier = notifier
		cfg.Logger = log.NewTestLogger(log.RoleServer, &logs)
	})

	data := []byte("payload")
	var init types.UploadInitResponse
	request(t, h.addr, types.DirectionUpload, types.StepInitialise, &types.UploadInitRequest{RemotePath: "h/f"}, &init)
	uploadChunk(t, h.addr, "h/f", data, false)
	var end types.UploadEndResponse
	request(t, h.addr, types.DirectionUpload, types.StepEnd, &types.UploadEndRequest{
		RemotePath: "h/f", Mtime: 1_700_000_000, Checksum: checksum.Bytes(data),
	}, &end)
	if end.ErrorMsg != "" {
		t.Fatalf("End: %q", end.ErrorMsg)
	}

	var del types.DeleteResponse
	request(t, h.addr, types.DirectionDelete, types.StepInitialise, &types.DeleteRequest{RemotePath: "h/f"}, &del)
	if del.ErrorMsg != "" {
		t.Fatalf("Delete: %q", del.ErrorMsg)
	}

	// A failed delete records nothing.
	request(t, h.addr, types.DirectionDelete, types.StepInitialise, &types.DeleteRequest{RemotePath: "h/f"}, &del)
	if del.ErrorMsg == "" {
		t.Fatal("second delete succeeded")
	}

	recs, err := j.List(t.Context())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("journal has %d records, want 2", len(recs))
	}
	byDir := map[string]journal.Record{}
	for _, r := range recs {
		byDir[r.Direction] = r
	}
	if up := byDir["upload"]; up.Bytes != int64(len(data)) || up.Checksum != checksum.Bytes(data) || up.Path != "h/f" {
		t.Errorf("upload record = %+v", up)
	}
	if _, ok := byDir["delete"]; !ok {
		t.Error("no delete record")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Direction != "upload" || events[1].Direction != "delete" {
		t.Errorf("event directions = %s, %s", events[0].Direction, events[1].Direction)
	}
	if got := h.metrics.Snapshot().OperationsCompleted; got != 2 {
		t.Errorf("OperationsCompleted = %d, want 2", got)
	}
	if out := logs.String(); !strings.Contains(out, `"message":"transfer completed"`) {
		t.Errorf("logs missing completion entry: %s", out)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
