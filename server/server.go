// Package server implements the tfc request dispatcher.
//
// The accept loop is serial: each connection carries exactly one request
// frame, is answered with at most one response payload, and is closed
// before the next connection is accepted. No state is kept between
// requests; every frame names the file it applies to.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"time"

	"github.com/pithecene-io/tfc/adapter"
	"github.com/pithecene-io/tfc/iox"
	"github.com/pithecene-io/tfc/journal"
	"github.com/pithecene-io/tfc/log"
	"github.com/pithecene-io/tfc/metrics"
	"github.com/pithecene-io/tfc/types"
	"github.com/pithecene-io/tfc/wire"
)

// DefaultIOTimeout bounds one request/response exchange.
const DefaultIOTimeout = 60 * time.Second

// Recorder stores completed-transfer records. *journal.Journal satisfies it.
type Recorder interface {
	Append(ctx context.Context, rec journal.Record) (journal.Record, error)
}

// Config configures a Server.
type Config struct {
	// Root is the directory all client paths resolve under. Empty means
	// the current working directory.
	Root string
	// MaxChunkSize caps the chunk size a download may request and sizes
	// the request frame limit. Defaults to types.DefaultChunkSize.
	MaxChunkSize int
	// IOTimeout bounds reading the request and writing the response.
	IOTimeout time.Duration

	Logger  *log.Logger
	Metrics *metrics.Collector
	// Journal and Notifier are optional completion hooks.
	Journal  Recorder
	Notifier adapter.Adapter
}

// Server answers protocol requests.
type Server struct {
	cfg      Config
	resolver *Resolver
	logger   *log.Logger
	now      func() time.Time
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Server, error) {
	if cfg.MaxChunkSize < 0 || int64(cfg.MaxChunkSize) > math.MaxUint32 {
		return nil, fmt.Errorf("max chunk size must be in [0, %d], got %d", uint32(math.MaxUint32), cfg.MaxChunkSize)
	}
	if cfg.MaxChunkSize == 0 {
		cfg.MaxChunkSize = types.DefaultChunkSize
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = DefaultIOTimeout
	}
	resolver, err := NewResolver(cfg.Root)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Server{
		cfg:      cfg,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Root returns the absolute root directory.
func (s *Server) Root() string {
	return s.resolver.Root
}

// MaxRequestSize is the largest request frame accepted.
func (s *Server) MaxRequestSize() int64 {
	return wire.MaxFrameSize(s.cfg.MaxChunkSize)
}

// maxUploadChunk bounds the chunk an upload Transfer may carry. A plain
// chunk is limited by the request frame, so an inflated chunk gets the
// same limit.
func (s *Server) maxUploadChunk() int64 {
	return s.MaxRequestSize()
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln one at a time until ctx is cancelled,
// then closes ln and returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()
	defer iox.DiscardClose(ln)

	s.logger.Info("server listening", map[string]any{
		"addr":           ln.Addr().String(),
		"root":           s.resolver.Root,
		"max_chunk_size": s.cfg.MaxChunkSize,
	})

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logShutdown()
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.handleConn(ctx, conn)
	}
}

func (s *Server) logShutdown() {
	snap := s.cfg.Metrics.Snapshot()
	s.logger.Info("server stopped", map[string]any{
		"requests":           snap.Requests,
		"bytes_sent":         snap.BytesSent,
		"bytes_received":     snap.BytesReceived,
		"chunks":             snap.Chunks,
		"completed":          snap.OperationsCompleted,
		"application_errors": snap.ApplicationErrors,
		"protocol_errors":    snap.ProtocolErrors,
		"transport_errors":   snap.TransportErrors,
	})
}

// handleConn reads one request to EOF, dispatches it and writes the
// response. Malformed requests are dropped without a response; oversized
// ones are drained and answered with an error_msg.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer iox.DiscardClose(conn)
	peer := conn.RemoteAddr().String()

	if err := conn.SetDeadline(s.now().Add(s.cfg.IOTimeout)); err != nil {
		s.cfg.Metrics.IncTransportError()
		s.logger.Warn("set deadline failed", map[string]any{"peer": peer, "error": err.Error()})
		return
	}

	limit := s.MaxRequestSize()
	req, err := io.ReadAll(io.LimitReader(conn, limit+1))
	if err != nil {
		s.cfg.Metrics.IncTransportError()
		s.logger.Warn("read request failed", map[string]any{"peer": peer, "error": err.Error()})
		return
	}
	oversized := int64(len(req)) > limit
	if oversized {
		// Drain so the peer finishes writing and reaches its read.
		if _, err := io.Copy(io.Discard, conn); err != nil {
			s.cfg.Metrics.IncTransportError()
			s.logger.Warn("drain oversized request failed", map[string]any{"peer": peer, "error": err.Error()})
			return
		}
	}

	resp, err := s.respond(ctx, req, peer, oversized)
	if err != nil {
		s.cfg.Metrics.IncProtocolError()
		fields := map[string]any{"peer": peer, "error": err.Error()}
		if kind, ok := wire.KindOf(err); ok {
			fields["kind"] = kind.String()
		}
		s.logger.Warn("malformed request", fields)
		return
	}

	if _, err := conn.Write(resp); err != nil {
		s.cfg.Metrics.IncTransportError()
		s.logger.Warn("write response failed", map[string]any{"peer": peer, "error": err.Error()})
	}
}

// respond dispatches req, or rejects it when it exceeded the frame limit.
func (s *Server) respond(ctx context.Context, req []byte, peer string, oversized bool) ([]byte, error) {
	if oversized {
		return wire.Marshal(&types.ErrorResponse{
			ErrorMsg: s.failf("request", "", "%s: limit is %d bytes", msgRequestTooLarge, s.MaxRequestSize()),
		})
	}
	return s.dispatch(ctx, req, peer)
}
