// Package client drives uploads, downloads and deletions against a tfc
// server.
//
// Every request travels on its own TCP connection: the client dials,
// writes one frame, half-closes its write side, reads the response until
// EOF and closes. Operations are sequential; there are no retries.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"time"

	"github.com/pithecene-io/tfc/iox"
	"github.com/pithecene-io/tfc/log"
	"github.com/pithecene-io/tfc/metrics"
	"github.com/pithecene-io/tfc/types"
	"github.com/pithecene-io/tfc/wire"
)

// Default timeouts.
const (
	DefaultDialTimeout = 10 * time.Second
	DefaultIOTimeout   = 60 * time.Second
)

// Config configures a Client.
type Config struct {
	// Addr is the server host:port (required).
	Addr string
	// ChunkSize is the maximum chunk payload per Transfer request.
	// Defaults to types.DefaultChunkSize.
	ChunkSize int
	// Compress requests zlib compression of chunk payloads.
	Compress bool
	// Resume continues from the destination's current length. When false
	// the destination is discarded first.
	Resume bool
	// DialTimeout bounds connection setup; IOTimeout bounds one
	// request/response exchange.
	DialTimeout time.Duration
	IOTimeout   time.Duration

	Logger   *log.Logger
	Metrics  *metrics.Collector
	Progress ProgressFunc
}

// Client is a sequential protocol client. Not safe for concurrent use.
type Client struct {
	cfg    Config
	logger *log.Logger
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("client requires a server address")
	}
	if cfg.ChunkSize < 0 || int64(cfg.ChunkSize) > math.MaxUint32 {
		return nil, fmt.Errorf("chunk size must be in [0, %d], got %d", uint32(math.MaxUint32), cfg.ChunkSize)
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = types.DefaultChunkSize
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = DefaultIOTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{cfg: cfg, logger: logger}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// roundTrip sends one request frame on a fresh connection and returns the
// whole response payload.
func (c *Client) roundTrip(ctx context.Context, op string, dir types.Direction, step types.Step, frame []byte) ([]byte, error) {
	c.cfg.Metrics.IncRequest(dir.String(), step.String())

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", c.cfg.Addr)
	if err != nil {
		c.cfg.Metrics.IncTransportError()
		return nil, &TransportError{Op: op, Err: fmt.Errorf("dial %s: %w", c.cfg.Addr, err)}
	}
	defer iox.DiscardClose(conn)

	deadline := time.Now().Add(c.cfg.IOTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		c.cfg.Metrics.IncTransportError()
		return nil, &TransportError{Op: op, Err: err}
	}
	// Cancellation unblocks any pending read or write.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(frame); err != nil {
		return nil, c.transportErr(ctx, op, fmt.Errorf("write: %w", err))
	}
	if err := iox.CloseWrite(conn); err != nil {
		return nil, c.transportErr(ctx, op, fmt.Errorf("half-close: %w", err))
	}

	limit := wire.MaxFrameSize(c.cfg.ChunkSize)
	resp, err := io.ReadAll(io.LimitReader(conn, limit+1))
	if err != nil {
		return nil, c.transportErr(ctx, op, fmt.Errorf("read: %w", err))
	}
	if int64(len(resp)) > limit {
		c.cfg.Metrics.IncProtocolError()
		return nil, &wire.FrameError{
			Kind: wire.FrameErrorTooLarge,
			Msg:  fmt.Sprintf("%s: response exceeds %d bytes", op, limit),
		}
	}
	if len(resp) == 0 {
		c.cfg.Metrics.IncProtocolError()
		return nil, protocolError(op, ErrEmptyResponse)
	}
	return resp, nil
}

func (c *Client) transportErr(ctx context.Context, op string, err error) error {
	c.cfg.Metrics.IncTransportError()
	ctxErr := ctx.Err()
	if dl, ok := ctx.Deadline(); ok && ctxErr == nil && !time.Now().Before(dl) {
		// The socket deadline can fire just before the context's own timer.
		ctxErr = context.DeadlineExceeded
	}
	if ctxErr != nil {
		err = fmt.Errorf("%w (%w)", ctxErr, err)
	}
	return &TransportError{Op: op, Err: err}
}

// call encodes v as a request, performs the exchange and decodes the
// response into out.
func (c *Client) call(ctx context.Context, op string, dir types.Direction, step types.Step, v, out any) error {
	frame, err := wire.EncodeMessage(dir, step, v)
	if err != nil {
		return err
	}
	resp, err := c.roundTrip(ctx, op, dir, step, frame)
	if err != nil {
		return err
	}
	if err := wire.Unmarshal(resp, out); err != nil {
		c.cfg.Metrics.IncProtocolError()
		return err
	}
	return nil
}

// appError converts a non-empty error_msg into an *ApplicationError.
func (c *Client) appError(op, msg string) error {
	if msg == "" {
		return nil
	}
	c.cfg.Metrics.IncApplicationError()
	return &ApplicationError{Op: op, Msg: msg}
}

func (c *Client) progress(dir, path string, done, total int64) {
	if c.cfg.Progress != nil {
		c.cfg.Progress(Progress{Direction: dir, Path: path, Done: done, Total: total})
	}
}

// finish records the outcome and stamps the duration.
func (c *Client) finish(res *Result, start time.Time, logger *log.Logger, err error) (*Result, error) {
	res.Duration = time.Since(start)
	if err != nil {
		c.cfg.Metrics.IncFailed()
		if Class(err) == "integrity" {
			c.cfg.Metrics.IncIntegrityError()
		}
		logger.Error("operation failed", map[string]any{
			"error":       err.Error(),
			"error_class": Class(err),
		})
		return res, err
	}
	c.cfg.Metrics.IncCompleted()
	logger.Info("operation complete", map[string]any{
		"bytes_total":       res.BytesTotal,
		"bytes_transferred": res.BytesTransferred,
		"chunks":            res.Chunks,
		"already_complete":  res.AlreadyComplete,
		"duration_ms":       res.Duration.Milliseconds(),
	})
	return res, nil
}
