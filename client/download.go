package client

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/tfc/checksum"
	"github.com/pithecene-io/tfc/compression"
	"github.com/pithecene-io/tfc/fsx"
	"github.com/pithecene-io/tfc/log"
	"github.com/pithecene-io/tfc/transfer"
	"github.com/pithecene-io/tfc/types"
	"github.com/pithecene-io/tfc/wire"
)

// Download fetches remotePath into localDir/basename(remotePath).
//
// The Initialise response is the authoritative contract: chunks are
// requested from the destination's current length until it reaches the
// reported length, then the whole file is checksummed and its mtime set.
// A checksum mismatch returns *IntegrityError and leaves the file in place.
func (c *Client) Download(ctx context.Context, remotePath, localDir string) (*Result, error) {
	start := time.Now()
	dir := types.DirectionDownload
	res := &Result{
		OpID:       uuid.NewString(),
		Direction:  dir.String(),
		RemotePath: remotePath,
	}
	logger := c.logger.With(map[string]any{
		"op_id":       res.OpID,
		"direction":   res.Direction,
		"remote_path": remotePath,
	})

	name := path.Base(remotePath)
	if remotePath == "" || name == "/" || name == "." || name == ".." {
		return c.finish(res, start, logger, &ApplicationError{Op: "download", Msg: fmt.Sprintf("invalid remote path %q", remotePath)})
	}
	localDest := filepath.Join(localDir, name)
	res.LocalPath = localDest

	err := c.download(ctx, res, localDest, logger)
	return c.finish(res, start, logger, err)
}

func (c *Client) download(ctx context.Context, res *Result, localDest string, logger *log.Logger) error {
	dir := types.DirectionDownload
	m := transfer.New(dir)

	if !c.cfg.Resume {
		if _, err := fsx.RemoveIfExists(localDest); err != nil {
			c.cfg.Metrics.IncFSError(fsx.KindName(err))
			return fmt.Errorf("download: discard existing destination: %w", err)
		}
	}
	if err := fsx.EnsureParent(localDest); err != nil {
		c.cfg.Metrics.IncFSError(fsx.KindName(err))
		return fmt.Errorf("download: %w", err)
	}

	if err := m.Advance(types.StepInitialise); err != nil {
		return err
	}
	var init types.DownloadInitResponse
	if err := c.call(ctx, "download initialise", dir, types.StepInitialise,
		&types.DownloadInitRequest{RemotePath: res.RemotePath}, &init); err != nil {
		return err
	}
	if err := c.appError("download initialise", init.ErrorMsg); err != nil {
		return err
	}

	total := int64(init.FileLen)
	res.BytesTotal = total
	res.Mtime = init.Mtime
	res.Checksum = init.Checksum
	logger.Debug("download initialised", map[string]any{
		"filelen":  total,
		"mtime":    init.Mtime,
		"checksum": fmt.Sprintf("%016x", init.Checksum),
	})

	created := false
	if total == 0 && !fsx.Exists(localDest) {
		if err := fsx.CreateEmpty(localDest); err != nil {
			c.cfg.Metrics.IncFSError(fsx.KindName(err))
			return fmt.Errorf("download: %w", err)
		}
		created = true
	}

	first := true
	for {
		observed, err := fsx.Length(localDest)
		if err != nil {
			c.cfg.Metrics.IncFSError(fsx.KindName(err))
			return fmt.Errorf("download: %w", err)
		}
		if first {
			res.ResumedFrom = observed
			res.AlreadyComplete = !created && transfer.Complete(observed, total)
			first = false
		}
		c.progress(res.Direction, res.RemotePath, observed, total)
		if transfer.Complete(observed, total) {
			break
		}

		chunk, err := c.downloadChunk(ctx, m, res.RemotePath, observed)
		if err != nil {
			return err
		}
		if err := fsx.Append(localDest, chunk); err != nil {
			c.cfg.Metrics.IncFSError(fsx.KindName(err))
			return fmt.Errorf("download: %w", err)
		}
		res.BytesTransferred += int64(len(chunk))
	}

	if err := m.Finish(); err != nil {
		return err
	}
	res.Chunks = m.Transfers()

	got, err := checksum.File(localDest)
	if err != nil {
		c.cfg.Metrics.IncFSError(fsx.KindName(err))
		return fmt.Errorf("download: checksum destination: %w", err)
	}
	if got != res.Checksum {
		return &IntegrityError{Path: localDest, Want: res.Checksum, Got: got}
	}

	if err := fsx.SetMtime(localDest, res.Mtime); err != nil {
		c.cfg.Metrics.IncFSError(fsx.KindName(err))
		return fmt.Errorf("download: %w", err)
	}
	return nil
}

// downloadChunk requests the bytes starting at from and returns them
// decompressed.
func (c *Client) downloadChunk(ctx context.Context, m *transfer.Machine, remotePath string, from int64) ([]byte, error) {
	const op = "download transfer"
	dir := types.DirectionDownload

	if err := m.Advance(types.StepTransfer); err != nil {
		return nil, err
	}
	frame, err := wire.EncodeMessage(dir, types.StepTransfer, &types.DownloadTransferRequest{
		RemotePath: remotePath,
		FromByte:   uint64(from),
		ChunkSize:  uint32(c.cfg.ChunkSize),
		Compress:   c.cfg.Compress,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.roundTrip(ctx, op, dir, types.StepTransfer, frame)
	if err != nil {
		return nil, err
	}
	var meta types.DownloadTransferResponse
	raw, err := wire.DecodeBulk(resp, &meta)
	if err != nil {
		c.cfg.Metrics.IncProtocolError()
		return nil, err
	}
	if err := c.appError(op, meta.ErrorMsg); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		c.cfg.Metrics.IncProtocolError()
		return nil, protocolError(op, ErrEmptyChunk)
	}

	data := raw
	if c.cfg.Compress {
		data, err = compression.Decompress(raw, int64(c.cfg.ChunkSize))
		if err != nil {
			c.cfg.Metrics.IncProtocolError()
			return nil, &wire.FrameError{Kind: wire.FrameErrorDecode, Msg: op + ": decompress chunk", Err: err}
		}
		if len(data) == 0 {
			c.cfg.Metrics.IncProtocolError()
			return nil, protocolError(op, ErrEmptyChunk)
		}
	}
	c.cfg.Metrics.AddChunk(len(data), len(raw), false)
	return data, nil
}
