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

// Upload sends localPath to remoteDir/basename(localPath).
//
// Length, mtime and checksum are taken before the first request. The
// server reports how much of the destination it already holds; if that
// equals the local length the upload is complete without further
// requests. Otherwise the remainder is sent chunk by chunk and End
// carries the checksum and mtime for the server to verify and apply.
// Empty files always send End so the server stamps the mtime.
func (c *Client) Upload(ctx context.Context, localPath, remoteDir string) (*Result, error) {
	start := time.Now()
	dir := types.DirectionUpload
	remoteDest := path.Join(remoteDir, filepath.Base(localPath))
	res := &Result{
		OpID:       uuid.NewString(),
		Direction:  dir.String(),
		RemotePath: remoteDest,
		LocalPath:  localPath,
	}
	logger := c.logger.With(map[string]any{
		"op_id":       res.OpID,
		"direction":   res.Direction,
		"remote_path": remoteDest,
		"local_path":  localPath,
	})

	err := c.upload(ctx, res, logger)
	return c.finish(res, start, logger, err)
}

func (c *Client) upload(ctx context.Context, res *Result, logger *log.Logger) error {
	dir := types.DirectionUpload
	m := transfer.New(dir)

	info, err := fsx.Stat(res.LocalPath)
	if err != nil {
		c.cfg.Metrics.IncFSError(fsx.KindName(err))
		return fmt.Errorf("upload: %w", err)
	}
	if !info.Regular {
		return &ApplicationError{Op: "upload", Msg: fmt.Sprintf("%s is not a regular file", res.LocalPath)}
	}
	sum, err := checksum.File(res.LocalPath)
	if err != nil {
		c.cfg.Metrics.IncFSError(fsx.KindName(err))
		return fmt.Errorf("upload: checksum source: %w", err)
	}
	res.BytesTotal = info.Size
	res.Mtime = info.Mtime
	res.Checksum = sum

	if err := m.Advance(types.StepInitialise); err != nil {
		return err
	}
	var init types.UploadInitResponse
	if err := c.call(ctx, "upload initialise", dir, types.StepInitialise,
		&types.UploadInitRequest{RemotePath: res.RemotePath, IsContinue: c.cfg.Resume}, &init); err != nil {
		return err
	}
	if err := c.appError("upload initialise", init.ErrorMsg); err != nil {
		return err
	}

	remoteLen := int64(init.FileLen)
	res.ResumedFrom = remoteLen
	logger.Debug("upload initialised", map[string]any{
		"remote_len": remoteLen,
		"local_len":  info.Size,
	})

	switch {
	case remoteLen > info.Size:
		return c.appError("upload initialise", fmt.Sprintf(
			"remote file is %d bytes, longer than local source (%d bytes)", remoteLen, info.Size))
	case remoteLen == info.Size && info.Size > 0:
		res.AlreadyComplete = true
		c.progress(res.Direction, res.RemotePath, remoteLen, info.Size)
		return m.Finish()
	}

	offset := remoteLen
	c.progress(res.Direction, res.RemotePath, offset, info.Size)
	for {
		chunk, err := fsx.ReadChunk(res.LocalPath, offset, c.cfg.ChunkSize)
		if err != nil {
			c.cfg.Metrics.IncFSError(fsx.KindName(err))
			return fmt.Errorf("upload: %w", err)
		}
		if len(chunk) == 0 {
			break
		}
		if err := c.uploadChunk(ctx, m, res.RemotePath, chunk); err != nil {
			return err
		}
		offset += int64(len(chunk))
		res.BytesTransferred += int64(len(chunk))
		c.progress(res.Direction, res.RemotePath, offset, info.Size)
	}

	if err := m.Advance(types.StepEnd); err != nil {
		return err
	}
	res.Chunks = m.Transfers()

	var end types.UploadEndResponse
	if err := c.call(ctx, "upload end", dir, types.StepEnd, &types.UploadEndRequest{
		RemotePath: res.RemotePath,
		Mtime:      res.Mtime,
		Checksum:   res.Checksum,
	}, &end); err != nil {
		return err
	}
	return c.appError("upload end", end.ErrorMsg)
}

func (c *Client) uploadChunk(ctx context.Context, m *transfer.Machine, remotePath string, chunk []byte) error {
	const op = "upload transfer"
	dir := types.DirectionUpload

	if err := m.Advance(types.StepTransfer); err != nil {
		return err
	}

	payload := chunk
	if c.cfg.Compress {
		var err error
		payload, err = compression.Compress(chunk)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	frame, err := wire.EncodeBulkMessage(dir, types.StepTransfer, &types.UploadTransferRequest{
		RemotePath: remotePath,
		Compress:   c.cfg.Compress,
	}, payload)
	if err != nil {
		return err
	}
	resp, err := c.roundTrip(ctx, op, dir, types.StepTransfer, frame)
	if err != nil {
		return err
	}
	var meta types.UploadTransferResponse
	if err := wire.Unmarshal(resp, &meta); err != nil {
		c.cfg.Metrics.IncProtocolError()
		return err
	}
	if err := c.appError(op, meta.ErrorMsg); err != nil {
		return err
	}
	c.cfg.Metrics.AddChunk(len(chunk), len(payload), true)
	return nil
}
