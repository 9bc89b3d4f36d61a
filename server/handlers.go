package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/tfc/checksum"
	"github.com/pithecene-io/tfc/compression"
	"github.com/pithecene-io/tfc/fsx"
	"github.com/pithecene-io/tfc/types"
	"github.com/pithecene-io/tfc/wire"
)

// Application error messages.
const (
	msgUnsupportedStep = "unsupported step"
	msgNoMoreData      = "no more data"
	msgRequestTooLarge = "request too large"
)

type route struct {
	dir  types.Direction
	step types.Step
}

// dispatch decodes req and returns the encoded response. A non-nil error
// means the request was malformed and must not be answered.
func (s *Server) dispatch(ctx context.Context, req []byte, peer string) ([]byte, error) {
	hdr, payload, err := wire.Decode(req)
	if err != nil {
		return nil, err
	}
	s.cfg.Metrics.IncRequest(hdr.Direction.String(), hdr.Step.String())
	s.logger.Debug("request", map[string]any{
		"peer":      peer,
		"direction": hdr.Direction.String(),
		"step":      hdr.Step.String(),
		"size":      len(req),
	})

	switch (route{hdr.Direction, hdr.Step}) {
	case route{types.DirectionDownload, types.StepInitialise}:
		return s.downloadInit(payload)
	case route{types.DirectionDownload, types.StepTransfer}:
		return s.downloadTransfer(payload)
	case route{types.DirectionUpload, types.StepInitialise}:
		return s.uploadInit(payload)
	case route{types.DirectionUpload, types.StepTransfer}:
		return s.uploadTransfer(payload)
	case route{types.DirectionUpload, types.StepEnd}:
		return s.uploadEnd(ctx, payload, peer)
	case route{types.DirectionDelete, types.StepInitialise}:
		return s.delete(ctx, payload, peer)
	default:
		op := hdr.Direction.String() + " " + hdr.Step.String()
		return wire.Marshal(&types.ErrorResponse{ErrorMsg: s.failf(op, "", "%s", msgUnsupportedStep)})
	}
}

// fail builds the error_msg for a failed filesystem or resolution step and
// logs the full server-side error. rel is the client-visible path.
func (s *Server) fail(op, rel string, err error) string {
	s.cfg.Metrics.IncApplicationError()
	fields := map[string]any{"op": op, "path": rel, "error": err.Error()}

	var msg string
	switch {
	case errors.Is(err, ErrPathEscape):
		msg = fmt.Sprintf("invalid path: %s", rel)
	case errors.Is(err, fsx.ErrNotFound):
		msg = fmt.Sprintf("file not found: %s", rel)
	default:
		kind := fsx.Classify(err)
		s.cfg.Metrics.IncFSError(fsx.KindName(err))
		fields["kind"] = fsx.KindName(err)
		msg = fmt.Sprintf("%s %s: %v", op, rel, kind)
	}
	s.logger.Warn("request failed", fields)
	return msg
}

func (s *Server) failf(op, rel, format string, args ...any) string {
	s.cfg.Metrics.IncApplicationError()
	msg := fmt.Sprintf(format, args...)
	s.logger.Warn("request failed", map[string]any{"op": op, "path": rel, "error": msg})
	return msg
}

func (s *Server) downloadInit(payload []byte) ([]byte, error) {
	var req types.DownloadInitRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	const op = "download initialise"

	full, err := s.resolver.Resolve(req.RemotePath)
	if err != nil {
		return wire.Marshal(&types.DownloadInitResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	info, err := fsx.Stat(full)
	if err != nil {
		return wire.Marshal(&types.DownloadInitResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	if !info.Regular {
		return wire.Marshal(&types.DownloadInitResponse{
			ErrorMsg: s.failf(op, req.RemotePath, "not a regular file: %s", req.RemotePath),
		})
	}
	sum, err := checksum.File(full)
	if err != nil {
		return wire.Marshal(&types.DownloadInitResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}

	return wire.Marshal(&types.DownloadInitResponse{
		FileLen:  uint64(info.Size),
		Mtime:    info.Mtime,
		Checksum: sum,
	})
}

func (s *Server) downloadTransfer(payload []byte) ([]byte, error) {
	var req types.DownloadTransferRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	const op = "download transfer"

	bulkError := func(msg string) ([]byte, error) {
		meta, err := wire.Marshal(&types.DownloadTransferResponse{ErrorMsg: msg})
		if err != nil {
			return nil, err
		}
		return wire.PackBulk(meta, nil), nil
	}

	full, err := s.resolver.Resolve(req.RemotePath)
	if err != nil {
		return bulkError(s.fail(op, req.RemotePath, err))
	}

	n := int(req.ChunkSize)
	if n <= 0 || n > s.cfg.MaxChunkSize {
		n = s.cfg.MaxChunkSize
	}
	data, err := fsx.ReadChunk(full, int64(req.FromByte), n)
	if err != nil {
		return bulkError(s.fail(op, req.RemotePath, err))
	}
	if len(data) == 0 {
		return bulkError(s.failf(op, req.RemotePath, "%s", msgNoMoreData))
	}

	raw := data
	if req.Compress {
		raw, err = compression.Compress(data)
		if err != nil {
			return bulkError(s.failf(op, req.RemotePath, "compress: %v", err))
		}
	}
	meta, err := wire.Marshal(&types.DownloadTransferResponse{})
	if err != nil {
		return nil, err
	}
	s.cfg.Metrics.AddChunk(len(data), len(raw), true)
	return wire.PackBulk(meta, raw), nil
}

func (s *Server) uploadInit(payload []byte) ([]byte, error) {
	var req types.UploadInitRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	const op = "upload initialise"

	full, err := s.resolver.Resolve(req.RemotePath)
	if err != nil {
		return wire.Marshal(&types.UploadInitResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	if !req.IsContinue {
		if _, err := fsx.RemoveIfExists(full); err != nil {
			return wire.Marshal(&types.UploadInitResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
		}
	}
	if err := fsx.EnsureParent(full); err != nil {
		return wire.Marshal(&types.UploadInitResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	// The destination exists from here on so End can verify empty files.
	if !fsx.Exists(full) {
		if err := fsx.CreateEmpty(full); err != nil {
			return wire.Marshal(&types.UploadInitResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
		}
	}

	info, err := fsx.Stat(full)
	if err != nil {
		return wire.Marshal(&types.UploadInitResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	if !info.Regular {
		return wire.Marshal(&types.UploadInitResponse{
			ErrorMsg: s.failf(op, req.RemotePath, "not a regular file: %s", req.RemotePath),
		})
	}
	return wire.Marshal(&types.UploadInitResponse{FileLen: uint64(info.Size)})
}

func (s *Server) uploadTransfer(payload []byte) ([]byte, error) {
	var req types.UploadTransferRequest
	raw, err := wire.DecodeBulk(payload, &req)
	if err != nil {
		return nil, err
	}
	const op = "upload transfer"

	full, err := s.resolver.Resolve(req.RemotePath)
	if err != nil {
		return wire.Marshal(&types.UploadTransferResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	if err := fsx.EnsureParent(full); err != nil {
		return wire.Marshal(&types.UploadTransferResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}

	data := raw
	if req.Compress {
		data, err = compression.Decompress(raw, s.maxUploadChunk())
		if err != nil {
			return wire.Marshal(&types.UploadTransferResponse{
				ErrorMsg: s.failf(op, req.RemotePath, "invalid compressed chunk for %s: %v", req.RemotePath, err),
			})
		}
	}
	if err := fsx.Append(full, data); err != nil {
		return wire.Marshal(&types.UploadTransferResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	s.cfg.Metrics.AddChunk(len(data), len(raw), false)
	return wire.Marshal(&types.UploadTransferResponse{})
}

func (s *Server) uploadEnd(ctx context.Context, payload []byte, peer string) ([]byte, error) {
	var req types.UploadEndRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	const op = "upload end"

	full, err := s.resolver.Resolve(req.RemotePath)
	if err != nil {
		return wire.Marshal(&types.UploadEndResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	info, err := fsx.Stat(full)
	if err != nil {
		return wire.Marshal(&types.UploadEndResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	got, err := checksum.File(full)
	if err != nil {
		return wire.Marshal(&types.UploadEndResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	if got != req.Checksum {
		return wire.Marshal(&types.UploadEndResponse{
			ErrorMsg: s.failf(op, req.RemotePath, "checksum mismatch for %s: expected %016x, got %016x",
				req.RemotePath, req.Checksum, got),
		})
	}
	if err := fsx.SetMtime(full, req.Mtime); err != nil {
		return wire.Marshal(&types.UploadEndResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}

	s.completed(ctx, types.DirectionUpload, req.RemotePath, info.Size, got, req.Mtime, peer)
	return wire.Marshal(&types.UploadEndResponse{})
}

func (s *Server) delete(ctx context.Context, payload []byte, peer string) ([]byte, error) {
	var req types.DeleteRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	const op = "delete"

	full, err := s.resolver.Resolve(req.RemotePath)
	if err != nil {
		return wire.Marshal(&types.DeleteResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	info, err := fsx.Stat(full)
	if err != nil {
		return wire.Marshal(&types.DeleteResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}
	if !info.Regular {
		return wire.Marshal(&types.DeleteResponse{
			ErrorMsg: s.failf(op, req.RemotePath, "not a regular file: %s", req.RemotePath),
		})
	}
	if err := fsx.Remove(full); err != nil {
		return wire.Marshal(&types.DeleteResponse{ErrorMsg: s.fail(op, req.RemotePath, err)})
	}

	s.completed(ctx, types.DirectionDelete, req.RemotePath, info.Size, 0, 0, peer)
	return wire.Marshal(&types.DeleteResponse{})
}
