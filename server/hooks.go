package server

import (
	"context"

	"github.com/pithecene-io/tfc/adapter"
	"github.com/pithecene-io/tfc/journal"
	"github.com/pithecene-io/tfc/types"
)

// completed runs the optional journal and notification hooks after a
// successful upload End or delete. Hook failures are logged and never
// change the response.
func (s *Server) completed(ctx context.Context, dir types.Direction, path string, size int64, sum uint64, mtime int64, peer string) {
	s.cfg.Metrics.IncCompleted()
	now := s.now()
	s.logger.Info("transfer completed", map[string]any{
		"peer":      peer,
		"direction": dir.String(),
		"path":      path,
		"bytes":     size,
	})

	if s.cfg.Journal != nil {
		rec, err := s.cfg.Journal.Append(ctx, journal.Record{
			Direction:   dir.String(),
			Path:        path,
			Bytes:       size,
			Checksum:    sum,
			Mtime:       mtime,
			Peer:        peer,
			CompletedAt: now,
		})
		if err != nil {
			s.logger.Error("journal append failed", map[string]any{"path": path, "error": err.Error()})
		} else {
			s.logger.Debug("journal record written", map[string]any{"id": rec.ID})
		}
	}

	if s.cfg.Notifier != nil {
		event := adapter.NewTransferCompletedEvent(dir.String(), path, size, sum, mtime, now)
		if err := s.cfg.Notifier.Publish(ctx, event); err != nil {
			s.logger.Error("notification failed", map[string]any{
				"path":     path,
				"event_id": event.EventID,
				"error":    err.Error(),
			})
		}
	}
}
