// Package adapter defines the notification boundary for completed transfers.
//
// The server publishes one event after every successful upload End or
// delete. Adapters deliver it to a downstream system; delivery failures are
// logged by the caller and never fail the transfer itself.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContractVersion is the version of the event payload shape.
const ContractVersion = "1"

// EventTypeTransferCompleted is the only event type emitted today.
const EventTypeTransferCompleted = "transfer_completed"

// TransferCompletedEvent is the payload published when the server finishes
// an upload or a delete.
type TransferCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "transfer_completed"
	EventID         string `json:"event_id"`
	Direction       string `json:"direction"` // upload or delete
	Path            string `json:"path"`      // client-visible remote path
	Bytes           int64  `json:"bytes"`
	Checksum        string `json:"checksum,omitempty"` // hex CRC-64/NVME
	Mtime           int64  `json:"mtime,omitempty"`
	Timestamp       string `json:"timestamp"` // RFC 3339
}

// NewTransferCompletedEvent fills in the envelope fields.
func NewTransferCompletedEvent(direction, path string, bytes int64, checksum uint64, mtime int64, now time.Time) *TransferCompletedEvent {
	ev := &TransferCompletedEvent{
		ContractVersion: ContractVersion,
		EventType:       EventTypeTransferCompleted,
		EventID:         uuid.NewString(),
		Direction:       direction,
		Path:            path,
		Bytes:           bytes,
		Mtime:           mtime,
		Timestamp:       now.UTC().Format(time.RFC3339),
	}
	if direction != "delete" {
		ev.Checksum = fmt.Sprintf("%016x", checksum)
	}
	return ev
}

// Encode returns the JSON payload every adapter delivers.
func Encode(event *TransferCompletedEvent) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("encode event: nil event")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", event.EventID, err)
	}
	return body, nil
}

// Adapter publishes transfer completion events to a downstream system.
type Adapter interface {
	// Publish sends an event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *TransferCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BaseBackoff is the delay before the first retry; it doubles per attempt.
var BaseBackoff = 500 * time.Millisecond

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts. A nil return from permanent (when non-nil) marks an error as
// retriable; a non-nil return stops immediately with that error.
func Retry(ctx context.Context, retries int, fn func(context.Context) error, permanent func(error) error) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BaseBackoff
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil {
			if err := permanent(lastErr); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
