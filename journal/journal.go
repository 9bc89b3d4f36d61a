// Package journal keeps an append-only record of completed server-side
// transfers in a Lode dataset.
//
// Records are Hive-partitioned by day and direction and encoded as JSONL, so
// the same dataset can be read back with any Lode reader. The filesystem,
// S3 and in-memory stores are all supported through lode.StoreFactory.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/justapithecus/lode/lode"
)

// DatasetID is the Lode dataset all journal records are written to.
const DatasetID = "tfc_journal"

// Record describes one completed upload or delete.
type Record struct {
	ID          string    `json:"id" yaml:"id"`
	Direction   string    `json:"direction" yaml:"direction"`
	Path        string    `json:"path" yaml:"path"`
	Bytes       int64     `json:"bytes" yaml:"bytes"`
	Checksum    uint64    `json:"checksum" yaml:"checksum" render:"hex"`
	Mtime       int64     `json:"mtime" yaml:"mtime"`
	Peer        string    `json:"peer" yaml:"peer"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

// Summary aggregates a set of records.
type Summary struct {
	Records     int            `json:"records" yaml:"records"`
	Bytes       int64          `json:"bytes" yaml:"bytes"`
	ByDirection map[string]int `json:"by_direction" yaml:"by_direction"`
	First       *time.Time     `json:"first,omitempty" yaml:"first,omitempty"`
	Last        *time.Time     `json:"last,omitempty" yaml:"last,omitempty"`
}

// Summarize counts records and bytes. Deletes contribute no bytes.
func Summarize(records []Record) Summary {
	s := Summary{ByDirection: make(map[string]int)}
	for _, rec := range records {
		s.Records++
		s.ByDirection[rec.Direction]++
		if rec.Direction != "delete" {
			s.Bytes += rec.Bytes
		}
		ts := rec.CompletedAt
		if s.First == nil || ts.Before(*s.First) {
			s.First = &ts
		}
		if s.Last == nil || ts.After(*s.Last) {
			s.Last = &ts
		}
	}
	return s
}

// Filter returns the records whose direction matches. An empty direction
// matches everything.
func Filter(records []Record, direction string) []Record {
	if direction == "" {
		return records
	}
	var out []Record
	for _, rec := range records {
		if rec.Direction == direction {
			out = append(out, rec)
		}
	}
	return out
}

// Journal appends Records to a Lode dataset.
type Journal struct {
	dataset lode.Dataset
	backend string
}

// New creates a journal over a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func New(factory lode.StoreFactory) (*Journal, error) {
	return newJournal(factory, "custom")
}

// NewFS creates a journal stored under root on the local filesystem.
func NewFS(root string) (*Journal, error) {
	return newJournal(lode.NewFSFactory(root), "fs")
}

func newJournal(factory lode.StoreFactory, backend string) (*Journal, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(DatasetID),
		factory,
		lode.WithHiveLayout("day", "direction"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapError(err, "init", DatasetID)
	}
	return &Journal{dataset: ds, backend: backend}, nil
}

// Backend names the storage backend ("fs", "s3" or "custom").
func (j *Journal) Backend() string {
	return j.backend
}

// Append writes one record. A missing ID is filled with a fresh UUID and a
// zero CompletedAt with the current time. The stored record is returned.
func (j *Journal) Append(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	rec.CompletedAt = rec.CompletedAt.UTC()

	if _, err := j.dataset.Write(ctx, []any{toMap(rec)}, lode.Metadata{}); err != nil {
		return rec, WrapError(err, "write", rec.Path)
	}
	return rec, nil
}

// List reads every record in the dataset, oldest snapshot first.
// Records seen in more than one snapshot are returned once.
func (j *Journal) List(ctx context.Context) ([]Record, error) {
	snapshots, err := j.dataset.Snapshots(ctx)
	if err != nil {
		return nil, WrapError(err, "read", DatasetID+"/snapshots")
	}

	var out []Record
	seen := make(map[string]struct{})
	for _, snap := range snapshots {
		data, err := j.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapError(err, "read", fmt.Sprintf("%s/snapshot/%s", DatasetID, snap.ID))
		}
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			rec := fromMap(m)
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			out = append(out, rec)
		}
	}
	return out, nil
}

// Close releases journal resources.
func (j *Journal) Close() error {
	return nil
}

func toMap(rec Record) map[string]any {
	return map[string]any{
		"id":           rec.ID,
		"day":          rec.CompletedAt.Format("2006-01-02"),
		"direction":    rec.Direction,
		"path":         rec.Path,
		"bytes":        rec.Bytes,
		"checksum":     strconv.FormatUint(rec.Checksum, 16),
		"mtime":        rec.Mtime,
		"peer":         rec.Peer,
		"completed_at": rec.CompletedAt.Format(time.RFC3339Nano),
	}
}

func fromMap(m map[string]any) Record {
	rec := Record{
		ID:        toString(m["id"]),
		Direction: toString(m["direction"]),
		Path:      toString(m["path"]),
		Bytes:     toInt64(m["bytes"]),
		Mtime:     toInt64(m["mtime"]),
		Peer:      toString(m["peer"]),
	}
	// Checksums are stored as hex strings; JSON numbers lose precision past 2^53.
	if sum, err := strconv.ParseUint(toString(m["checksum"]), 16, 64); err == nil {
		rec.Checksum = sum
	}
	if ts, err := time.Parse(time.RFC3339Nano, toString(m["completed_at"])); err == nil {
		rec.CompletedAt = ts
	}
	return rec
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
