package metrics

import (
	"sync"
	"testing"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("client")

	c.IncRequest("upload", "initialise")
	c.IncRequest("upload", "transfer")
	c.IncRequest("upload", "transfer")
	c.AddChunk(100, 40, true)
	c.AddChunk(50, 50, false)
	c.IncCompleted()
	c.IncFailed()
	c.IncApplicationError()
	c.IncProtocolError()
	c.IncTransportError()
	c.IncTransportError()
	c.IncIntegrityError()
	c.IncFSError("not_found")
	c.IncFSError("not_found")

	s := c.Snapshot()

	if got := s.RequestCount("upload", "transfer"); got != 2 {
		t.Errorf("upload/transfer = %d, want 2", got)
	}
	if got := s.RequestCount("upload", "initialise"); got != 1 {
		t.Errorf("upload/initialise = %d, want 1", got)
	}
	if s.BytesSent != 100 {
		t.Errorf("BytesSent = %d, want 100", s.BytesSent)
	}
	if s.BytesReceived != 50 {
		t.Errorf("BytesReceived = %d, want 50", s.BytesReceived)
	}
	if s.WireBytes != 90 {
		t.Errorf("WireBytes = %d, want 90", s.WireBytes)
	}
	if s.Chunks != 2 {
		t.Errorf("Chunks = %d, want 2", s.Chunks)
	}
	if s.OperationsCompleted != 1 || s.OperationsFailed != 1 {
		t.Errorf("outcomes = %d/%d, want 1/1", s.OperationsCompleted, s.OperationsFailed)
	}
	if s.ApplicationErrors != 1 || s.ProtocolErrors != 1 || s.TransportErrors != 2 || s.IntegrityErrors != 1 {
		t.Errorf("errors = %+v", s)
	}
	if s.FSErrorsByKind["not_found"] != 2 {
		t.Errorf("FSErrorsByKind[not_found] = %d, want 2", s.FSErrorsByKind["not_found"])
	}
	if s.Role != "client" {
		t.Errorf("Role = %q, want %q", s.Role, "client")
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.IncRequest("download", "transfer")
	c.AddChunk(1, 1, true)
	c.IncCompleted()
	c.IncFailed()
	c.IncApplicationError()
	c.IncProtocolError()
	c.IncTransportError()
	c.IncIntegrityError()
	c.IncFSError("other")

	s := c.Snapshot()
	if s.Chunks != 0 || s.Requests != nil {
		t.Errorf("nil collector snapshot = %+v, want zero", s)
	}
}

func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := NewCollector("server")
	c.IncRequest("delete", "initialise")
	s := c.Snapshot()
	c.IncRequest("delete", "initialise")

	if got := s.RequestCount("delete", "initialise"); got != 1 {
		t.Errorf("snapshot mutated: got %d, want 1", got)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("server")
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncRequest("download", "transfer")
			c.AddChunk(10, 10, true)
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if got := s.RequestCount("download", "transfer"); got != 50 {
		t.Errorf("requests = %d, want 50", got)
	}
	if s.BytesSent != 500 {
		t.Errorf("BytesSent = %d, want 500", s.BytesSent)
	}
}
