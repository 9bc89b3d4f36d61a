// Package metrics provides per-process transfer counters.
//
// The Collector is a leaf package with no internal dependencies; callers
// pass direction and step names as strings.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Requests by "direction/step" (e.g. "upload/transfer").
	Requests map[string]int64 `json:"requests" yaml:"requests"`

	// Payload bytes, after decompression on receive and before compression
	// on send.
	BytesSent     int64 `json:"bytes_sent" yaml:"bytes_sent"`
	BytesReceived int64 `json:"bytes_received" yaml:"bytes_received"`
	// WireBytes counts chunk bytes as framed, i.e. after compression.
	WireBytes int64 `json:"wire_bytes" yaml:"wire_bytes"`
	Chunks    int64 `json:"chunks" yaml:"chunks"`

	// Operation outcomes.
	OperationsCompleted int64 `json:"operations_completed" yaml:"operations_completed"`
	OperationsFailed    int64 `json:"operations_failed" yaml:"operations_failed"`

	// Error taxonomy.
	ApplicationErrors int64            `json:"application_errors" yaml:"application_errors"`
	ProtocolErrors    int64            `json:"protocol_errors" yaml:"protocol_errors"`
	TransportErrors   int64            `json:"transport_errors" yaml:"transport_errors"`
	IntegrityErrors   int64            `json:"integrity_errors" yaml:"integrity_errors"`
	FSErrorsByKind    map[string]int64 `json:"fs_errors_by_kind" yaml:"fs_errors_by_kind"`

	// Dimension, set at construction.
	Role string `json:"role" yaml:"role"`
}

// Collector accumulates counters.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	requests      map[string]int64
	bytesSent     int64
	bytesReceived int64
	wireBytes     int64
	chunks        int64

	completed int64
	failed    int64

	applicationErrors int64
	protocolErrors    int64
	transportErrors   int64
	integrityErrors   int64
	fsErrorsByKind    map[string]int64

	role string
}

// NewCollector creates a Collector labelled with role ("client" or "server").
func NewCollector(role string) *Collector {
	return &Collector{
		requests:       make(map[string]int64),
		fsErrorsByKind: make(map[string]int64),
		role:           role,
	}
}

// --- Requests ---

// IncRequest records one request frame for direction/step.
func (c *Collector) IncRequest(direction, step string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.requests[direction+"/"+step]++
	c.mu.Unlock()
}

// AddChunk records one chunk of n payload bytes framed as wire bytes.
// sent distinguishes outgoing chunks from incoming ones.
func (c *Collector) AddChunk(n, wire int, sent bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunks++
	c.wireBytes += int64(wire)
	if sent {
		c.bytesSent += int64(n)
	} else {
		c.bytesReceived += int64(n)
	}
	c.mu.Unlock()
}

// --- Outcomes ---

// IncCompleted records a completed logical operation.
func (c *Collector) IncCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.completed++
	c.mu.Unlock()
}

// IncFailed records a failed logical operation.
func (c *Collector) IncFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.failed++
	c.mu.Unlock()
}

// --- Errors ---

// IncApplicationError records an error_msg response.
func (c *Collector) IncApplicationError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.applicationErrors++
	c.mu.Unlock()
}

// IncProtocolError records a malformed frame.
func (c *Collector) IncProtocolError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.protocolErrors++
	c.mu.Unlock()
}

// IncTransportError records a dial, read or write failure.
func (c *Collector) IncTransportError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.transportErrors++
	c.mu.Unlock()
}

// IncIntegrityError records a post-transfer checksum mismatch.
func (c *Collector) IncIntegrityError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.integrityErrors++
	c.mu.Unlock()
}

// IncFSError records a classified filesystem failure.
func (c *Collector) IncFSError(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fsErrorsByKind[kind]++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	requests := make(map[string]int64, len(c.requests))
	for k, v := range c.requests {
		requests[k] = v
	}
	fsErrors := make(map[string]int64, len(c.fsErrorsByKind))
	for k, v := range c.fsErrorsByKind {
		fsErrors[k] = v
	}

	return Snapshot{
		Requests:      requests,
		BytesSent:     c.bytesSent,
		BytesReceived: c.bytesReceived,
		WireBytes:     c.wireBytes,
		Chunks:        c.chunks,

		OperationsCompleted: c.completed,
		OperationsFailed:    c.failed,

		ApplicationErrors: c.applicationErrors,
		ProtocolErrors:    c.protocolErrors,
		TransportErrors:   c.transportErrors,
		IntegrityErrors:   c.integrityErrors,
		FSErrorsByKind:    fsErrors,

		Role: c.role,
	}
}

// RequestCount returns the number of requests recorded for direction/step.
func (s Snapshot) RequestCount(direction, step string) int64 {
	return s.Requests[direction+"/"+step]
}
