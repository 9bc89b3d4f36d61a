// Package types defines the protocol vocabulary shared by client and server.
//
//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// Direction selects the logical operation family of a frame.
type Direction uint8

// Direction values as they appear on the wire.
const (
	DirectionDownload Direction = 0
	DirectionUpload   Direction = 1
	DirectionDelete   Direction = 2
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d <= DirectionDelete
}

func (d Direction) String() string {
	switch d {
	case DirectionDownload:
		return "download"
	case DirectionUpload:
		return "upload"
	case DirectionDelete:
		return "delete"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Step is the phase of a logical operation.
// Values are compared for equality only; the gaps are reserved.
type Step uint8

// Step values as they appear on the wire.
const (
	StepInitialise Step = 0
	StepTransfer   Step = 10
	StepEnd        Step = 200
)

// ParseStep converts a wire byte to a Step.
// Returns false for unrecognized values.
func ParseStep(b byte) (Step, bool) {
	switch s := Step(b); s {
	case StepInitialise, StepTransfer, StepEnd:
		return s, true
	default:
		return 0, false
	}
}

func (s Step) String() string {
	switch s {
	case StepInitialise:
		return "initialise"
	case StepTransfer:
		return "transfer"
	case StepEnd:
		return "end"
	default:
		return fmt.Sprintf("step(%d)", uint8(s))
	}
}

// DefaultChunkSize is the client chunk size when none is configured.
// Kept below the metadata ceiling so a chunk never needs more than one frame.
const DefaultChunkSize = 3_048_576
