// Package transfer implements the step lifecycle shared by every logical
// operation:
//
//	Initialise → Transfer* → End
//
// Uploads end with an explicit End step. Downloads have no End on the wire;
// they complete when the destination reaches the authoritative length.
// Deletes consist of a single Initialise.
//
// Transitions are driven only by the client, one request per transition.
package transfer

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/tfc/types"
)

// ErrInvalidTransition is returned when a step is requested out of order.
var ErrInvalidTransition = errors.New("invalid step transition")

// State is the lifecycle position of a Machine.
type State int

const (
	// StateNew is the state before Initialise.
	StateNew State = iota
	// StateInitialised follows a completed Initialise.
	StateInitialised
	// StateTransferring follows at least one Transfer.
	StateTransferring
	// StateEnded follows End (upload) or Finish.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInitialised:
		return "initialised"
	case StateTransferring:
		return "transferring"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Machine tracks one logical operation. Not safe for concurrent use; a
// transfer is strictly sequential.
type Machine struct {
	dir       types.Direction
	state     State
	transfers int
}

// New returns a machine for one operation in the given direction.
func New(dir types.Direction) *Machine {
	return &Machine{dir: dir}
}

// Direction returns the operation family.
func (m *Machine) Direction() types.Direction { return m.dir }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Transfers returns how many Transfer steps were taken.
func (m *Machine) Transfers() int { return m.transfers }

// Done reports whether the operation reached its terminal state.
func (m *Machine) Done() bool { return m.state == StateEnded }

// Advance records that step is about to be sent. It fails without
// changing state if step is not allowed next.
func (m *Machine) Advance(step types.Step) error {
	next, err := m.next(step)
	if err != nil {
		return err
	}
	m.state = next
	if step == types.StepTransfer {
		m.transfers++
	}
	return nil
}

// Finish marks a download or delete complete. Uploads must use
// Advance(StepEnd) instead. Finishing an upload early (remote already
// complete) is allowed straight after Initialise.
func (m *Machine) Finish() error {
	switch {
	case m.state == StateNew:
		return fmt.Errorf("%w: finish %s before initialise", ErrInvalidTransition, m.dir)
	case m.state == StateEnded:
		return fmt.Errorf("%w: %s already finished", ErrInvalidTransition, m.dir)
	case m.dir == types.DirectionUpload && m.state != StateInitialised:
		return fmt.Errorf("%w: upload must send end after transferring", ErrInvalidTransition)
	}
	m.state = StateEnded
	return nil
}

func (m *Machine) next(step types.Step) (State, error) {
	if m.state == StateEnded {
		return m.state, fmt.Errorf("%w: %s %s after completion", ErrInvalidTransition, m.dir, step)
	}

	switch step {
	case types.StepInitialise:
		if m.state != StateNew {
			return m.state, fmt.Errorf("%w: %s initialise repeated", ErrInvalidTransition, m.dir)
		}
		if m.dir == types.DirectionDelete {
			return StateEnded, nil
		}
		return StateInitialised, nil

	case types.StepTransfer:
		if m.dir == types.DirectionDelete {
			return m.state, fmt.Errorf("%w: delete has no transfer step", ErrInvalidTransition)
		}
		if m.state == StateNew {
			return m.state, fmt.Errorf("%w: %s transfer before initialise", ErrInvalidTransition, m.dir)
		}
		return StateTransferring, nil

	case types.StepEnd:
		if m.dir != types.DirectionUpload {
			return m.state, fmt.Errorf("%w: %s has no end step", ErrInvalidTransition, m.dir)
		}
		if m.state == StateNew {
			return m.state, fmt.Errorf("%w: upload end before initialise", ErrInvalidTransition)
		}
		return StateEnded, nil

	default:
		return m.state, fmt.Errorf("%w: unknown step %s", ErrInvalidTransition, step)
	}
}

// Complete is the download termination predicate: the destination holds
// at least the authoritative number of bytes.
func Complete(observed, authoritative int64) bool {
	return observed >= authoritative
}
