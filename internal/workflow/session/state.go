package session

import (
	"errors"
	"fmt"
)

// State is a phase of the session loop.
type State int

const (
	StateIdle State = iota
	StateAwaitingModel
	StateExecutingTools
	StateAwaitingApproval
	StateInterrupted
	StateMaxIterationsReached
	StateFatalError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTools:
		return "executing_tools"
	case StateAwaitingApproval:
		return "awaiting_approval"
	case StateInterrupted:
		return "interrupted"
	case StateMaxIterationsReached:
		return "max_iterations_reached"
	case StateFatalError:
		return "fatal_error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrBusy              = errors.New("session is busy")
	ErrFatal             = errors.New("session stopped after a fatal error")
)

// transitions lists the legal successors of each state. FatalError has none;
// only replacing the provider leaves it.
var transitions = map[State][]State{
	StateIdle:                 {StateAwaitingModel},
	StateAwaitingModel:        {StateExecutingTools, StateIdle, StateInterrupted, StateMaxIterationsReached, StateFatalError},
	StateExecutingTools:       {StateAwaitingApproval, StateAwaitingModel, StateIdle, StateInterrupted, StateMaxIterationsReached},
	StateAwaitingApproval:     {StateExecutingTools, StateInterrupted},
	StateInterrupted:          {StateIdle},
	StateMaxIterationsReached: {StateAwaitingModel, StateIdle, StateInterrupted},
	StateFatalError:           {},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError records an illegal move.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
