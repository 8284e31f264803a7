// Package homing implements the two homing state machines this runtime
// needs: the standard CiA-402 method runner and the crude hard-stop
// (current-limited) homer used when a vendor doesn't implement hard-stop
// homing natively. Both are modeled as explicit step(tick) state machines
// rather than coroutines, structurally grounded on engine/graph/state.go's
// per-vertex poll-and-advance Process loop.
package homing

import (
	"errors"
	"fmt"
)

// State is the lifecycle of a homing attempt.
type State int

const (
	Unhomed State = iota
	Ongoing
	Homed
	Failed
)

func (s State) String() string {
	switch s {
	case Unhomed:
		return "UNHOMED"
	case Ongoing:
		return "ONGOING"
	case Homed:
		return "HOMED"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrUnsupportedHomingMethod is returned when an explicit or derived
// homing method isn't in the controller's supported set.
var ErrUnsupportedHomingMethod = errors.New("homing: unsupported homing method")

// ErrHomingFailed is wrapped into the terminal error recorded when a
// homing attempt fails (timeout, CiA-402 homing-error bit, or a
// crude-homing sanity check).
var ErrHomingFailed = errors.New("homing: failed")

// Homing is the common contract CiA402Homing and CrudeHoming both satisfy.
type Homing interface {
	// Home starts (or restarts) the homing attempt.
	Home() error
	// Update advances the state machine by one tick and returns the
	// resulting state.
	Update(cycle int64) State
	// State returns the last state Update produced.
	State() State
	// Homed reports whether homing has completed successfully.
	Homed() bool
	// Ongoing reports whether a homing attempt is in progress.
	Ongoing() bool
	// Err returns the terminal error, if State() == Failed.
	Err() error
}

// DefaultHomingMethod resolves the homing method to use: an explicit
// method wins outright (failing if unsupported); otherwise the direction
// sign selects between a standard/hard-stop method pair, preferring the
// standard CiA-402 methods (17/18) over the crude hard-stop ones (-1..-4)
// when both are supported.
func DefaultHomingMethod(explicit *int8, direction int8, supported []int8) (int8, error) {
	contains := func(m int8) bool {
		for _, s := range supported {
			if s == m {
				return true
			}
		}
		return false
	}

	if explicit != nil {
		if !contains(*explicit) {
			return 0, ErrUnsupportedHomingMethod
		}
		return *explicit, nil
	}

	var candidates []int8
	if direction >= 0 {
		candidates = []int8{17, -1, -3}
	} else {
		candidates = []int8{18, -2, -4}
	}
	for _, c := range candidates {
		if contains(c) {
			return c, nil
		}
	}
	return 0, ErrUnsupportedHomingMethod
}
