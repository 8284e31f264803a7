// Package canopen implements the CiA-402 drive abstraction: the
// statusword-driven state machine, the controlword transition planner, the
// PDO/SDO/NMT/EMCY primitives a CanBackend must provide, and the
// asynchronous, resumable state-switch job. It is grounded on
// engine/graph/state.go's per-vertex State struct (cached status, Logf,
// timestamp bookkeeping) and engine/world.go's "everything external the
// runtime needs, captured as one interface" shape for CanBackend, and on
// the bit patterns and transition table documented by the CiA-402 device
// profile itself.
package canopen

import "fmt"

// State is one of the eight states of the CiA-402 statusword state
// machine.
type State int

// The eight CiA-402 states, in the order the device profile documents
// them.
const (
	StateNotReadyToSwitchOn State = iota
	StateSwitchOnDisabled
	StateReadyToSwitchOn
	StateSwitchedOn
	StateOperationEnabled
	StateQuickStopActive
	StateFaultReactionActive
	StateFault
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateNotReadyToSwitchOn:
		return "NOT_READY_TO_SWITCH_ON"
	case StateSwitchOnDisabled:
		return "SWITCH_ON_DISABLED"
	case StateReadyToSwitchOn:
		return "READY_TO_SWITCH_ON"
	case StateSwitchedOn:
		return "SWITCHED_ON"
	case StateOperationEnabled:
		return "OPERATION_ENABLED"
	case StateQuickStopActive:
		return "QUICK_STOP_ACTIVE"
	case StateFaultReactionActive:
		return "FAULT_REACTION_ACTIVE"
	case StateFault:
		return "FAULT"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// statuswordMask covers the bits the CiA-402 state decode table documents:
// bit0 ready-switch-on, bit1 switched-on, bit2 operation-enabled, bit3
// fault, bit5 quick-stop, bit6 switch-on-disabled.
const statuswordMask = 0x6F

// WhichState decodes a raw statusword into one of the eight CiA-402
// states using the documented bit masks.
func WhichState(statusword uint16) State {
	switch statusword & statuswordMask {
	case 0x00:
		return StateNotReadyToSwitchOn
	case 0x40:
		return StateSwitchOnDisabled
	case 0x21:
		return StateReadyToSwitchOn
	case 0x23:
		return StateSwitchedOn
	case 0x27:
		return StateOperationEnabled
	case 0x07:
		return StateQuickStopActive
	case 0x0F:
		return StateFaultReactionActive
	case 0x08:
		return StateFault
	default:
		// bit3 (fault) dominates any other undocumented combination
		if statusword&0x08 != 0 {
			return StateFault
		}
		return StateNotReadyToSwitchOn
	}
}

// controlwordCmd is one entry of the static transition table: the
// controlword bit pattern (value, under mask) that must be written to move
// between two adjacent states.
type controlwordCmd struct {
	name  string
	value uint16
	mask  uint16
}

// The seven standard CiA-402 controlword commands.
var (
	cmdShutdown          = controlwordCmd{"shutdown", 0x06, 0x87}
	cmdSwitchOn          = controlwordCmd{"switch on", 0x07, 0x87}
	cmdDisableVoltage    = controlwordCmd{"disable voltage", 0x00, 0x82}
	cmdQuickStop         = controlwordCmd{"quick stop", 0x02, 0x86}
	cmdDisableOperation  = controlwordCmd{"disable operation", 0x07, 0x8F}
	cmdEnableOperation   = controlwordCmd{"enable operation", 0x0F, 0x8F}
	cmdFaultReset        = controlwordCmd{"fault reset", 0x80, 0x80}
)

// transitionEdge is one legal single-step edge in the state diagram.
type transitionEdge struct {
	from, to State
	cmd      controlwordCmd
}

// transitionTable enumerates every legal single-step edge this
// implementation supports planning multi-step transitions over.
var transitionTable = []transitionEdge{
	{StateSwitchOnDisabled, StateReadyToSwitchOn, cmdShutdown},
	{StateReadyToSwitchOn, StateSwitchOnDisabled, cmdDisableVoltage},
	{StateReadyToSwitchOn, StateSwitchedOn, cmdSwitchOn},
	{StateSwitchedOn, StateReadyToSwitchOn, cmdShutdown},
	{StateSwitchedOn, StateOperationEnabled, cmdEnableOperation},
	{StateOperationEnabled, StateSwitchedOn, cmdDisableOperation},
	{StateOperationEnabled, StateQuickStopActive, cmdQuickStop},
	{StateQuickStopActive, StateOperationEnabled, cmdEnableOperation},
	{StateQuickStopActive, StateSwitchOnDisabled, cmdDisableVoltage},
	{StateFault, StateSwitchOnDisabled, cmdFaultReset},
}

// TransitionStep is one step of a computed transition plan: the
// controlword to write, and the state that write is expected to produce.
type TransitionStep struct {
	Controlword uint16
	Expect       State
}

// PlanTransition computes the shortest sequence of controlword writes that
// moves a drive from `from` to `target`, by breadth-first search over
// transitionTable. It returns an empty plan (not an error) if from ==
// target. It errors if no path exists (eg. target is
// NOT_READY_TO_SWITCH_ON or FAULT_REACTION_ACTIVE, which are never legally
// commanded into).
func PlanTransition(from, target State) ([]TransitionStep, error) {
	if from == target {
		return nil, nil
	}

	type queued struct {
		state State
		path  []TransitionStep
	}
	visited := map[State]bool{from: true}
	queue := []queued{{state: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, edge := range transitionTable {
			if edge.from != cur.state || visited[edge.to] {
				continue
			}
			path := append(append([]TransitionStep{}, cur.path...), TransitionStep{
				Controlword: edge.cmd.value,
				Expect:      edge.to,
			})
			if edge.to == target {
				return path, nil
			}
			visited[edge.to] = true
			queue = append(queue, queued{state: edge.to, path: path})
		}
	}
	return nil, fmt.Errorf("canopen: no transition path from %s to %s", from, target)
}
