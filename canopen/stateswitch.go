package canopen

import (
	"fmt"

	"github.com/google/uuid"
)

// StateSwitchTimeout is the number of ticks a StateSwitchJob will wait
// without observing progress before failing.
const StateSwitchTimeout = 200

// ErrStateSwitchTimeout is returned by StateSwitchJob.Tick when no
// progress has been observed for StateSwitchTimeout ticks.
type ErrStateSwitchTimeout struct {
	NodeID int
	Target State
}

func (e *ErrStateSwitchTimeout) Error() string {
	return fmt.Sprintf("canopen: node %d: state switch to %s timed out", e.NodeID, e.Target)
}

// StateSwitchJob drives a node from its current state to a target state
// over PDO, one controlword write per tick, modeled as an explicit
// step-function rather than a coroutine.
type StateSwitchJob struct {
	ID     uuid.UUID
	node   *Node
	target State
	plan   []TransitionStep
	step   int

	ticksWithoutProgress int
	done                 bool
	err                  error
}

// NewStateSwitchJob computes the transition plan from node's current
// state to target and returns a job ready to Tick. It errors immediately
// if no path exists.
func NewStateSwitchJob(node *Node, target State) (*StateSwitchJob, error) {
	plan, err := PlanTransition(node.State(), target)
	if err != nil {
		return nil, err
	}
	return &StateSwitchJob{
		ID:     uuid.New(),
		node:   node,
		target: target,
		plan:   plan,
	}, nil
}

// Done reports whether the job has reached a terminal outcome (success or
// timeout).
func (j *StateSwitchJob) Done() bool { return j.done }

// Err returns the job's terminal error, if it failed.
func (j *StateSwitchJob) Err() error { return j.err }

// Target returns the state this job is driving the node towards.
func (j *StateSwitchJob) Target() State { return j.target }

// Tick issues the next controlword (if any remain) and inspects the
// latest statusword. It returns true once the job has reached a terminal
// outcome; callers should stop calling Tick after that and inspect Err.
func (j *StateSwitchJob) Tick() (bool, error) {
	if j.done {
		return true, j.err
	}

	if len(j.plan) == 0 {
		// already at target when the job was created
		j.done = true
		return true, nil
	}

	if j.step < len(j.plan) {
		if err := j.node.WriteControlword(j.plan[j.step].Controlword); err != nil {
			j.done = true
			j.err = err
			return true, j.err
		}
	}

	state, _, err := j.node.RefreshState()
	if err != nil {
		j.done = true
		j.err = err
		return true, j.err
	}

	if state == j.target {
		j.done = true
		return true, nil
	}

	if j.step < len(j.plan) && state == j.plan[j.step].Expect {
		j.step++
		j.ticksWithoutProgress = 0
		return false, nil
	}

	j.ticksWithoutProgress++
	if j.ticksWithoutProgress >= StateSwitchTimeout {
		j.err = &ErrStateSwitchTimeout{NodeID: j.node.NodeID, Target: j.target}
		j.done = true
		return true, j.err
	}
	return false, nil
}

// ChangeStateSDO performs a synchronous, blocking transition to target
// using SDO writes, confirming each step by reading back the statusword
// before issuing the next command. Unlike the PDO job, this never
// suspends across ticks -- it's meant for startup/configuration time, not
// the realtime hot path.
func (n *Node) ChangeStateSDO(target State) error {
	plan, err := PlanTransition(n.State(), target)
	if err != nil {
		return err
	}
	for _, step := range plan {
		if err := n.Backend.SDOWrite(n.NodeID, IndexControlword, 0, putLE16(step.Controlword)); err != nil {
			return err
		}
		n.controlword = step.Controlword
		data, err := n.Backend.SDORead(n.NodeID, IndexStatusword, 0)
		if err != nil {
			return err
		}
		n.statusword = le16(data)
		n.state = WhichState(n.statusword)
		if n.state != step.Expect {
			return fmt.Errorf("canopen: node %d: sdo transition expected %s, observed %s", n.NodeID, step.Expect, n.state)
		}
	}
	return nil
}
