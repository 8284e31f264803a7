package controller

import (
	errwrap "github.com/pkg/errors"

	"github.com/being-run/being/canopen"
	"github.com/being-run/being/homing"
	"github.com/being-run/being/pubsub"
)

// Controller is the vendor-aware wrapper around a drive: one CanNode, one
// Motor profile, a direction, a device-unit clipping window, the current
// homing driver, an optional in-flight state-switch
// job, and a pub/sub surface. It is deliberately a plain struct with an
// explicit per-tick Update, not a goroutine -- grounded on
// engine/graph/state.go's per-vertex State: cached status, a Logf, and a
// Process method driven externally once per tick.
type Controller struct {
	Node  *canopen.Node
	Motor *Motor
	Bus   *pubsub.Bus

	// Direction is +1 or -1; it selects between "pos" and "length - pos"
	// in SetTargetPosition and the default homing direction.
	Direction int8

	// Lower, Upper bound SetTargetPosition's device-unit clip window.
	Lower, Upper int32

	homing    homing.Homing
	switchJob *canopen.StateSwitchJob

	lastState     canopen.State
	haveLastState bool

	// lastFaultEMCY snapshots the EMCY records observed and published
	// during the most recent FAULT tick, before ResetEMCY clears the
	// node's inbox. Vendor specializations that need to react to a
	// specific EMCY code after calling the embedded Update (e.g. EPOS4's
	// RPDO-timeout recovery) must read this rather than the node's
	// inbox, which is already empty by the time Update returns.
	lastFaultEMCY []canopen.EMCYRecord
}

// New returns a Controller wrapping node and motor, with no homing driver
// or state-switch job yet in flight.
func New(node *canopen.Node, motor *Motor, direction int8, lower, upper int32, bus *pubsub.Bus) *Controller {
	if bus == nil {
		bus = pubsub.NewBus()
	}
	return &Controller{
		Node:      node,
		Motor:     motor,
		Bus:       bus,
		Direction: direction,
		Lower:     lower,
		Upper:     upper,
	}
}

// Enable starts an asynchronous state-switch job driving the node to
// OPERATION_ENABLED. It replaces any job already in flight.
func (c *Controller) Enable() error {
	job, err := canopen.NewStateSwitchJob(c.Node, canopen.StateOperationEnabled)
	if err != nil {
		return err
	}
	c.switchJob = job
	return nil
}

// Home starts h (already configured for this controller's node and
// resolved method) as the current homing driver, replacing any homing
// attempt already in flight.
func (c *Controller) Home(h homing.Homing) error {
	if err := h.Home(); err != nil {
		return err
	}
	c.homing = h
	return nil
}

// Homed reports whether the current homing driver, if any, has completed
// successfully.
func (c *Controller) Homed() bool {
	return c.homing != nil && c.homing.Homed()
}

// SwitchJobInFlight reports whether a state-switch job is currently being
// advanced.
func (c *Controller) SwitchJobInFlight() bool { return c.switchJob != nil }

// LastFaultEMCY returns the EMCY records drained and published during the
// most recent Update tick that observed FAULT, or nil if that tick wasn't
// a FAULT tick (or hadn't happened yet). It reflects what Update actually
// saw before ResetEMCY cleared the node's inbox, so vendor specializations
// layered on top of Update can still inspect it afterwards.
func (c *Controller) LastFaultEMCY() []canopen.EMCYRecord { return c.lastFaultEMCY }

// HasLastFaultEMCY reports whether code appeared in LastFaultEMCY.
func (c *Controller) HasLastFaultEMCY(code uint16) bool {
	for _, rec := range c.lastFaultEMCY {
		if rec.Code == code {
			return true
		}
	}
	return false
}

// Update advances the controller by one tick, in this fixed order:
//  1. refresh state from the statusword; publish STATE_CHANGED if it moved
//  2. drain and publish EMCY records while in FAULT
//  3. advance an ongoing homing job, publishing HOMING_CHANGED on its
//     terminal transition
//  4. otherwise advance an in-flight state-switch job, clearing it on
//     completion or timeout
func (c *Controller) Update(cycle int64) error {
	state, changed, err := c.Node.RefreshState()
	if err != nil {
		return errwrap.Wrapf(err, "controller: node %d: refresh state", c.Node.NodeID)
	}
	if changed || !c.haveLastState {
		c.haveLastState = true
		c.lastState = state
		c.Bus.Publish(pubsub.Event{Kind: pubsub.KindStateChanged, NodeID: c.Node.NodeID, Data: state})
	}

	c.lastFaultEMCY = nil
	if state == canopen.StateFault {
		c.Node.PollEMCY()
		c.lastFaultEMCY = c.Node.EMCYInbox()
		for _, rec := range c.lastFaultEMCY {
			c.Bus.Publish(pubsub.Event{Kind: pubsub.KindError, NodeID: c.Node.NodeID, Data: rec})
		}
		c.Node.ResetEMCY()
	}

	switch {
	case c.homing != nil && c.homing.Ongoing():
		result := c.homing.Update(cycle)
		if result != homing.Ongoing {
			c.Bus.Publish(pubsub.Event{Kind: pubsub.KindHomingChanged, NodeID: c.Node.NodeID, Data: result})
		}
	case c.switchJob != nil:
		done, _ := c.switchJob.Tick()
		if done {
			c.switchJob = nil
		}
	}

	return nil
}

// SetTargetPosition converts siPos to device units, clips it to
// [Lower, Upper], applies Direction, and writes PDO Target Position. It
// is a no-op while the controller isn't homed -- target writes are
// silently ignored until homing completes.
func (c *Controller) SetTargetPosition(siPos float64) error {
	if !c.Homed() {
		return nil
	}
	devPos := int32(siPos * c.Motor.DeviceUnitsPerSI)
	if devPos < c.Lower {
		devPos = c.Lower
	}
	if devPos > c.Upper {
		devPos = c.Upper
	}
	pos := devPos
	if c.Direction < 0 {
		pos = c.Motor.Length - devPos
	}
	return c.Node.WriteTargetPosition(pos)
}

// ActualPosition reads the node's actual position (device units) and
// converts it back to SI units, applying the inverse of
// SetTargetPosition's direction transform.
func (c *Controller) ActualPosition() (float64, error) {
	actual, err := c.Node.ReadActualPosition()
	if err != nil {
		return 0, errwrap.Wrapf(err, "controller: node %d: read actual position", c.Node.NodeID)
	}
	devPos := actual
	if c.Direction < 0 {
		devPos = c.Motor.Length - actual
	}
	return float64(devPos) / c.Motor.DeviceUnitsPerSI, nil
}

// PlayPositionProfile switches to PROFILE_POSITION mode (writing the
// optional velocity/acceleration limits first, if given) and commands
// pos (SI units, converted and clipped the same way SetTargetPosition
// does).
func (c *Controller) PlayPositionProfile(pos float64, vel, acc *float64) error {
	if err := c.applyProfileLimits(vel, acc); err != nil {
		return err
	}
	if err := c.Node.SetOperationModeSDO(canopen.OpModeProfilePosition); err != nil {
		return errwrap.Wrapf(err, "controller: node %d: enter profile position mode", c.Node.NodeID)
	}
	return c.SetTargetPosition(pos)
}

// PlayVelocityProfile switches to PROFILE_VELOCITY mode (writing the
// optional acceleration limit first, if given) and commands vel (SI
// units/second, converted via the motor's unit factor).
func (c *Controller) PlayVelocityProfile(vel float64, acc *float64) error {
	if err := c.applyProfileLimits(nil, acc); err != nil {
		return err
	}
	if err := c.Node.SetOperationModeSDO(canopen.OpModeProfileVelocity); err != nil {
		return errwrap.Wrapf(err, "controller: node %d: enter profile velocity mode", c.Node.NodeID)
	}
	devVel := int32(vel * c.Motor.DeviceUnitsPerSI)
	return c.Node.WriteTargetVelocity(devVel)
}

func (c *Controller) applyProfileLimits(vel, acc *float64) error {
	if vel != nil {
		data := putLE32(int32(*vel * c.Motor.DeviceUnitsPerSI))
		if err := c.Node.Backend.SDOWrite(c.Node.NodeID, canopen.IndexProfileVelocity, 0, data); err != nil {
			return errwrap.Wrapf(err, "controller: node %d: set profile velocity", c.Node.NodeID)
		}
	}
	if acc != nil {
		data := putLE32(int32(*acc * c.Motor.DeviceUnitsPerSI))
		if err := c.Node.Backend.SDOWrite(c.Node.NodeID, canopen.IndexProfileAcceleration, 0, data); err != nil {
			return errwrap.Wrapf(err, "controller: node %d: set profile acceleration", c.Node.NodeID)
		}
	}
	return nil
}

func putLE32(v int32) []byte {
	b := make([]byte, 4)
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return b
}
