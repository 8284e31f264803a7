package controller

import (
	errwrap "github.com/pkg/errors"

	"github.com/being-run/being/canopen"
	"github.com/being-run/being/homing"
)

// Epos4ResolveHoming builds the standard CiA402Homing driver for method,
// substituting 37 for 35 first per SubstituteHomingMethod.
func Epos4ResolveHoming(node *canopen.Node, method int8) homing.Homing {
	return homing.NewCiA402Homing(node, SubstituteHomingMethod(method))
}

// NewEpos4Motor returns a Motor profile for a Maxon EPOS4 axis. EPOS4
// only drives the standard CiA-402 homing methods (no crude hard-stop
// homing, unlike MCLM3002).
func NewEpos4Motor(name string, deviceUnitsPerSI float64, length, continuousCurrentLimit int32, defaults map[string]interface{}) *Motor {
	return &Motor{
		Name:                   name,
		DeviceUnitsPerSI:       deviceUnitsPerSI,
		Length:                 length,
		ContinuousCurrentLimit: continuousCurrentLimit,
		DefaultSettings:        defaults,
		SupportedHomingMethods: []int8{17, 18, 35, 37},
	}
}

// Epos4ObjectDictionary is the subset of the EPOS4 object dictionary
// ApplySettings is allowed to write to.
var Epos4ObjectDictionary = ObjectDictionary{
	"6073/0": {Index: canopen.IndexCurrentLimit, SubIndex: 0, Width: 4},
	"6075/0": {Index: canopen.IndexContinuousCurrentLimit, SubIndex: 0, Width: 4},
	"6098/0": {Index: canopen.IndexHomingMethod, SubIndex: 0, Width: 1},
	"6081/0": {Index: canopen.IndexProfileVelocity, SubIndex: 0, Width: 4},
	"6083/0": {Index: canopen.IndexProfileAcceleration, SubIndex: 0, Width: 4},
}

// epos4RecoverableEMCY is the EMCY code the EPOS4 (Maxon) specialization
// watches for while in FAULT: an RPDO timeout the drive can recover from
// by simply re-enabling.
const epos4RecoverableEMCY uint16 = 0x8250

// epos4IndexDigitalInputFunction is the vendor object (per axis, one sub-index
// per digital input) EPOS4's firmware uses to bind a digital input to a
// function; "none" is value 0.
const epos4IndexDigitalInputFunction uint16 = 0x2070

// epos4DigitalInputCount is how many digital inputs EPOS4 exposes on
// this object.
const epos4DigitalInputCount = 8

// SubstituteHomingMethod applies EPOS4's firmware restriction: method 35
// isn't implemented and must be requested as 37 instead.
func SubstituteHomingMethod(method int8) int8 {
	if method == 35 {
		return 37
	}
	return method
}

// ResetDigitalInputs writes "NONE" to every digital-input function
// binding before settings are applied, avoiding a double-bind conflict
// on the EPOS4.
func ResetDigitalInputs(node *canopen.Node) error {
	for sub := uint8(1); sub <= epos4DigitalInputCount; sub++ {
		if err := node.Backend.SDOWrite(node.NodeID, epos4IndexDigitalInputFunction, sub, []byte{0}); err != nil {
			return errwrap.Wrapf(err, "controller: node %d: reset digital input %d", node.NodeID, sub)
		}
	}
	return nil
}

// ApplyEpos4Settings resets every digital input binding to NONE (to avoid
// double-bind conflicts) and then applies settings the normal way.
func ApplyEpos4Settings(node *canopen.Node, dict ObjectDictionary, defaults, overrides map[string]interface{}) error {
	if err := ResetDigitalInputs(node); err != nil {
		return err
	}
	return ApplySettings(node, dict, defaults, overrides)
}

// Epos4Controller wraps Controller with two behaviors specific to the
// Maxon EPOS4: a software proportional
// velocity controller substituting for the drive's position controller,
// and automatic recovery from a specific RPDO-timeout emergency.
type Epos4Controller struct {
	*Controller

	// UsePositionController selects the drive's native position
	// controller (true) or the software proportional controller (false).
	UsePositionController bool

	// ProportionalGain (k in v = k*(p_ref - p_actual)) used when
	// UsePositionController is false.
	ProportionalGain float64

	// RecoverRPDOTimeoutError enables the 0x8250 auto-recovery path.
	RecoverRPDOTimeoutError bool

	targetPosition int32
	haveTarget     bool
	recovering     bool
}

// NewEpos4Controller wraps ctrl with EPOS4-specific behavior.
func NewEpos4Controller(ctrl *Controller, usePositionController bool, gain float64, recoverRPDOTimeoutError bool) *Epos4Controller {
	return &Epos4Controller{
		Controller:              ctrl,
		UsePositionController:   usePositionController,
		ProportionalGain:        gain,
		RecoverRPDOTimeoutError: recoverRPDOTimeoutError,
	}
}

// SetTargetPosition, when UsePositionController is false, records the
// clipped reference position for the software proportional controller
// and, once homed, switches the drive to CYCLIC_SYNCHRONOUS_VELOCITY; no
// Target Position is written on that path. Otherwise it defers to the
// base Controller.SetTargetPosition.
func (e *Epos4Controller) SetTargetPosition(siPos float64) error {
	if !e.UsePositionController {
		devPos := int32(siPos * e.Motor.DeviceUnitsPerSI)
		if devPos < e.Lower {
			devPos = e.Lower
		}
		if devPos > e.Upper {
			devPos = e.Upper
		}
		e.targetPosition = devPos
		e.haveTarget = true
		if !e.Homed() {
			return nil
		}
		return e.Node.SetOperationModeSDO(canopen.OpModeCyclicSyncVelocity)
	}
	return e.Controller.SetTargetPosition(siPos)
}

// Update runs the base Controller.Update, then applies EPOS4's two
// specializations: the software proportional velocity loop (when
// UsePositionController is false) and 0x8250 RPDO-timeout recovery.
func (e *Epos4Controller) Update(cycle int64) error {
	if err := e.Controller.Update(cycle); err != nil {
		return err
	}

	if e.Node.State() == canopen.StateFault {
		if e.RecoverRPDOTimeoutError && e.HasLastFaultEMCY(epos4RecoverableEMCY) {
			if err := e.Enable(); err != nil {
				return err
			}
			e.recovering = true
		}
		return nil
	}
	if e.recovering {
		e.recovering = false
	}

	if !e.UsePositionController && e.haveTarget && e.Homed() {
		actual, err := e.Node.ReadActualPosition()
		if err != nil {
			return errwrap.Wrapf(err, "controller: node %d: read actual position", e.Node.NodeID)
		}
		v := e.ProportionalGain * float64(e.targetPosition-actual)
		if err := e.Node.WriteTargetVelocity(int32(v)); err != nil {
			return errwrap.Wrapf(err, "controller: node %d: write proportional velocity", e.Node.NodeID)
		}
	}
	return nil
}
