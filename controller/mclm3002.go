package controller

import (
	errwrap "github.com/pkg/errors"

	"github.com/being-run/being/canopen"
	"github.com/being-run/being/homing"
)

// mclm3002CrudeMethods are the homing methods MCLM3002 (Faulhaber) only
// implements via CrudeHoming, not natively.
var mclm3002CrudeMethods = map[int8]bool{-4: true, -3: true, -2: true, -1: true}

// NewMCLM3002Motor returns a Motor profile for a Faulhaber MCLM3002 axis.
// The supported homing method set is the four crude hard-stop methods
// plus the standard 17/18 pair.
func NewMCLM3002Motor(name string, deviceUnitsPerSI float64, length, continuousCurrentLimit int32, defaults map[string]interface{}) *Motor {
	return &Motor{
		Name:                    name,
		DeviceUnitsPerSI:        deviceUnitsPerSI,
		Length:                  length,
		ContinuousCurrentLimit:  continuousCurrentLimit,
		DefaultSettings:         defaults,
		SupportedHomingMethods:  []int8{-4, -3, -2, -1, 17, 18},
	}
}

// MCLM3002ObjectDictionary is the subset of the MCLM3002 object
// dictionary ApplySettings is allowed to write to.
var MCLM3002ObjectDictionary = ObjectDictionary{
	"6073/0": {Index: canopen.IndexCurrentLimit, SubIndex: 0, Width: 4},
	"6075/0": {Index: canopen.IndexContinuousCurrentLimit, SubIndex: 0, Width: 4},
	"607E/0": {Index: canopen.IndexPolarity, SubIndex: 0, Width: 1},
	"6098/0": {Index: canopen.IndexHomingMethod, SubIndex: 0, Width: 1},
}

// SetPolarity writes object 0x607E: 0 for forward, bits 6 and 7 set for
// reverse (inverting both position and velocity).
func SetPolarity(node *canopen.Node, direction int8) error {
	var value byte
	if direction < 0 {
		value = 1<<6 | 1<<7
	}
	if err := node.Backend.SDOWrite(node.NodeID, canopen.IndexPolarity, 0, []byte{value}); err != nil {
		return errwrap.Wrapf(err, "controller: node %d: set polarity", node.NodeID)
	}
	return nil
}

// MCLM3002ResolveHoming builds the homing.Homing driver to use for
// method, forcing CrudeHoming for the four hard-stop methods and
// CiA402Homing's native runner for everything else (17, 18, and any
// standard method a caller explicitly selects).
func MCLM3002ResolveHoming(node *canopen.Node, method int8, velocity int32, noProgressThreshold int, minWidth int32, continuousCurrentLimit int32) homing.Homing {
	if mclm3002CrudeMethods[method] {
		return homing.NewCrudeHoming(node, homing.CrudeHomingSettings{
			Method:                 method,
			HomingVelocity:         velocity,
			NoProgressThreshold:    noProgressThreshold,
			MinWidth:               minWidth,
			ContinuousCurrentLimit: continuousCurrentLimit,
		})
	}
	return homing.NewCiA402Homing(node, method)
}
