// Package controller implements Controller, the vendor-aware wrapper
// around one canopen.Node and one Motor profile: direction,
// target-position clipping, the current homing driver, an optional
// in-flight state-switch job, and the STATE_CHANGED/HOMING_CHANGED/ERROR
// pub/sub surface.
package controller

// Motor is the static, mostly-vendor-supplied profile for one axis: unit
// conversion, the usable travel length, and the SDO defaults the vendor
// specialization applies at startup. Grounded on
// engine/traits/meta.go's "struct holds the static config, a trait method
// lazily seeds it from a package-level default" shape.
type Motor struct {
	Name string

	// DeviceUnitsPerSI converts an SI position (meters, or radians for a
	// rotary axis) into device units (encoder counts).
	DeviceUnitsPerSI float64

	// Length is the usable travel in device units; SetTargetPosition
	// uses it for the direction<0 "length - pos" transform. CrudeHoming
	// does not use it (its width check is against MinWidth).
	Length int32

	// ContinuousCurrentLimit is object 0x6075's nominal value, in device
	// current units. CrudeHoming derives its homing-safe current limit
	// from this.
	ContinuousCurrentLimit int32

	// DefaultSettings are the vendor/profile SDO defaults, keyed by
	// "Object/Subobject" path (e.g. "6073/0"), merged with user
	// overrides by ApplySettings.
	DefaultSettings map[string]interface{}

	// SupportedHomingMethods bounds DefaultHomingMethod's candidate set
	// for this controller.
	SupportedHomingMethods []int8
}
