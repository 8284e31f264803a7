// Package config loads INTERVAL, WEB_INTERVAL, motor definitions, and
// block wiring from a YAML document and builds the corresponding runtime
// objects, mirroring yamlgraph/gconfig.go's GraphConfig/Parse/
// NewGraphFromConfig trio: unmarshal, validate required fields, then
// build. The CAN transport driver itself stays out of scope -- BuildMotors
// takes a canopen.CanBackend the caller already constructed.
package config

// MotorConfig describes one axis: which vendor specialization drives it,
// its CANopen node id, its static profile (unit conversion, travel
// length, current limit), its default homing method, and any SDO setting
// overrides layered onto the vendor's defaults.
type MotorConfig struct {
	ID     string `yaml:"id"`
	Vendor string `yaml:"vendor"` // "epos4" or "mclm3002", case-insensitive

	NodeID    int   `yaml:"node_id"`
	Direction int8  `yaml:"direction"`
	Lower     int32 `yaml:"lower"`
	Upper     int32 `yaml:"upper"`

	DeviceUnitsPerSI       float64 `yaml:"device_units_per_si"`
	Length                 int32   `yaml:"length"`
	ContinuousCurrentLimit int32   `yaml:"continuous_current_limit"`

	// DefaultHomingMethod, if set, wins outright over the
	// direction-based tie-break in homing.DefaultHomingMethod. Left nil,
	// the axis's Direction and its vendor's SupportedHomingMethods
	// decide which method is used.
	DefaultHomingMethod *int8                  `yaml:"default_homing_method"`
	Settings            map[string]interface{} `yaml:"settings"`

	// EPOS4-only fields; ignored for mclm3002.
	UsePositionController   bool    `yaml:"use_position_controller"`
	ProportionalGain        float64 `yaml:"proportional_gain"`
	RecoverRPDOTimeoutError bool    `yaml:"recover_rpdo_timeout_error"`

	// MCLM3002-only fields, used when DefaultHomingMethod selects one of
	// its four crude hard-stop methods; ignored otherwise.
	HomingVelocity      int32 `yaml:"homing_velocity"`
	NoProgressThreshold int   `yaml:"no_progress_threshold"`
	MinWidth            int32 `yaml:"min_width"`
}

// BlockConfig describes one dataflow block. Kind selects the
// constructor; the remaining fields are interpreted according to Kind
// and are otherwise ignored.
type BlockConfig struct {
	Kind string `yaml:"kind"` // "sine", "trafo", "sink", "motor"
	ID   string `yaml:"id"`

	// sine
	Freq float64 `yaml:"freq"`

	// trafo
	Scale  float64 `yaml:"scale"`
	Offset float64 `yaml:"offset"`

	// motor: references a MotorConfig.ID built by BuildMotors
	Motor string `yaml:"motor"`
}

// EdgeConfig wires one block's output port to another's input port, each
// given as "blockID:portName".
type EdgeConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Config is the top-level document: scheduler cadence, motor
// definitions, and the block graph.
type Config struct {
	Interval    float64 `yaml:"interval"`
	WebInterval float64 `yaml:"web_interval"`

	Motors []MotorConfig `yaml:"motors"`
	Blocks []BlockConfig `yaml:"blocks"`
	Edges  []EdgeConfig  `yaml:"edges"`
}
