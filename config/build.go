package config

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/being-run/being/block"
	"github.com/being-run/being/blocks"
	"github.com/being-run/being/canopen"
	"github.com/being-run/being/clock"
	"github.com/being-run/being/controller"
	"github.com/being-run/being/homing"
	"github.com/being-run/being/pubsub"
)

// ErrUnknownVendor is returned by BuildMotors when a MotorConfig names a
// vendor this package has no specialization for.
type ErrUnknownVendor struct {
	Motor, Vendor string
}

func (e *ErrUnknownVendor) Error() string {
	return fmt.Sprintf("config: motor %q: unknown vendor %q", e.Motor, e.Vendor)
}

// ErrUnknownBlockKind is returned by BuildBlocks when a BlockConfig names
// a kind this package can't construct.
type ErrUnknownBlockKind struct {
	Block, Kind string
}

func (e *ErrUnknownBlockKind) Error() string {
	return fmt.Sprintf("config: block %q: unknown kind %q", e.Block, e.Kind)
}

// ErrUnknownMotorReference is returned by BuildBlocks when a "motor" block
// names a MotorConfig.ID BuildMotors didn't build.
type ErrUnknownMotorReference struct {
	Block, Motor string
}

func (e *ErrUnknownMotorReference) Error() string {
	return fmt.Sprintf("config: block %q: unknown motor %q", e.Block, e.Motor)
}

// ErrMalformedEdge is returned by Wire when an EdgeConfig's "from"/"to"
// isn't the "blockID:portName" shape it requires.
type ErrMalformedEdge struct {
	Endpoint string
}

func (e *ErrMalformedEdge) Error() string {
	return fmt.Sprintf("config: malformed edge endpoint %q, want \"blockID:portName\"", e.Endpoint)
}

// ErrUnknownBlockID is returned by Wire when an edge names a block ID
// that wasn't built by BuildBlocks.
type ErrUnknownBlockID struct {
	ID string
}

func (e *ErrUnknownBlockID) Error() string {
	return fmt.Sprintf("config: edge references unknown block %q", e.ID)
}

// BuildMotors constructs one *controller.Controller (or
// *controller.Epos4Controller, wrapped behind the same motorController
// surface via the blocks package) per MotorConfig, applies its settings
// over SDO, and returns them keyed by MotorConfig.ID. backend is the
// caller's already-constructed CAN transport (out of scope for this
// package).
//
// Vendor names are matched case-insensitively via strcase.ToCamel, the
// same normalize-then-dispatch idiom lang/ uses to turn free-form
// identifiers into canonical Go names before a type switch.
//
// events, if non-nil, is subscribed to every motor's bus for all three
// event kinds (STATE_CHANGED, HOMING_CHANGED, ERROR) -- the wiring point
// telemetry.Broker.HandleMotorEvent hooks into so a single broker carries
// every axis's events without cmd/beingd reaching into each Controller.
func BuildMotors(cfg *Config, backend canopen.CanBackend, events pubsub.Handler, logf func(string, ...interface{})) (map[string]*blocks.Motor, error) {
	out := make(map[string]*blocks.Motor, len(cfg.Motors))
	for _, mc := range cfg.Motors {
		node := canopen.NewNode(mc.NodeID, backend, logf)
		bus := pubsub.NewBus()
		if events != nil {
			bus.Subscribe(pubsub.KindStateChanged, events)
			bus.Subscribe(pubsub.KindHomingChanged, events)
			bus.Subscribe(pubsub.KindError, events)
		}

		switch strcase.ToCamel(strings.ToLower(mc.Vendor)) {
		case "Epos4":
			motor := controller.NewEpos4Motor(mc.ID, mc.DeviceUnitsPerSI, mc.Length, mc.ContinuousCurrentLimit, mc.Settings)
			base := controller.New(node, motor, mc.Direction, mc.Lower, mc.Upper, bus)
			ctrl := controller.NewEpos4Controller(base, mc.UsePositionController, mc.ProportionalGain, mc.RecoverRPDOTimeoutError)
			if err := controller.ApplyEpos4Settings(node, controller.Epos4ObjectDictionary, motor.DefaultSettings, mc.Settings); err != nil {
				return nil, fmt.Errorf("config: motor %q: apply settings: %w", mc.ID, err)
			}
			method, err := homing.DefaultHomingMethod(mc.DefaultHomingMethod, mc.Direction, motor.SupportedHomingMethods)
			if err != nil {
				return nil, fmt.Errorf("config: motor %q: resolve homing method: %w", mc.ID, err)
			}
			b := blocks.NewMotor(mc.ID, ctrl)
			b.DefaultHoming = controller.Epos4ResolveHoming(node, method)
			out[mc.ID] = b

		case "Mclm3002":
			motor := controller.NewMCLM3002Motor(mc.ID, mc.DeviceUnitsPerSI, mc.Length, mc.ContinuousCurrentLimit, mc.Settings)
			ctrl := controller.New(node, motor, mc.Direction, mc.Lower, mc.Upper, bus)
			if err := controller.SetPolarity(node, mc.Direction); err != nil {
				return nil, fmt.Errorf("config: motor %q: set polarity: %w", mc.ID, err)
			}
			if err := controller.ApplySettings(node, controller.MCLM3002ObjectDictionary, motor.DefaultSettings, mc.Settings); err != nil {
				return nil, fmt.Errorf("config: motor %q: apply settings: %w", mc.ID, err)
			}
			method, err := homing.DefaultHomingMethod(mc.DefaultHomingMethod, mc.Direction, motor.SupportedHomingMethods)
			if err != nil {
				return nil, fmt.Errorf("config: motor %q: resolve homing method: %w", mc.ID, err)
			}
			b := blocks.NewMotor(mc.ID, ctrl)
			b.DefaultHoming = controller.MCLM3002ResolveHoming(node, method, mc.HomingVelocity, mc.NoProgressThreshold, mc.MinWidth, mc.ContinuousCurrentLimit)
			out[mc.ID] = b

		default:
			return nil, &ErrUnknownVendor{Motor: mc.ID, Vendor: mc.Vendor}
		}
	}
	return out, nil
}

// BuildBlocks constructs the non-motor blocks named in cfg.Blocks,
// wiring each "motor" block to the *blocks.Motor BuildMotors already
// built for the MotorConfig it names. It returns every block (motor and
// non-motor alike) keyed by ID, for Wire and for being.New's seed set.
func BuildBlocks(cfg *Config, clk *clock.Clock, motors map[string]*blocks.Motor) (map[string]block.Block, error) {
	out := make(map[string]block.Block, len(cfg.Blocks)+len(motors))
	for id, m := range motors {
		out[id] = m
	}

	for _, bc := range cfg.Blocks {
		switch strcase.ToCamel(strings.ToLower(bc.Kind)) {
		case "Sine":
			out[bc.ID] = blocks.NewSine(bc.ID, bc.Freq, clk)
		case "Trafo":
			out[bc.ID] = blocks.NewTrafo(bc.ID, bc.Scale, bc.Offset)
		case "Sink":
			out[bc.ID] = blocks.NewSink(bc.ID)
		case "Motor":
			m, ok := motors[bc.Motor]
			if !ok {
				return nil, &ErrUnknownMotorReference{Block: bc.ID, Motor: bc.Motor}
			}
			out[bc.ID] = m
		default:
			return nil, &ErrUnknownBlockKind{Block: bc.ID, Kind: bc.Kind}
		}
	}
	return out, nil
}

// Wire links every EdgeConfig's "blockID:portName" endpoints via
// block.Link, the multi-port counterpart to Pipe that resolves named
// ports instead of relying on a single candidate per side.
func Wire(cfg *Config, byID map[string]block.Block) error {
	for _, e := range cfg.Edges {
		fromID, fromPort, err := splitEndpoint(e.From)
		if err != nil {
			return err
		}
		toID, toPort, err := splitEndpoint(e.To)
		if err != nil {
			return err
		}
		from, ok := byID[fromID]
		if !ok {
			return &ErrUnknownBlockID{ID: fromID}
		}
		to, ok := byID[toID]
		if !ok {
			return &ErrUnknownBlockID{ID: toID}
		}
		if err := block.Link(from, fromPort, to, toPort); err != nil {
			return fmt.Errorf("config: wire %s -> %s: %w", e.From, e.To, err)
		}
	}
	return nil
}

func splitEndpoint(s string) (id, port string, err error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", "", &ErrMalformedEdge{Endpoint: s}
	}
	return s[:i], s[i+1:], nil
}
