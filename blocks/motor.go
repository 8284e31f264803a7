package blocks

import (
	"github.com/being-run/being/block"
	"github.com/being-run/being/controller"
	"github.com/being-run/being/homing"
)

// motorController is the subset of controller.Controller's surface Motor
// needs, satisfied by both *controller.Controller and
// *controller.Epos4Controller: per-tick update, the gated setpoint write,
// and the two asynchronous jobs Being starts across every motor at once
// (Enable/Home).
type motorController interface {
	Update(cycle int64) error
	SetTargetPosition(siPos float64) error
	ActualPosition() (float64, error)
	Enable() error
	Home(h homing.Homing) error
	Homed() bool
}

// Motor adapts a controller.Controller (or an Epos4Controller) into a
// graph vertex: its sole input is the SI target position, and its sole
// output is the SI actual position read back from the drive each tick --
// the canonical feedback edge a behavior block closes the loop through,
// forming the one-tick-delayed cycle pgraph's back-edge handling exists
// to break. Update drives the controller's own per-tick Update, then
// writes the setpoint in and reads the actual position out. DefaultHoming,
// when set, is the homing driver HomeMotors() starts; config.BuildMotors
// always sets it from the vendor's ResolveHoming helper.
type Motor struct {
	*block.Base
	Controller    motorController
	DefaultHoming homing.Homing
	in            *block.ValueInput
	out           *block.ValueOutput
}

// NewMotor returns a Motor block wrapping ctrl.
func NewMotor(id string, ctrl motorController) *Motor {
	m := &Motor{Base: block.NewBase(id), Controller: ctrl}
	m.in = m.AddValueInput("target_position")
	m.out = m.AddValueOutput("actual_position")
	return m
}

// BlockBase exposes the embedded Base for Pipe/Link.
func (m *Motor) BlockBase() *block.Base { return m.Base }

// Update advances the wrapped controller, applies the current
// target-position input, then reads the actual position back out.
func (m *Motor) Update(cycle int64) error {
	if err := m.Controller.Update(cycle); err != nil {
		return err
	}
	if err := m.Controller.SetTargetPosition(m.in.Get()); err != nil {
		return err
	}
	actual, err := m.Controller.ActualPosition()
	if err != nil {
		return err
	}
	m.out.Set(actual)
	return nil
}

// IsMotor marks this block for Being's motors role collection.
func (m *Motor) IsMotor() bool { return true }

// Enable starts the wrapped controller's enable state-switch job.
func (m *Motor) Enable() error { return m.Controller.Enable() }

// Home starts DefaultHoming as the wrapped controller's homing driver. It
// is a no-op if no default homing driver was configured.
func (m *Motor) Home() error {
	if m.DefaultHoming == nil {
		return nil
	}
	return m.Controller.Home(m.DefaultHoming)
}

// Homed reports whether the wrapped controller has completed homing.
func (m *Motor) Homed() bool { return m.Controller.Homed() }

var _ motorController = (*controller.Controller)(nil)
var _ motorController = (*controller.Epos4Controller)(nil)
