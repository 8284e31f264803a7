package being_test

import (
	"testing"

	"github.com/being-run/being/being"
	"github.com/being-run/being/block"
	"github.com/being-run/being/blocks"
	"github.com/being-run/being/clock"
	"github.com/being-run/being/homing"
)

// fakeMotorController is a bare-bones motorController double so being
// tests exercise Enable/Home/Homed without a real CanNode.
type fakeMotorController struct {
	enabled    bool
	homed      bool
	homeCall   int
	lastTarget float64
	actual     float64
}

func (f *fakeMotorController) Update(cycle int64) error { return nil }
func (f *fakeMotorController) SetTargetPosition(pos float64) error {
	f.lastTarget = pos
	return nil
}
func (f *fakeMotorController) ActualPosition() (float64, error) { return f.actual, nil }
func (f *fakeMotorController) Enable() error                      { f.enabled = true; return nil }
func (f *fakeMotorController) Home(h homing.Homing) error          { f.homeCall++; f.homed = true; return nil }
func (f *fakeMotorController) Homed() bool                         { return f.homed }

type fakeHoming struct{}

func (fakeHoming) Home() error               { return nil }
func (fakeHoming) Update(cycle int64) homing.State { return homing.Homed }
func (fakeHoming) State() homing.State       { return homing.Homed }
func (fakeHoming) Homed() bool                { return true }
func (fakeHoming) Ongoing() bool              { return false }
func (fakeHoming) Err() error                 { return nil }

func TestNewBuildsExecutionOrderAndRoleCollections(t *testing.T) {
	clk := clock.New(0.01)
	sine := blocks.NewSine("sine", 1.0, clk)
	trafo := blocks.NewTrafo("trafo", 2, -1)
	sink := blocks.NewSink("sink")
	if _, err := block.Pipe(sine, trafo); err != nil {
		t.Fatalf("pipe sine->trafo: %v", err)
	}
	if _, err := block.Pipe(trafo, sink); err != nil {
		t.Fatalf("pipe trafo->sink: %v", err)
	}

	fc := &fakeMotorController{}
	m := blocks.NewMotor("motor", fc)
	m.DefaultHoming = fakeHoming{}

	bh := blocks.NewBehavior("behavior", func(cycle int64, self *blocks.Behavior) error { return nil })

	b, err := being.New(clk, []block.Block{sine, m, bh}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	order := b.Order()
	if len(order) != 5 {
		t.Fatalf("expected 5 vertices (sine,trafo,sink,motor,behavior), got %d", len(order))
	}
	index := make(map[string]int, len(order))
	for i, blk := range order {
		index[blk.ID()] = i
	}
	if index["sine"] >= index["trafo"] || index["trafo"] >= index["sink"] {
		t.Fatalf("expected sine before trafo before sink, got order %v", order)
	}

	if len(b.Motors()) != 1 || b.Motors()[0].ID() != "motor" {
		t.Fatalf("expected motor role collection to contain exactly 'motor', got %v", b.Motors())
	}
	if len(b.Behaviors()) != 1 || b.Behaviors()[0].ID() != "behavior" {
		t.Fatalf("expected behavior role collection to contain exactly 'behavior', got %v", b.Behaviors())
	}
	if len(b.MotionPlayers()) != 0 {
		t.Fatalf("expected no motion players, got %v", b.MotionPlayers())
	}

	if len(b.ValueOutputs()) != 3 { // sine.out, trafo.out, motor.actual_position; sink/behavior add none
		t.Fatalf("expected 3 value outputs (sine, trafo, motor), got %d", len(b.ValueOutputs()))
	}

	// the motor and behavior blocks are seeded but never wired to
	// anything, so they form their own singleton components distinct
	// from the sine/trafo/sink chain.
	components := b.DisconnectedComponents()
	if len(components) != 3 {
		t.Fatalf("expected 3 disconnected components (chain, motor, behavior), got %d", len(components))
	}
}

func TestEnableMotorsAndHomeMotorsDriveEveryMotor(t *testing.T) {
	clk := clock.New(0.01)
	fc1 := &fakeMotorController{}
	fc2 := &fakeMotorController{}
	m1 := blocks.NewMotor("m1", fc1)
	m1.DefaultHoming = fakeHoming{}
	m2 := blocks.NewMotor("m2", fc2)
	m2.DefaultHoming = fakeHoming{}

	b, err := being.New(clk, []block.Block{m1, m2}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := b.EnableMotors(); err != nil {
		t.Fatalf("EnableMotors: %v", err)
	}
	if !fc1.enabled || !fc2.enabled {
		t.Fatalf("expected both controllers enabled, got %v %v", fc1.enabled, fc2.enabled)
	}

	if err := b.HomeMotors(); err != nil {
		t.Fatalf("HomeMotors: %v", err)
	}
	if fc1.homeCall != 1 || fc2.homeCall != 1 {
		t.Fatalf("expected both controllers homed exactly once, got %d %d", fc1.homeCall, fc2.homeCall)
	}
}

// TestMotorActualPositionFeedsBackIntoBehavior wires the canonical
// feedback cycle: a motor's actual position into a behavior, and the
// behavior's command back into the motor's target position. This is the
// real-world shape pgraph's back-edge removal exists for, not a
// synthetic A/B/C graph.
func TestMotorActualPositionFeedsBackIntoBehavior(t *testing.T) {
	clk := clock.New(0.01)
	fc := &fakeMotorController{actual: 1.5}
	m := blocks.NewMotor("m", fc)

	behavior := blocks.NewBehavior("b", func(cycle int64, self *blocks.Behavior) error {
		return nil
	})
	actualIn := behavior.AddValueInput("actual_in")
	cmdOut := behavior.AddValueOutput("cmd_out")
	behavior.Step = func(cycle int64, self *blocks.Behavior) error {
		cmdOut.Set(actualIn.Get() + 1)
		return nil
	}

	if err := block.Link(m, "actual_position", behavior, "actual_in"); err != nil {
		t.Fatalf("link motor->behavior: %v", err)
	}
	if err := block.Link(behavior, "cmd_out", m, "target_position"); err != nil {
		t.Fatalf("link behavior->motor: %v", err)
	}

	be, err := being.New(clk, []block.Block{m}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// The back-edge (behavior -> motor) makes the loop one tick delayed:
	// the first cycle only propagates motor -> behavior.
	if err := be.SingleCycle(nil); err != nil {
		t.Fatalf("SingleCycle: %v", err)
	}
	if fc.lastTarget != 0 {
		t.Fatalf("expected target still at its zero value after cycle 1, got %v", fc.lastTarget)
	}

	// The second cycle observes the command the behavior computed last
	// cycle, closing the loop.
	if err := be.SingleCycle(nil); err != nil {
		t.Fatalf("SingleCycle: %v", err)
	}
	if fc.lastTarget != 2.5 {
		t.Fatalf("expected target 2.5 (1.5 actual + 1) after the loop closes, got %v", fc.lastTarget)
	}
}

func TestSingleCycleExecutesOrderAndStepsClock(t *testing.T) {
	clk := clock.New(0.01)
	sine := blocks.NewSine("sine", 1.0, clk)
	sink := blocks.NewSink("sink")
	if _, err := block.Pipe(sine, sink); err != nil {
		t.Fatalf("pipe: %v", err)
	}

	b, err := being.New(clk, []block.Block{sine}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := b.SingleCycle(nil); err != nil {
			t.Fatalf("SingleCycle: %v", err)
		}
	}
	if clk.Cycle() != 3 {
		t.Fatalf("expected clock to have stepped 3 times, got cycle %d", clk.Cycle())
	}
	if len(sink.Samples) != 3 {
		t.Fatalf("expected 3 samples recorded, got %d", len(sink.Samples))
	}
}
