package config_test

import (
	"testing"

	"github.com/being-run/being/canopen"
	"github.com/being-run/being/clock"
	"github.com/being-run/being/config"
	"github.com/being-run/being/controller"
	"github.com/being-run/being/pubsub"
)

type fakeBackend struct {
	writes     int
	sdoByIndex map[uint16][]byte
}

func (f *fakeBackend) ScanForNodeIDs() ([]int, error) { return nil, nil }
func (f *fakeBackend) SendPDO(nodeID int, index uint16, subIndex uint8, data []byte) error {
	return nil
}
func (f *fakeBackend) ReadPDO(nodeID int, index uint16, subIndex uint8) ([]byte, error) {
	return []byte{0, 0}, nil
}
func (f *fakeBackend) SDORead(nodeID int, index uint16, subIndex uint8) ([]byte, error) {
	// echo the last Modes of Operation write, as a drive's display object does
	if index == canopen.IndexModesOfOperationDisplay {
		if mode, ok := f.sdoByIndex[canopen.IndexModesOfOperation]; ok {
			return mode, nil
		}
	}
	return []byte{0}, nil
}
func (f *fakeBackend) SDOWrite(nodeID int, index uint16, subIndex uint8, data []byte) error {
	f.writes++
	if f.sdoByIndex == nil {
		f.sdoByIndex = make(map[uint16][]byte)
	}
	f.sdoByIndex[index] = data
	return nil
}
func (f *fakeBackend) NMTSet(nodeID int, state canopen.NMTState) error { return nil }
func (f *fakeBackend) EMCYConsume(nodeID int) []canopen.EMCYRecord    { return nil }
func (f *fakeBackend) Update() error                                  { return nil }

const doc = `
interval: 0.01
web_interval: 0.1
motors:
  - id: axis1
    vendor: mclm3002
    node_id: 1
    direction: 1
    lower: 0
    upper: 100000
    device_units_per_si: 131072
    length: 100000
    continuous_current_limit: 2000
    default_homing_method: 17
blocks:
  - kind: sine
    id: sine1
    freq: 1.0
  - kind: trafo
    id: trafo1
    scale: 2.0
    offset: 0.5
  - kind: sink
    id: sink1
  - kind: motor
    id: motorblock1
    motor: axis1
edges:
  - from: "sine1:output"
    to: "trafo1:input"
  - from: "trafo1:output"
    to: "sink1:input"
`

func TestParseValidatesRequiredFields(t *testing.T) {
	if _, err := config.Parse([]byte("motors: []")); err == nil {
		t.Fatalf("Parse should fail without interval/web_interval")
	}
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Interval != 0.01 || cfg.WebInterval != 0.1 {
		t.Fatalf("unexpected cadence: %+v", cfg)
	}
	if len(cfg.Motors) != 1 || len(cfg.Blocks) != 4 || len(cfg.Edges) != 2 {
		t.Fatalf("unexpected counts: %+v", cfg)
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	dup := `
interval: 0.01
web_interval: 0.1
blocks:
  - kind: sink
    id: a
  - kind: sink
    id: a
`
	if _, err := config.Parse([]byte(dup)); err == nil {
		t.Fatalf("Parse should reject duplicate block ids")
	}
}

func TestBuildMotorsAppliesSettingsOverSDO(t *testing.T) {
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	backend := &fakeBackend{}
	motors, err := config.BuildMotors(cfg, backend, nil, nil)
	if err != nil {
		t.Fatalf("BuildMotors: %v", err)
	}
	if _, ok := motors["axis1"]; !ok {
		t.Fatalf("motor axis1 not built")
	}
	if backend.writes == 0 {
		t.Fatalf("expected SetPolarity/ApplySettings to issue at least one SDOWrite")
	}
}

const docNoExplicitHomingMethod = `
interval: 0.01
web_interval: 0.1
motors:
  - id: axis1
    vendor: mclm3002
    node_id: 1
    direction: 1
    lower: 0
    upper: 100000
    device_units_per_si: 131072
    length: 100000
    continuous_current_limit: 2000
`

// TestBuildMotorsResolvesHomingMethodFromDirection checks that omitting
// default_homing_method falls back to the direction-based tie-break
// (homing.DefaultHomingMethod) rather than leaving the axis unhomeable: a
// direction of +1 on a vendor supporting the standard methods must pick
// method 17.
func TestBuildMotorsResolvesHomingMethodFromDirection(t *testing.T) {
	cfg, err := config.Parse([]byte(docNoExplicitHomingMethod))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	backend := &fakeBackend{}
	motors, err := config.BuildMotors(cfg, backend, nil, nil)
	if err != nil {
		t.Fatalf("BuildMotors: %v", err)
	}
	m := motors["axis1"]
	if m.DefaultHoming == nil {
		t.Fatalf("expected a resolved default homing driver")
	}
	if err := m.DefaultHoming.Home(); err != nil {
		t.Fatalf("Home: %v", err)
	}
	if got := backend.sdoByIndex[canopen.IndexHomingMethod]; len(got) != 1 || int8(got[0]) != 17 {
		t.Fatalf("expected homing method 17 written, got %v", got)
	}
}

func TestBuildMotorsSubscribesEventsHandlerToEveryBus(t *testing.T) {
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var got []pubsub.Event
	handler := func(e pubsub.Event) { got = append(got, e) }
	motors, err := config.BuildMotors(cfg, &fakeBackend{}, handler, nil)
	if err != nil {
		t.Fatalf("BuildMotors: %v", err)
	}
	m := motors["axis1"].Controller
	ctrl, ok := m.(*controller.Controller)
	if !ok {
		t.Fatalf("motor's controller is %T, want *controller.Controller", m)
	}
	if err := ctrl.Bus.Publish(pubsub.Event{Kind: pubsub.KindError, NodeID: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("handler saw %d events, want 1", len(got))
	}
}

func TestBuildMotorsRejectsUnknownVendor(t *testing.T) {
	bad := `
interval: 0.01
web_interval: 0.1
motors:
  - id: axis1
    vendor: notavendor
    node_id: 1
`
	cfg, err := config.Parse([]byte(bad))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := config.BuildMotors(cfg, &fakeBackend{}, nil, nil); err == nil {
		t.Fatalf("BuildMotors should reject an unknown vendor")
	}
}

func TestBuildBlocksAndWireConnectsGraph(t *testing.T) {
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	motors, err := config.BuildMotors(cfg, &fakeBackend{}, nil, nil)
	if err != nil {
		t.Fatalf("BuildMotors: %v", err)
	}
	clk := clock.New(cfg.Interval)
	byID, err := config.BuildBlocks(cfg, clk, motors)
	if err != nil {
		t.Fatalf("BuildBlocks: %v", err)
	}
	// sine1, trafo1, sink1, motorblock1, and axis1 -- axis1 and motorblock1
	// both point at the same *blocks.Motor, since BuildBlocks seeds the map
	// from every built motor in addition to the blocks cfg.Blocks names.
	if len(byID) != 5 {
		t.Fatalf("got %d blocks, want 5", len(byID))
	}
	if err := config.Wire(cfg, byID); err != nil {
		t.Fatalf("Wire: %v", err)
	}
}

func TestWireRejectsMalformedEndpoint(t *testing.T) {
	bad := `
interval: 0.01
web_interval: 0.1
blocks:
  - kind: sink
    id: sink1
edges:
  - from: "sink1"
    to: "sink1:input"
`
	cfg, err := config.Parse([]byte(bad))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	byID, err := config.BuildBlocks(cfg, clock.New(cfg.Interval), nil)
	if err != nil {
		t.Fatalf("BuildBlocks: %v", err)
	}
	if err := config.Wire(cfg, byID); err == nil {
		t.Fatalf("Wire should reject a \"from\" endpoint with no port")
	}
}
