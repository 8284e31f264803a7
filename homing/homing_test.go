package homing

import (
	"testing"

	"github.com/being-run/being/canopen"
)

// fakeHomingBackend is a minimal CanBackend that models a linear axis with
// hard stops at fixed actual-position values, for exercising CrudeHoming,
// and a drive that raises the homing-attained bit once commanded for
// CiA402Homing.
type fakeHomingBackend struct {
	pos            int32
	velocity       int32
	lowerStop      int32
	upperStop      int32
	homingAttained bool
	homingMethod   int8
	opMode         canopen.OperationMode
	currentLimit   int32
	homeOffset     int32
}

func (f *fakeHomingBackend) ScanForNodeIDs() ([]int, error) { return nil, nil }

func (f *fakeHomingBackend) SendPDO(nodeID int, index uint16, subIndex uint8, data []byte) error {
	switch index {
	case canopen.IndexTargetVelocity:
		f.velocity = le32Local(data)
	case canopen.IndexControlword:
		// CiA402Homing's start-homing bit; simulate instantaneous
		// attainment for simplicity.
		f.homingAttained = true
	}
	return nil
}

func (f *fakeHomingBackend) ReadPDO(nodeID int, index uint16, subIndex uint8) ([]byte, error) {
	switch index {
	case canopen.IndexActualPosition:
		f.step()
		return putLE32Local(f.pos), nil
	case canopen.IndexStatusword:
		var sw uint16 = 0x27 // OPERATION_ENABLED bit pattern
		if f.homingAttained {
			sw |= 1 << 12
		}
		return putLE16Local(sw), nil
	}
	return make([]byte, 4), nil
}

func (f *fakeHomingBackend) SDORead(nodeID int, index uint16, subIndex uint8) ([]byte, error) {
	switch index {
	case canopen.IndexModesOfOperationDisplay:
		return []byte{byte(f.opMode)}, nil
	}
	return f.ReadPDO(nodeID, index, subIndex)
}

func (f *fakeHomingBackend) SDOWrite(nodeID int, index uint16, subIndex uint8, data []byte) error {
	switch index {
	case canopen.IndexModesOfOperation:
		f.opMode = canopen.OperationMode(int8(data[0]))
	case canopen.IndexHomingMethod:
		f.homingMethod = int8(data[0])
	case canopen.IndexCurrentLimit:
		f.currentLimit = le32Local(data)
	case canopen.IndexHomeOffset:
		f.homeOffset = le32Local(data)
	}
	return nil
}

func (f *fakeHomingBackend) NMTSet(nodeID int, state canopen.NMTState) error { return nil }
func (f *fakeHomingBackend) EMCYConsume(nodeID int) []canopen.EMCYRecord     { return nil }
func (f *fakeHomingBackend) Update() error                                  { return nil }

// step advances the simulated axis by one velocity-unit tick, clamping at
// the configured hard stops so ReadActualPosition shows "no progress"
// once the stop is reached.
func (f *fakeHomingBackend) step() {
	next := f.pos + f.velocity/100
	if next > f.upperStop {
		next = f.upperStop
	}
	if next < f.lowerStop {
		next = f.lowerStop
	}
	f.pos = next
}

func le32Local(b []byte) int32 {
	if len(b) < 4 {
		return 0
	}
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func putLE16Local(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func TestDefaultHomingMethodExplicitWins(t *testing.T) {
	m, err := DefaultHomingMethod(int8Ptr(-2), 1, []int8{-1, -2, -3})
	if err != nil || m != -2 {
		t.Fatalf("got (%d, %v), want (-2, nil)", m, err)
	}
}

func TestDefaultHomingMethodExplicitUnsupported(t *testing.T) {
	_, err := DefaultHomingMethod(int8Ptr(5), 1, []int8{-1, -2})
	if err != ErrUnsupportedHomingMethod {
		t.Fatalf("want ErrUnsupportedHomingMethod, got %v", err)
	}
}

func TestDefaultHomingMethodDirectionFallback(t *testing.T) {
	m, err := DefaultHomingMethod(nil, 1, []int8{-1, -2})
	if err != nil || m != -1 {
		t.Fatalf("got (%d, %v), want (-1, nil)", m, err)
	}
	m, err = DefaultHomingMethod(nil, -1, []int8{-1, -2})
	if err != nil || m != -2 {
		t.Fatalf("got (%d, %v), want (-2, nil)", m, err)
	}
}

func TestDefaultHomingMethodPrefersStandard(t *testing.T) {
	m, err := DefaultHomingMethod(nil, 1, []int8{-1, 17})
	if err != nil || m != 17 {
		t.Fatalf("got (%d, %v), want (17, nil)", m, err)
	}
}

func int8Ptr(v int8) *int8 { return &v }

func TestCrudeHomingSingleEndedReachesHomed(t *testing.T) {
	backend := &fakeHomingBackend{pos: 0, lowerStop: -1000, upperStop: 1000}
	node := canopen.NewNode(1, backend, nil)

	h := NewCrudeHoming(node, CrudeHomingSettings{
		Method:                 -2, // negative direction, single-ended
		HomingVelocity:         5000,
		NoProgressThreshold:    3,
		ContinuousCurrentLimit: 1000,
	})
	if err := h.Home(); err != nil {
		t.Fatalf("Home: %v", err)
	}

	var final State
	for i := 0; i < 500; i++ {
		final = h.Update(int64(i))
		if final != Ongoing {
			break
		}
	}
	if final != Homed {
		t.Fatalf("expected Homed, got %s (err=%v)", final, h.Err())
	}
	if backend.currentLimit != backend.ContinuousLimitRestored() {
		t.Fatalf("expected current limit restored to %d, got %d", backend.ContinuousLimitRestored(), backend.currentLimit)
	}
}

// ContinuousLimitRestored returns the value CrudeHoming should have
// restored the current limit to.
func (f *fakeHomingBackend) ContinuousLimitRestored() int32 { return 1000 }

func TestCrudeHomingDualEndedMeasuresWidth(t *testing.T) {
	backend := &fakeHomingBackend{pos: 0, lowerStop: -500, upperStop: 500}
	node := canopen.NewNode(1, backend, nil)

	h := NewCrudeHoming(node, CrudeHomingSettings{
		Method:                 -3,
		HomingVelocity:         10000,
		NoProgressThreshold:    3,
		MinWidth:               500,
		ContinuousCurrentLimit: 800,
	})
	if err := h.Home(); err != nil {
		t.Fatalf("Home: %v", err)
	}

	var final State
	for i := 0; i < 1000; i++ {
		final = h.Update(int64(i))
		if final != Ongoing {
			break
		}
	}
	if final != Homed {
		t.Fatalf("expected Homed, got %s (err=%v)", final, h.Err())
	}
}

func TestCrudeHomingFailsWidthSanityCheck(t *testing.T) {
	// Hard stops too close together to satisfy MinWidth.
	backend := &fakeHomingBackend{pos: 0, lowerStop: -10, upperStop: 10}
	node := canopen.NewNode(1, backend, nil)

	h := NewCrudeHoming(node, CrudeHomingSettings{
		Method:                 -3,
		HomingVelocity:         10000,
		NoProgressThreshold:    3,
		MinWidth:               1000,
		ContinuousCurrentLimit: 800,
	})
	if err := h.Home(); err != nil {
		t.Fatalf("Home: %v", err)
	}

	var final State
	for i := 0; i < 1000; i++ {
		final = h.Update(int64(i))
		if final != Ongoing {
			break
		}
	}
	if final != Failed {
		t.Fatalf("expected Failed due to width sanity check, got %s", final)
	}
}

func TestCiA402HomingReachesHomed(t *testing.T) {
	backend := &fakeHomingBackend{}
	node := canopen.NewNode(1, backend, nil)

	h := NewCiA402Homing(node, 17)
	if err := h.Home(); err != nil {
		t.Fatalf("Home: %v", err)
	}
	var final State
	for i := 0; i < 10; i++ {
		final = h.Update(int64(i))
		if final != Ongoing {
			break
		}
	}
	if final != Homed {
		t.Fatalf("expected Homed, got %s (err=%v)", final, h.Err())
	}
	if backend.homingMethod != 17 {
		t.Fatalf("expected homing method 17 written, got %d", backend.homingMethod)
	}
}
