package homing

import (
	errwrap "github.com/pkg/errors"

	"github.com/being-run/being/canopen"
)

// crudePhase tracks where a CrudeHoming attempt is within its hard-stop
// sequence.
type crudePhase int

const (
	phaseLowerCurrent crudePhase = iota
	phaseDriveFirstStop
	phaseDriveSecondStop
	phaseFinalize
)

// CrudeHomingSettings configures a CrudeHoming run. Zero-value fields fall
// back to the defaults documented on each field.
type CrudeHomingSettings struct {
	// Method is one of -1, -2, -3, -4 (single-ended positive/negative,
	// dual-ended calibrating both stops).
	Method int8

	// HomingVelocity is the cyclic-sync-velocity command (device units)
	// used to drive into the hard stop. Its sign is taken from Method,
	// not from the caller.
	HomingVelocity int32

	// NoProgressThreshold is how many consecutive ticks of unchanged
	// actual position mean "hit a hard stop".
	NoProgressThreshold int

	// MinWidth is the minimum acceptable distance (device units) between
	// the two calibrated stops for methods -3/-4; a narrower measured
	// width fails homing. Ignored for single-ended methods.
	MinWidth int32

	// ContinuousCurrentLimit is the drive's normal current limit (object
	// 0x6075) as supplied by the caller; nothing is read from the drive.
	// Homing restores object 0x6073 to this value when it ends.
	ContinuousCurrentLimit int32

	// SafeCurrentLimit is the reduced current limit (object 0x6073)
	// applied while driving into the hard stop. Defaults to 30% of
	// ContinuousCurrentLimit.
	SafeCurrentLimit int32
}

// CrudeHoming implements hard-stop homing by current-limiting the drive,
// commanding a cyclic sync velocity into the mechanical end stop, and
// declaring "homed" once position stops advancing under torque
// saturation. There is no CANopen-library analog for this in the pack,
// so the sequencing is new domain logic shaped like CiA402Homing's
// poll-and-advance Update.
type CrudeHoming struct {
	node     *canopen.Node
	settings CrudeHomingSettings

	state State
	phase crudePhase
	err   error

	lastPos         int32
	noProgressTicks int
	firstStopPos    int32
	restoreLimit    int32
}

// NewCrudeHoming returns a crude homer for node using settings.
func NewCrudeHoming(node *canopen.Node, settings CrudeHomingSettings) *CrudeHoming {
	if settings.NoProgressThreshold <= 0 {
		settings.NoProgressThreshold = 10
	}
	if settings.SafeCurrentLimit == 0 && settings.ContinuousCurrentLimit != 0 {
		settings.SafeCurrentLimit = int32(float64(settings.ContinuousCurrentLimit) * 0.3)
	}
	return &CrudeHoming{node: node, settings: settings, state: Unhomed}
}

// direction returns +1 for methods -1/-3 and -1 for methods -2/-4, per
// the standard hard-stop method pairing.
func (h *CrudeHoming) direction() int32 {
	switch h.settings.Method {
	case -2, -4:
		return -1
	default:
		return 1
	}
}

// dualEnded reports whether Method calibrates both stops (-3/-4) rather
// than a single stop (-1/-2).
func (h *CrudeHoming) dualEnded() bool {
	return h.settings.Method == -3 || h.settings.Method == -4
}

func (h *CrudeHoming) fail(err error) State {
	h.state = Failed
	h.err = err
	// best effort: put the current limit back even on failure
	if h.restoreLimit != 0 {
		h.node.Backend.SDOWrite(h.node.NodeID, canopen.IndexCurrentLimit, 0, putLE32Local(h.restoreLimit))
	}
	return h.state
}

func (h *CrudeHoming) Home() error {
	h.restoreLimit = h.settings.ContinuousCurrentLimit
	if err := h.node.Backend.SDOWrite(h.node.NodeID, canopen.IndexCurrentLimit, 0, putLE32Local(h.settings.SafeCurrentLimit)); err != nil {
		return errwrap.Wrapf(err, "homing: node %d: lower current limit", h.node.NodeID)
	}
	if err := h.node.SetOperationModeSDO(canopen.OpModeCyclicSyncVelocity); err != nil {
		return errwrap.Wrapf(err, "homing: node %d: enter CSV mode", h.node.NodeID)
	}
	vel := h.settings.HomingVelocity * h.direction()
	if err := h.node.WriteTargetVelocity(vel); err != nil {
		return errwrap.Wrapf(err, "homing: node %d: command homing velocity", h.node.NodeID)
	}
	pos, err := h.node.ReadActualPosition()
	if err != nil {
		return errwrap.Wrapf(err, "homing: node %d: read starting position", h.node.NodeID)
	}
	h.lastPos = pos
	h.noProgressTicks = 0
	h.phase = phaseDriveFirstStop
	h.state = Ongoing
	h.err = nil
	return nil
}

func (h *CrudeHoming) Update(cycle int64) State {
	if h.state != Ongoing {
		return h.state
	}
	pos, err := h.node.ReadActualPosition()
	if err != nil {
		return h.fail(errwrap.Wrapf(err, "homing: node %d: read position", h.node.NodeID))
	}

	switch h.phase {
	case phaseDriveFirstStop:
		if pos == h.lastPos {
			h.noProgressTicks++
		} else {
			h.noProgressTicks = 0
			h.lastPos = pos
		}
		if h.noProgressTicks < h.settings.NoProgressThreshold {
			return h.state
		}
		h.firstStopPos = pos
		if h.dualEnded() {
			vel := -h.settings.HomingVelocity * h.direction()
			if err := h.node.WriteTargetVelocity(vel); err != nil {
				return h.fail(err)
			}
			h.noProgressTicks = 0
			h.lastPos = pos
			h.phase = phaseDriveSecondStop
			return h.state
		}
		return h.finalize(pos, 0)

	case phaseDriveSecondStop:
		if pos == h.lastPos {
			h.noProgressTicks++
		} else {
			h.noProgressTicks = 0
			h.lastPos = pos
		}
		if h.noProgressTicks < h.settings.NoProgressThreshold {
			return h.state
		}
		return h.finalize(h.firstStopPos, pos)
	}
	return h.state
}

// finalize stops the drive, computes the home offset, restores the
// current limit, and checks MinWidth for dual-ended methods.
func (h *CrudeHoming) finalize(firstStop, secondStop int32) State {
	if h.dualEnded() {
		length := secondStop - firstStop
		if length < 0 {
			length = -length
		}
		if length < h.settings.MinWidth {
			return h.fail(errwrap.Wrapf(ErrHomingFailed, "homing: node %d: measured travel %d below minimum width %d", h.node.NodeID, length, h.settings.MinWidth))
		}
	}

	if err := h.node.WriteTargetVelocity(0); err != nil {
		return h.fail(err)
	}

	// Use the lower-numbered stop as the zero reference so the usable
	// range ends up non-negative; for a single-ended method that's just
	// the stop we found.
	zero := firstStop
	if h.dualEnded() && secondStop < firstStop {
		zero = secondStop
	}
	if err := h.node.Backend.SDOWrite(h.node.NodeID, canopen.IndexHomeOffset, 0, putLE32Local(zero)); err != nil {
		return h.fail(errwrap.Wrapf(err, "homing: node %d: set home offset", h.node.NodeID))
	}

	if h.restoreLimit != 0 {
		if err := h.node.Backend.SDOWrite(h.node.NodeID, canopen.IndexCurrentLimit, 0, putLE32Local(h.restoreLimit)); err != nil {
			return h.fail(errwrap.Wrapf(err, "homing: node %d: restore current limit", h.node.NodeID))
		}
	}

	h.phase = phaseFinalize
	h.state = Homed
	return h.state
}

func (h *CrudeHoming) State() State   { return h.state }
func (h *CrudeHoming) Homed() bool    { return h.state == Homed }
func (h *CrudeHoming) Ongoing() bool  { return h.state == Ongoing }
func (h *CrudeHoming) Err() error     { return h.err }

func putLE32Local(v int32) []byte {
	b := make([]byte, 4)
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return b
}
