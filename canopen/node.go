package canopen

import (
	"encoding/binary"
	"time"

	errwrap "github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// MaxEMCYInbox bounds how many emergency records a Node retains before the
// oldest is dropped, protecting memory under a sustained fault storm.
const MaxEMCYInbox = 32

// Node models one CiA-402 drive: its identity, cached statusword/
// controlword, last-known state, operation mode, NMT state, and EMCY
// inbox. It is the per-drive analog of engine/graph/state.go's State
// struct (cached status + timestamp + Logf), generalized from "resource
// convergence state" to "CiA-402 device state".
type Node struct {
	NodeID  int
	Backend CanBackend
	Logf    func(format string, v ...interface{})

	statusword   uint16
	controlword  uint16
	state        State
	opMode       OperationMode
	nmtState     NMTState
	emcyInbox    []EMCYRecord
	emcyLimiter  *rate.Limiter
}

// NewNode returns a Node bound to backend, defaulting its EMCY inbox rate
// limit to 50 records/second with a burst of 8 -- flood protection
// grounded on mgmt's resources.MetaParams.Limit/Burst metaparameter (see
// DESIGN.md).
func NewNode(nodeID int, backend CanBackend, logf func(string, ...interface{})) *Node {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Node{
		NodeID:      nodeID,
		Backend:     backend,
		Logf:        logf,
		state:       StateNotReadyToSwitchOn,
		emcyLimiter: rate.NewLimiter(rate.Limit(50), 8),
	}
}

func le16(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func putLE16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(b []byte) int32 {
	if len(b) < 4 {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func putLE32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// Statusword returns the last value read by RefreshState.
func (n *Node) Statusword() uint16 { return n.statusword }

// Controlword returns the last value written by WriteControlword.
func (n *Node) Controlword() uint16 { return n.controlword }

// State returns the last-decoded CiA-402 state.
func (n *Node) State() State { return n.state }

// OperationMode returns the last operation mode this Node commanded.
func (n *Node) OperationMode() OperationMode { return n.opMode }

// RefreshState reads the statusword via PDO, decodes it, and updates the
// cached state. It returns the new state and whether it changed since the
// last call.
func (n *Node) RefreshState() (state State, changed bool, err error) {
	data, err := n.Backend.ReadPDO(n.NodeID, IndexStatusword, 0)
	if err != nil {
		return n.state, false, errwrap.Wrapf(err, "canopen: node %d: read statusword", n.NodeID)
	}
	n.statusword = le16(data)
	newState := WhichState(n.statusword)
	changed = newState != n.state
	n.state = newState
	return n.state, changed, nil
}

// WriteControlword writes a raw controlword via PDO.
func (n *Node) WriteControlword(cw uint16) error {
	if err := n.Backend.SendPDO(n.NodeID, IndexControlword, 0, putLE16(cw)); err != nil {
		return errwrap.Wrapf(err, "canopen: node %d: write controlword", n.NodeID)
	}
	n.controlword = cw
	return nil
}

// SetOperationModeSDO sets the operation mode via a blocking SDO write to
// 0x6060 and confirms it was accepted by reading back 0x6061 (Modes of
// Operation Display).
func (n *Node) SetOperationModeSDO(mode OperationMode) error {
	if err := n.Backend.SDOWrite(n.NodeID, IndexModesOfOperation, 0, []byte{byte(mode)}); err != nil {
		return errwrap.Wrapf(err, "canopen: node %d: set operation mode", n.NodeID)
	}
	data, err := n.Backend.SDORead(n.NodeID, IndexModesOfOperationDisplay, 0)
	if err != nil {
		return errwrap.Wrapf(err, "canopen: node %d: confirm operation mode", n.NodeID)
	}
	confirmed := OperationMode(int8(data[0]))
	if confirmed != mode {
		return errwrap.Errorf("canopen: node %d: operation mode %d not confirmed (display reads %d)", n.NodeID, mode, confirmed)
	}
	n.opMode = mode
	return nil
}

// WriteTargetPosition writes a target position (device units) via PDO.
func (n *Node) WriteTargetPosition(pos int32) error {
	if err := n.Backend.SendPDO(n.NodeID, IndexTargetPosition, 0, putLE32(pos)); err != nil {
		return errwrap.Wrapf(err, "canopen: node %d: write target position", n.NodeID)
	}
	return nil
}

// WriteTargetVelocity writes a target velocity (device units) via PDO.
func (n *Node) WriteTargetVelocity(vel int32) error {
	if err := n.Backend.SendPDO(n.NodeID, IndexTargetVelocity, 0, putLE32(vel)); err != nil {
		return errwrap.Wrapf(err, "canopen: node %d: write target velocity", n.NodeID)
	}
	return nil
}

// ReadActualPosition reads the actual position (device units) via PDO.
func (n *Node) ReadActualPosition() (int32, error) {
	data, err := n.Backend.ReadPDO(n.NodeID, IndexActualPosition, 0)
	if err != nil {
		return 0, errwrap.Wrapf(err, "canopen: node %d: read actual position", n.NodeID)
	}
	return le32(data), nil
}

// PollEMCY drains the backend's EMCY queue for this node and appends newly
// arrived records to the bounded inbox, rate-limited so a fault storm
// cannot grow the inbox unbounded in a single tick.
func (n *Node) PollEMCY() {
	for _, rec := range n.Backend.EMCYConsume(n.NodeID) {
		if !n.emcyLimiter.AllowN(time.Now(), 1) {
			n.Logf("canopen: node %d: EMCY rate limit exceeded, dropping record %04x", n.NodeID, rec.Code)
			continue
		}
		n.emcyInbox = append(n.emcyInbox, rec)
		if len(n.emcyInbox) > MaxEMCYInbox {
			n.emcyInbox = n.emcyInbox[len(n.emcyInbox)-MaxEMCYInbox:]
		}
	}
}

// EMCYInbox returns the current bounded inbox of unacknowledged emergency
// records, without clearing it.
func (n *Node) EMCYInbox() []EMCYRecord {
	out := make([]EMCYRecord, len(n.emcyInbox))
	copy(out, n.emcyInbox)
	return out
}

// HasEMCY reports whether code has been observed in the current inbox.
func (n *Node) HasEMCY(code uint16) bool {
	for _, rec := range n.emcyInbox {
		if rec.Code == code {
			return true
		}
	}
	return false
}

// ResetEMCY clears the inbox. Called by the controller once every pending
// record has been surfaced via pub/sub.
func (n *Node) ResetEMCY() {
	n.emcyInbox = nil
}
