package homing

import (
	errwrap "github.com/pkg/errors"

	"github.com/being-run/being/canopen"
)

// CiA-402 homing status bits (statusword, object 0x6041), valid while the
// drive is in the HOMING operation mode.
const (
	bitHomingAttained uint16 = 1 << 12
	bitHomingError    uint16 = 1 << 13
)

// cia402Timeout bounds how many ticks CiA402Homing will wait for the
// homing-attained bit before declaring failure.
const cia402Timeout = 2000

// CiA402Homing drives a node's native homing method (object 0x6098) using
// the drive's own HOMING operation mode, polling the statusword's homing
// bits each tick. Grounded structurally on canopen.StateSwitchJob's
// plan-then-poll shape; the "plan" here is just the single operation-mode
// SDO write CiA-402 homing needs.
type CiA402Homing struct {
	node   *canopen.Node
	method int8

	state State
	ticks int
	err   error
}

// NewCiA402Homing returns a homer that will drive node through homing
// method method (a standard CiA-402 value such as 17/18, or 37 on EPOS4)
// once Home is called.
func NewCiA402Homing(node *canopen.Node, method int8) *CiA402Homing {
	return &CiA402Homing{node: node, method: method, state: Unhomed}
}

func (h *CiA402Homing) Home() error {
	if err := h.node.Backend.SDOWrite(h.node.NodeID, canopen.IndexHomingMethod, 0, []byte{byte(h.method)}); err != nil {
		h.state = Failed
		h.err = errwrap.Wrapf(err, "homing: node %d: set homing method", h.node.NodeID)
		return h.err
	}
	if err := h.node.SetOperationModeSDO(canopen.OpModeHoming); err != nil {
		h.state = Failed
		h.err = errwrap.Wrapf(err, "homing: node %d: enter homing mode", h.node.NodeID)
		return h.err
	}
	// Controlword bit 4 requests the start of the homing operation; bits
	// 0-3 and 8 must still reflect OPERATION_ENABLED for the request to
	// take effect (CiA-402 section on the homing-mode controlword).
	if err := h.node.WriteControlword(0x0F | 1<<4); err != nil {
		h.state = Failed
		h.err = err
		return err
	}
	h.state = Ongoing
	h.ticks = 0
	h.err = nil
	return nil
}

func (h *CiA402Homing) Update(cycle int64) State {
	if h.state != Ongoing {
		return h.state
	}
	if _, _, err := h.node.RefreshState(); err != nil {
		h.state = Failed
		h.err = err
		return h.state
	}
	sw := h.node.Statusword()
	if sw&bitHomingError != 0 {
		h.state = Failed
		h.err = errwrap.Wrapf(ErrHomingFailed, "homing: node %d: drive reported homing error (statusword %#04x)", h.node.NodeID, sw)
		return h.state
	}
	if sw&bitHomingAttained != 0 {
		h.state = Homed
		return h.state
	}
	h.ticks++
	if h.ticks >= cia402Timeout {
		h.state = Failed
		h.err = errwrap.Wrapf(ErrHomingFailed, "homing: node %d: homing attained bit never set after %d ticks", h.node.NodeID, h.ticks)
	}
	return h.state
}

func (h *CiA402Homing) State() State { return h.state }
func (h *CiA402Homing) Homed() bool  { return h.state == Homed }
func (h *CiA402Homing) Ongoing() bool { return h.state == Ongoing }
func (h *CiA402Homing) Err() error    { return h.err }
