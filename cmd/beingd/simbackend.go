package main

import "github.com/being-run/being/canopen"

// simBackend is a stand-in canopen.CanBackend for --dry-run: it never talks
// to a bus, just acknowledges writes and reports zeroed reads. The real
// transport driver is out of scope for this module; this exists only so
// the binary can run end to end without hardware attached, the same role
// engine/world.go's "fake world" plays for mgmt's own dry-run mode.
type simBackend struct{}

func newSimBackend() *simBackend { return &simBackend{} }

func (s *simBackend) ScanForNodeIDs() ([]int, error) { return nil, nil }

func (s *simBackend) SendPDO(nodeID int, index uint16, subIndex uint8, data []byte) error {
	return nil
}

func (s *simBackend) ReadPDO(nodeID int, index uint16, subIndex uint8) ([]byte, error) {
	return make([]byte, 4), nil
}

func (s *simBackend) SDORead(nodeID int, index uint16, subIndex uint8) ([]byte, error) {
	return make([]byte, 4), nil
}

func (s *simBackend) SDOWrite(nodeID int, index uint16, subIndex uint8, data []byte) error {
	return nil
}

func (s *simBackend) NMTSet(nodeID int, state canopen.NMTState) error { return nil }

func (s *simBackend) EMCYConsume(nodeID int) []canopen.EMCYRecord { return nil }

func (s *simBackend) Update() error { return nil }

// Close satisfies io.Closer so being.Being.RegisterBackend can track it
// alongside a real backend.
func (s *simBackend) Close() error { return nil }
