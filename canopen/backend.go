package canopen

// NMTState is one of the CANopen network-management states.
type NMTState int

const (
	NMTBootup NMTState = iota
	NMTStopped
	NMTPreOperational
	NMTOperational
)

// Standard CiA-402 object dictionary indices used by this package. Index
// is the 16-bit object index; SubIndex is almost always 0 for the scalar
// objects being drives for.
const (
	IndexControlword             uint16 = 0x6040
	IndexStatusword               uint16 = 0x6041
	IndexModesOfOperation         uint16 = 0x6060
	IndexModesOfOperationDisplay  uint16 = 0x6061
	IndexTargetPosition           uint16 = 0x607A
	IndexActualPosition           uint16 = 0x6064
	IndexTargetVelocity           uint16 = 0x60FF
	IndexHomingMethod             uint16 = 0x6098
	IndexContinuousCurrentLimit   uint16 = 0x6075
	IndexCurrentLimit             uint16 = 0x6073
	IndexPolarity                 uint16 = 0x607E
	IndexHomeOffset               uint16 = 0x607C
	IndexProfileVelocity          uint16 = 0x6081
	IndexProfileAcceleration      uint16 = 0x6083
)

// OperationMode is the CiA-402 "Modes of Operation" value (object 0x6060).
type OperationMode int8

const (
	OpModeNone                    OperationMode = 0
	OpModeProfilePosition         OperationMode = 1
	OpModeProfileVelocity         OperationMode = 3
	OpModeHoming                  OperationMode = 6
	OpModeCyclicSyncPosition      OperationMode = 8
	OpModeCyclicSyncVelocity      OperationMode = 9
	OpModeCyclicSyncTorque        OperationMode = 10
)

// EMCYRecord is one emergency record as defined by the CANopen EMCY
// message: a 16-bit error code, an 8-bit error register, and 5 bytes of
// manufacturer-specific data.
type EMCYRecord struct {
	Code     uint16
	Register byte
	Data     [5]byte
}

// CanBackend is the capability this package needs from the CAN transport
// driver. It is implemented entirely outside this module; this interface
// only captures the primitives a CanNode calls on its behalf, grounded on
// engine/world.go's shape (one interface bundling everything external a
// runtime core needs from its host).
type CanBackend interface {
	// ScanForNodeIDs discovers which node IDs are present on the bus.
	ScanForNodeIDs() ([]int, error)

	// SendPDO writes raw bytes to a PDO-mapped object. Non-blocking:
	// implementations queue the frame for the next bus flush.
	SendPDO(nodeID int, index uint16, subIndex uint8, data []byte) error

	// ReadPDO returns the most recently received bytes for a PDO-mapped
	// object. Non-blocking.
	ReadPDO(nodeID int, index uint16, subIndex uint8) ([]byte, error)

	// SDORead performs a synchronous, blocking SDO upload.
	SDORead(nodeID int, index uint16, subIndex uint8) ([]byte, error)

	// SDOWrite performs a synchronous, blocking SDO download.
	SDOWrite(nodeID int, index uint16, subIndex uint8, data []byte) error

	// NMTSet requests a network-management state change for nodeID.
	NMTSet(nodeID int, state NMTState) error

	// EMCYConsume drains and returns any emergency records received for
	// nodeID since the last call.
	EMCYConsume(nodeID int) []EMCYRecord

	// Update flushes queued TX frames and polls for new RX frames. Called
	// once per tick by Being, after every block has executed.
	Update() error
}
