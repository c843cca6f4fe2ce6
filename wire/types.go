package wire

// MessageType is the wire TYPE byte.
type MessageType uint8

const (
	GetInfo          MessageType = 0x01
	GetTiming        MessageType = 0x02
	SetTiming        MessageType = 0x03
	GetState         MessageType = 0x04
	SetState         MessageType = 0x05
	Trigger          MessageType = 0x06
	GetFrame         MessageType = 0x07
	GetSnapshotHdr   MessageType = 0x08
	GetSnapshotData  MessageType = 0x09
	GetVarList       MessageType = 0x0A
	GetChannelMap    MessageType = 0x0B
	SetChannelMap    MessageType = 0x0C
	GetRtLabels      MessageType = 0x0D
	GetRtBuffer      MessageType = 0x0E
	SetRtBuffer      MessageType = 0x0F
	GetTrigger       MessageType = 0x10
	SetTrigger       MessageType = 0x11
	ErrorFrame       MessageType = 0xFF
)

func (t MessageType) String() string {
	switch t {
	case GetInfo:
		return "GET_INFO"
	case GetTiming:
		return "GET_TIMING"
	case SetTiming:
		return "SET_TIMING"
	case GetState:
		return "GET_STATE"
	case SetState:
		return "SET_STATE"
	case Trigger:
		return "TRIGGER"
	case GetFrame:
		return "GET_FRAME"
	case GetSnapshotHdr:
		return "GET_SNAPSHOT_HEADER"
	case GetSnapshotData:
		return "GET_SNAPSHOT_DATA"
	case GetVarList:
		return "GET_VAR_LIST"
	case GetChannelMap:
		return "GET_CHANNEL_MAP"
	case SetChannelMap:
		return "SET_CHANNEL_MAP"
	case GetRtLabels:
		return "GET_RT_LABELS"
	case GetRtBuffer:
		return "GET_RT_BUFFER"
	case SetRtBuffer:
		return "SET_RT_BUFFER"
	case GetTrigger:
		return "GET_TRIGGER"
	case SetTrigger:
		return "SET_TRIGGER"
	case ErrorFrame:
		return "ERROR"
	default:
		return "MessageType(0x" + hexByte(uint8(t)) + ")"
	}
}

func hexByte(b uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0xf]})
}

// DeviceState is the device's run state, reported by GET_STATE.
type DeviceState uint8

const (
	Halted DeviceState = iota
	Running
	Acquiring
	Misconfigured
)

func (s DeviceState) String() string {
	switch s {
	case Halted:
		return "Halted"
	case Running:
		return "Running"
	case Acquiring:
		return "Acquiring"
	case Misconfigured:
		return "Misconfigured"
	default:
		return "DeviceState(?)"
	}
}

// TriggerMode selects the edge(s) that arm a trigger.
type TriggerMode uint8

const (
	TriggerDisabled TriggerMode = iota
	TriggerRising
	TriggerFalling
	TriggerBoth
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerDisabled:
		return "Disabled"
	case TriggerRising:
		return "Rising"
	case TriggerFalling:
		return "Falling"
	case TriggerBoth:
		return "Both"
	default:
		return "TriggerMode(?)"
	}
}

// DeviceInfo is populated once from GET_INFO and immutable for the
// life of a session.
type DeviceInfo struct {
	NumChannels  uint8
	BufferSize   uint16
	IsrKhz       uint16
	VarCount     uint8
	RtCount      uint8
	RtBufferLen  uint8
	NameLen      uint8
	Endianness   Endianness
	DeviceName   string
}

// TimingConfig is the device's sample-clock divider and pre-trigger
// depth.
type TimingConfig struct {
	Divider  uint32
	PreTrig  uint32
}

// TriggerConfig is the device's armed trigger condition.
type TriggerConfig struct {
	Threshold float32
	Channel   uint8
	Mode      TriggerMode
}

// ChannelMap assigns each capture slot to a variable-catalog index.
type ChannelMap []uint8

// CatalogPage is one page of a paginated name list (GET_VAR_LIST or
// GET_RT_LABELS).
type CatalogPage struct {
	TotalCount uint8
	StartIdx   uint8
	Entries    []string
}

// SnapshotHeader describes the most recent post-trigger capture, as
// of the moment the device transitioned Acquiring -> Halted.
type SnapshotHeader struct {
	ChannelMap       ChannelMap
	Divider          uint32
	PreTrig          uint32
	TriggerThreshold float32
	TriggerChannel   uint8
	TriggerMode      TriggerMode
	RtValues         []float32
}

// FrameSample is one instantaneous read across all channels.
type FrameSample []float32
