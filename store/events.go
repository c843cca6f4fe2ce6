package store

import (
	"time"

	"github.com/tomrford/scopelink/wire"
)

// Event is the sole write path into the store projection. Order
// within a single device's events is causal; order across devices is
// unspecified.
type Event interface {
	devicePath() string
}

type DeviceConnected struct {
	Path string
	Info wire.DeviceInfo
}

type DeviceDisconnected struct {
	Path string
}

type DeviceErrorEvent struct {
	Path string
	Kind string
	Err  error
}

type StateUpdated struct {
	Path  string
	State wire.DeviceState
}

type TimingUpdated struct {
	Path   string
	Timing wire.TimingConfig
}

type TriggerUpdated struct {
	Path    string
	Trigger wire.TriggerConfig
}

type ChannelMapUpdated struct {
	Path       string
	ChannelMap wire.ChannelMap
}

type FrameUpdated struct {
	Path  string
	Frame wire.FrameSample
}

type FrameCleared struct {
	Path string
}

// FrameTick is not routed through Apply; the runtime emits it
// alongside per-device frame events purely to drive redraw timing.
type FrameTick struct {
	QueuedAt time.Time
}

type RtBufferUpdated struct {
	Path  string
	Index uint8
	Value float32
}

type VarListPageUpdated struct {
	Path string
	Page wire.CatalogPage
}

type RtLabelsPageUpdated struct {
	Path string
	Page wire.CatalogPage
}

type SnapshotHeaderUpdated struct {
	Path   string
	Header wire.SnapshotHeader
}

type SnapshotChunk struct {
	Path    string
	Start   int
	Samples []wire.FrameSample
}

func (e DeviceConnected) devicePath() string       { return e.Path }
func (e DeviceDisconnected) devicePath() string    { return e.Path }
func (e DeviceErrorEvent) devicePath() string      { return e.Path }
func (e StateUpdated) devicePath() string          { return e.Path }
func (e TimingUpdated) devicePath() string         { return e.Path }
func (e TriggerUpdated) devicePath() string        { return e.Path }
func (e ChannelMapUpdated) devicePath() string      { return e.Path }
func (e FrameUpdated) devicePath() string          { return e.Path }
func (e FrameCleared) devicePath() string          { return e.Path }
func (e FrameTick) devicePath() string             { return "" }
func (e RtBufferUpdated) devicePath() string       { return e.Path }
func (e VarListPageUpdated) devicePath() string     { return e.Path }
func (e RtLabelsPageUpdated) devicePath() string    { return e.Path }
func (e SnapshotHeaderUpdated) devicePath() string  { return e.Path }
func (e SnapshotChunk) devicePath() string         { return e.Path }
