package engine

import (
	"time"

	"github.com/tomrford/scopelink/store"
	"github.com/tomrford/scopelink/transport"
	"github.com/tomrford/scopelink/wire"
)

// command is the marker every item flowing through user_commands
// implements. Internal poll tokens do not implement it; they travel
// through the two poll slots instead.
type command interface {
	isCommand()
}

// ConnectCmd opens path and primes the session. Result receives nil
// on success or the open/priming error.
type ConnectCmd struct {
	Path   string
	Config transport.SerialConfig
	Result chan<- error
}

// DisconnectCmd closes and forgets path, if connected.
type DisconnectCmd struct {
	Path   string
	Result chan<- struct{}
}

// DownloadSnapshotCmd downloads the post-trigger buffer of path's
// most recent capture. Not part of spec.md's three-way command
// taxonomy table, but it is dispatched the same way: through
// user_commands, one device at a time, so it shares the same
// per-device serialization as every other operation.
type DownloadSnapshotCmd struct {
	Path   string
	Result chan<- DownloadResult
}

// DownloadResult is what DownloadSnapshotCmd reports back.
type DownloadResult struct {
	Header  wire.SnapshotHeader
	Samples []wire.FrameSample
	Err     error
}

type SetStateCmd struct {
	State   wire.DeviceState
	Targets []string
	Result  chan<- store.Decision
}

type TriggerCmd struct {
	Targets []string
	Result  chan<- store.Decision
}

type SetTimingCmd struct {
	Divider, PreTrig uint32
	Targets          []string
	Result           chan<- store.Decision
}

type SetChannelMapCmd struct {
	ChannelIdx, CatalogIdx uint8
	Targets                []string
	Result                 chan<- store.Decision
}

type SetTriggerCmd struct {
	Threshold float32
	Channel   uint8
	Mode      wire.TriggerMode
	Targets   []string
	Result    chan<- store.Decision
}

type SetRtBufferCmd struct {
	Index   uint8
	Value   float32
	Targets []string
	Result  chan<- store.Decision
}

func (ConnectCmd) isCommand()          {}
func (DisconnectCmd) isCommand()       {}
func (DownloadSnapshotCmd) isCommand() {}
func (SetStateCmd) isCommand()         {}
func (TriggerCmd) isCommand()          {}
func (SetTimingCmd) isCommand()        {}
func (SetChannelMapCmd) isCommand()    {}
func (SetTriggerCmd) isCommand()       {}
func (SetRtBufferCmd) isCommand()      {}

// pollToken is the payload of the two single-slot poll queues.
type pollToken struct {
	queuedAt time.Time
}

// The NewXxxCmd constructors build a command with a buffered,
// cap-1 result channel, so dispatching it from the main loop can
// never block on a caller that has not started reading yet.

func NewConnectCmd(path string, cfg transport.SerialConfig) (ConnectCmd, <-chan error) {
	ch := make(chan error, 1)
	return ConnectCmd{Path: path, Config: cfg, Result: ch}, ch
}

func NewDisconnectCmd(path string) (DisconnectCmd, <-chan struct{}) {
	ch := make(chan struct{}, 1)
	return DisconnectCmd{Path: path, Result: ch}, ch
}

func NewDownloadSnapshotCmd(path string) (DownloadSnapshotCmd, <-chan DownloadResult) {
	ch := make(chan DownloadResult, 1)
	return DownloadSnapshotCmd{Path: path, Result: ch}, ch
}

func NewSetStateCmd(state wire.DeviceState, targets []string) (SetStateCmd, <-chan store.Decision) {
	ch := make(chan store.Decision, 1)
	return SetStateCmd{State: state, Targets: targets, Result: ch}, ch
}

func NewTriggerCmd(targets []string) (TriggerCmd, <-chan store.Decision) {
	ch := make(chan store.Decision, 1)
	return TriggerCmd{Targets: targets, Result: ch}, ch
}

func NewSetTimingCmd(divider, preTrig uint32, targets []string) (SetTimingCmd, <-chan store.Decision) {
	ch := make(chan store.Decision, 1)
	return SetTimingCmd{Divider: divider, PreTrig: preTrig, Targets: targets, Result: ch}, ch
}

func NewSetChannelMapCmd(channelIdx, catalogIdx uint8, targets []string) (SetChannelMapCmd, <-chan store.Decision) {
	ch := make(chan store.Decision, 1)
	return SetChannelMapCmd{ChannelIdx: channelIdx, CatalogIdx: catalogIdx, Targets: targets, Result: ch}, ch
}

func NewSetTriggerCmd(threshold float32, channel uint8, mode wire.TriggerMode, targets []string) (SetTriggerCmd, <-chan store.Decision) {
	ch := make(chan store.Decision, 1)
	return SetTriggerCmd{Threshold: threshold, Channel: channel, Mode: mode, Targets: targets, Result: ch}, ch
}

func NewSetRtBufferCmd(index uint8, value float32, targets []string) (SetRtBufferCmd, <-chan store.Decision) {
	ch := make(chan store.Decision, 1)
	return SetRtBufferCmd{Index: index, Value: value, Targets: targets, Result: ch}, ch
}
