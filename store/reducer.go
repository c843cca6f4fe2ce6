package store

import "github.com/tomrford/scopelink/wire"

// Apply is the pure reducer (DeviceSnapshot, Event) -> DeviceSnapshot.
// It never mutates snap's mutable fields in place; callers may
// safely reuse snap after calling Apply.
func Apply(snap DeviceSnapshot, ev Event) DeviceSnapshot {
	switch e := ev.(type) {
	case DeviceConnected:
		info := e.Info
		return DeviceSnapshot{
			Path:      e.Path,
			Status:    Connected,
			Info:      &info,
			RtBuffers: map[uint8]float32{},
		}
	case DeviceDisconnected:
		out := NewDeviceSnapshot(e.Path)
		return out
	case DeviceErrorEvent:
		snap.LastError = &RecordedError{Kind: e.Kind, Err: e.Err}
		return snap
	case StateUpdated:
		state := e.State
		snap.State = &state
		snap.LastError = nil
		return snap
	case TimingUpdated:
		timing := e.Timing
		snap.Timing = &timing
		snap.LastError = nil
		return snap
	case TriggerUpdated:
		trig := e.Trigger
		snap.Trigger = &trig
		snap.LastError = nil
		return snap
	case ChannelMapUpdated:
		snap.ChannelMap = append(wire.ChannelMap(nil), e.ChannelMap...)
		snap.LastError = nil
		return snap
	case FrameUpdated:
		snap.LatestFrame = append(wire.FrameSample(nil), e.Frame...)
		snap.LastError = nil
		return snap
	case FrameCleared:
		snap.LatestFrame = nil
		return snap
	case RtBufferUpdated:
		rt := snap.cloneRtBuffers()
		rt[e.Index] = e.Value
		snap.RtBuffers = rt
		return snap
	case VarListPageUpdated:
		snap.Catalog.VarList = snap.Catalog.VarList.applyPage(e.Page)
		return snap
	case RtLabelsPageUpdated:
		snap.Catalog.RtLabels = snap.Catalog.RtLabels.applyPage(e.Page)
		return snap
	case SnapshotHeaderUpdated, SnapshotChunk:
		// Snapshot capture data does not live on DeviceSnapshot; the
		// runtime hands the header and samples back to the caller of
		// the download command instead.
		return snap
	default:
		return snap
	}
}
