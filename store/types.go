// Package store holds the pure projection from the runtime's event
// stream to per-device state, and the pure consensus/policy
// derivations built on top of it.
package store

import (
	"time"

	"github.com/tomrford/scopelink/wire"
)

// Status is a device's connectivity as seen by the store.
type Status int

const (
	Disconnected Status = iota
	Connected
)

// RecordedError is the last error recorded against a device. It
// never clears previously-known fields on the snapshot it's attached
// to; only a successful response clears it.
type RecordedError struct {
	Kind string
	Err  error
}

// CatalogList is one reassembled paginated name list (variables or RT
// labels). Entries outside any page seen so far are the empty string
// and Known reports false for them.
type CatalogList struct {
	TotalCount int
	Entries    []string
	Known      []bool
}

func (c CatalogList) clone() CatalogList {
	out := CatalogList{TotalCount: c.TotalCount}
	if c.Entries != nil {
		out.Entries = append([]string(nil), c.Entries...)
		out.Known = append([]bool(nil), c.Known...)
	}
	return out
}

// Ready reports whether every entry up to TotalCount has been seen.
func (c CatalogList) Ready() bool {
	if c.TotalCount == 0 {
		return len(c.Known) == 0
	}
	if len(c.Known) != c.TotalCount {
		return false
	}
	for _, k := range c.Known {
		if !k {
			return false
		}
	}
	return true
}

func (c CatalogList) applyPage(page wire.CatalogPage) CatalogList {
	out := c.clone()
	total := int(page.TotalCount)
	if len(out.Entries) < total {
		grownEntries := make([]string, total)
		grownKnown := make([]bool, total)
		copy(grownEntries, out.Entries)
		copy(grownKnown, out.Known)
		out.Entries = grownEntries
		out.Known = grownKnown
	}
	out.TotalCount = total
	start := int(page.StartIdx)
	for i, name := range page.Entries {
		idx := start + i
		if idx >= len(out.Entries) {
			break
		}
		out.Entries[idx] = name
		out.Known[idx] = true
	}
	return out
}

// Catalog groups the two paginated name lists a device exposes.
type Catalog struct {
	VarList  CatalogList
	RtLabels CatalogList
}

// DeviceSnapshot is the store's complete view of one known serial
// path. Pointer fields are nil until the corresponding response has
// arrived at least once.
type DeviceSnapshot struct {
	Path        string
	Status      Status
	Info        *wire.DeviceInfo
	State       *wire.DeviceState
	Timing      *wire.TimingConfig
	Trigger     *wire.TriggerConfig
	ChannelMap  wire.ChannelMap
	LatestFrame wire.FrameSample
	RtBuffers   map[uint8]float32
	Catalog     Catalog
	LastError   *RecordedError
}

// NewDeviceSnapshot returns the zero-value snapshot for a saved-but-
// disconnected path.
func NewDeviceSnapshot(path string) DeviceSnapshot {
	return DeviceSnapshot{Path: path, Status: Disconnected}
}

func (s DeviceSnapshot) cloneRtBuffers() map[uint8]float32 {
	out := make(map[uint8]float32, len(s.RtBuffers))
	for k, v := range s.RtBuffers {
		out[k] = v
	}
	return out
}

// FrameTickInfo carries no per-device snapshot effect; it exists only
// to drive the live-plot redraw clock.
type FrameTickInfo struct {
	QueuedAt time.Time
}
