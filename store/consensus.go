package store

import (
	"bytes"

	"github.com/tomrford/scopelink/wire"
)

// StaticInfoDiff reports one connected device's disagreement with the
// first device's static info.
type StaticInfoDiff struct {
	Path        string
	NumChannels uint8
	BufferSize  uint16
	IsrKhz      uint16
}

// StaticInfoConsensus is the alignment of (num_channels, buffer_size,
// isr_khz) across connected devices.
type StaticInfoConsensus struct {
	Aligned         bool
	Diffs           []StaticInfoDiff
	CompatiblePaths []string
}

func StaticInfo(snaps []DeviceSnapshot) StaticInfoConsensus {
	if len(snaps) == 0 {
		return StaticInfoConsensus{Aligned: true}
	}
	first := snaps[0].Info
	aligned := true
	var diffs []StaticInfoDiff
	var compatible []string
	for _, s := range snaps {
		if s.Info == nil {
			aligned = false
			continue
		}
		if first == nil || (s.Info.NumChannels == first.NumChannels && s.Info.BufferSize == first.BufferSize && s.Info.IsrKhz == first.IsrKhz) {
			compatible = append(compatible, s.Path)
			continue
		}
		aligned = false
		diffs = append(diffs, StaticInfoDiff{
			Path:        s.Path,
			NumChannels: s.Info.NumChannels,
			BufferSize:  s.Info.BufferSize,
			IsrKhz:      s.Info.IsrKhz,
		})
	}
	return StaticInfoConsensus{Aligned: aligned, Diffs: diffs, CompatiblePaths: compatible}
}

type StateConsensus struct {
	Value   wire.DeviceState
	Aligned bool
}

func State(snaps []DeviceSnapshot) StateConsensus {
	var first *wire.DeviceState
	aligned := true
	for _, s := range snaps {
		if s.State == nil {
			return StateConsensus{Aligned: false}
		}
		if first == nil {
			first = s.State
		} else if *s.State != *first {
			aligned = false
		}
	}
	if first == nil {
		return StateConsensus{Aligned: false}
	}
	return StateConsensus{Value: *first, Aligned: aligned}
}

type TimingConsensus struct {
	Value   wire.TimingConfig
	Aligned bool
}

func Timing(snaps []DeviceSnapshot) TimingConsensus {
	var first *wire.TimingConfig
	aligned := true
	for _, s := range snaps {
		if s.Timing == nil {
			return TimingConsensus{Aligned: false}
		}
		if first == nil {
			first = s.Timing
		} else if *s.Timing != *first {
			aligned = false
		}
	}
	if first == nil {
		return TimingConsensus{Aligned: false}
	}
	return TimingConsensus{Value: *first, Aligned: aligned}
}

type TriggerConsensus struct {
	Value   wire.TriggerConfig
	Aligned bool
}

func Trigger(snaps []DeviceSnapshot) TriggerConsensus {
	var first *wire.TriggerConfig
	aligned := true
	for _, s := range snaps {
		if s.Trigger == nil {
			return TriggerConsensus{Aligned: false}
		}
		if first == nil {
			first = s.Trigger
		} else if *s.Trigger != *first {
			aligned = false
		}
	}
	if first == nil {
		return TriggerConsensus{Aligned: false}
	}
	return TriggerConsensus{Value: *first, Aligned: aligned}
}

type ChannelMapConsensus struct {
	Value   wire.ChannelMap
	Aligned bool
}

func ChannelMap(snaps []DeviceSnapshot) ChannelMapConsensus {
	var first wire.ChannelMap
	aligned := true
	seenFirst := false
	for _, s := range snaps {
		if s.ChannelMap == nil {
			return ChannelMapConsensus{Aligned: false}
		}
		if !seenFirst {
			first = s.ChannelMap
			seenFirst = true
		} else if !channelMapsEqual(s.ChannelMap, first) {
			aligned = false
		}
	}
	if !seenFirst {
		return ChannelMapConsensus{Aligned: false}
	}
	return ChannelMapConsensus{Value: first, Aligned: aligned}
}

func channelMapsEqual(a, b wire.ChannelMap) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CatalogConsensus reports whether a paginated name list is fully
// populated and whether every device's copy is byte-identical.
type CatalogConsensus struct {
	Ready   bool
	Aligned bool
}

func VarListCatalog(snaps []DeviceSnapshot) CatalogConsensus {
	return catalogConsensus(snaps, func(s DeviceSnapshot) CatalogList { return s.Catalog.VarList })
}

func RtLabelsCatalog(snaps []DeviceSnapshot) CatalogConsensus {
	return catalogConsensus(snaps, func(s DeviceSnapshot) CatalogList { return s.Catalog.RtLabels })
}

func catalogConsensus(snaps []DeviceSnapshot, get func(DeviceSnapshot) CatalogList) CatalogConsensus {
	if len(snaps) == 0 {
		return CatalogConsensus{}
	}
	ready := true
	for _, s := range snaps {
		if !get(s).Ready() {
			ready = false
			break
		}
	}
	if !ready {
		return CatalogConsensus{Ready: false}
	}
	first := get(snaps[0])
	aligned := true
	for _, s := range snaps[1:] {
		c := get(s)
		if c.TotalCount != first.TotalCount || !catalogEntriesEqual(c.Entries, first.Entries) {
			aligned = false
			break
		}
	}
	return CatalogConsensus{Ready: true, Aligned: aligned}
}

func catalogEntriesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	var bufA, bufB bytes.Buffer
	for _, s := range a {
		bufA.WriteString(s)
		bufA.WriteByte(0)
	}
	for _, s := range b {
		bufB.WriteString(s)
		bufB.WriteByte(0)
	}
	return bufA.String() == bufB.String()
}

// RtValue is the cross-device consensus for one RT buffer index.
type RtValue struct {
	Index uint8
	Value float32
	Has   bool
}

// RtValues derives, for each i in [0, rtCount), the value if every
// connected device reports index i and all agree, else Has=false.
func RtValues(snaps []DeviceSnapshot, rtCount int) []RtValue {
	out := make([]RtValue, rtCount)
	for i := range out {
		idx := uint8(i)
		out[i] = RtValue{Index: idx}
		var value float32
		have := false
		aligned := true
		for _, s := range snaps {
			v, ok := s.RtBuffers[idx]
			if !ok {
				aligned = false
				break
			}
			if !have {
				value = v
				have = true
			} else if v != value {
				aligned = false
			}
		}
		if have && aligned {
			out[i].Value = value
			out[i].Has = true
		}
	}
	return out
}
