package store

import (
	"testing"

	"github.com/tomrford/scopelink/wire"
)

func withState(snap DeviceSnapshot, s wire.DeviceState) DeviceSnapshot {
	snap.State = &s
	return snap
}

func TestStateConsensusMismatch(t *testing.T) {
	a := withState(NewDeviceSnapshot("a"), wire.Running)
	b := withState(NewDeviceSnapshot("b"), wire.Halted)
	cons := State([]DeviceSnapshot{a, b})
	if cons.Aligned {
		t.Fatal("expected mismatched states to be unaligned")
	}
}

func TestStateConsensusAligned(t *testing.T) {
	a := withState(NewDeviceSnapshot("a"), wire.Halted)
	b := withState(NewDeviceSnapshot("b"), wire.Halted)
	cons := State([]DeviceSnapshot{a, b})
	if !cons.Aligned || cons.Value != wire.Halted {
		t.Fatalf("got %+v", cons)
	}
}

func TestRtValuesConsensus(t *testing.T) {
	a := NewDeviceSnapshot("a")
	a.RtBuffers = map[uint8]float32{0: 1.5, 1: 2.0}
	b := NewDeviceSnapshot("b")
	b.RtBuffers = map[uint8]float32{0: 1.5, 1: 9.0}

	got := RtValues([]DeviceSnapshot{a, b}, 2)
	if !got[0].Has || got[0].Value != 1.5 {
		t.Fatalf("index 0: got %+v", got[0])
	}
	if got[1].Has {
		t.Fatalf("index 1: expected no consensus, got %+v", got[1])
	}
}

func TestControlModeEmpty(t *testing.T) {
	if mode := DeriveControlMode(nil); mode != ModeEmpty {
		t.Fatalf("got %v", mode)
	}
}

func TestControlModeAlignedHalted(t *testing.T) {
	mk := func(path string) DeviceSnapshot {
		s := NewDeviceSnapshot(path)
		s.Status = Connected
		state := wire.Halted
		s.State = &state
		timing := wire.TimingConfig{Divider: 1}
		s.Timing = &timing
		trig := wire.TriggerConfig{}
		s.Trigger = &trig
		s.ChannelMap = wire.ChannelMap{0, 1}
		return s
	}
	snaps := []DeviceSnapshot{mk("a"), mk("b")}
	if mode := DeriveControlMode(snaps); mode != ModeAlignedHalted {
		t.Fatalf("got %v", mode)
	}
}
