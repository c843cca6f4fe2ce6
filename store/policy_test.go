package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/tomrford/scopelink/wire"
)

func connected(path string, state wire.DeviceState) DeviceSnapshot {
	s := NewDeviceSnapshot(path)
	s.Status = Connected
	s.State = &state
	return s
}

// TestPolicyMismatchedStates is the literal scenario from the
// protocol's design notes: two devices, one Running and one Halted.
func TestPolicyMismatchedStates(t *testing.T) {
	snaps := map[string]DeviceSnapshot{
		"p1": connected("p1", wire.Running),
		"p2": connected("p2", wire.Halted),
	}
	mode := ModeMismatchStopOnly // state differs -> MismatchStopOnly per DeriveControlMode

	d := Guard(mode, CmdSetTiming, 0, nil, snaps)
	if d.Allowed || d.Reason != ReasonStopOnly {
		t.Fatalf("got %+v", d)
	}

	d = Guard(mode, CmdSetState, wire.Halted, nil, snaps)
	if !d.Allowed {
		t.Fatalf("SetState{Halted} must remain allowed under MismatchStopOnly: %+v", d)
	}
	if len(d.Targets) != 2 {
		t.Fatalf("expected both devices as targets, got %v", d.Targets)
	}
}

func TestPolicySetTimingDropsNonHalted(t *testing.T) {
	snaps := map[string]DeviceSnapshot{
		"p1": connected("p1", wire.Halted),
		"p2": connected("p2", wire.Acquiring),
	}
	mode := ModeMismatchRunBlocked
	d := Guard(mode, CmdSetTiming, 0, nil, snaps)
	if !d.Allowed || len(d.Targets) != 1 || d.Targets[0] != "p1" {
		t.Fatalf("got %+v", d)
	}
	found := false
	for _, s := range d.Skipped {
		if s.Path == "p2" && s.Reason == ReasonStateNotHalted {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected p2 skipped with StateNotHalted, got %+v", d.Skipped)
	}
}

func TestPolicyNoEligibleTargets(t *testing.T) {
	snaps := map[string]DeviceSnapshot{
		"p1": connected("p1", wire.Halted),
	}
	d := Guard(ModeAlignedHalted, CmdSetChannelMap, 0, []string{"p2"}, snaps)
	if d.Allowed || d.Reason != ReasonNoEligibleTargets {
		t.Fatalf("got %+v", d)
	}
}

// TestPolicyMonotonicity: connecting an additional device never
// enables a command that was previously rejected with StopOnly.
func TestPolicyMonotonicity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cmd := CommandKind(rapid.IntRange(0, 5).Draw(t, "cmd"))
		before := map[string]DeviceSnapshot{
			"p1": connected("p1", wire.Running),
			"p2": connected("p2", wire.Halted),
		}
		modeBefore := ModeMismatchStopOnly
		decisionBefore := Guard(modeBefore, cmd, wire.Halted, nil, before)

		if decisionBefore.Reason != ReasonStopOnly {
			return
		}

		after := map[string]DeviceSnapshot{
			"p1": connected("p1", wire.Running),
			"p2": connected("p2", wire.Halted),
			"p3": connected("p3", wire.Misconfigured),
		}
		decisionAfter := Guard(modeBefore, cmd, wire.Halted, nil, after)
		assert.Equal(t, decisionBefore.Reason, decisionAfter.Reason, "adding a device must not turn a StopOnly rejection into an allow")
	})
}
