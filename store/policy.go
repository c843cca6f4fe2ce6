package store

import "github.com/tomrford/scopelink/wire"

// ControlMode summarizes what commands may be sent right now given
// every connected device's reported state.
type ControlMode int

const (
	ModeEmpty ControlMode = iota
	ModeSyncing
	ModeMismatchStopOnly
	ModeMismatchRunBlocked
	ModeAlignedHalted
	ModeAlignedNonHalted
)

func (m ControlMode) String() string {
	switch m {
	case ModeEmpty:
		return "Empty"
	case ModeSyncing:
		return "Syncing"
	case ModeMismatchStopOnly:
		return "MismatchStopOnly"
	case ModeMismatchRunBlocked:
		return "MismatchRunBlocked"
	case ModeAlignedHalted:
		return "AlignedHalted"
	case ModeAlignedNonHalted:
		return "AlignedNonHalted"
	default:
		return "ControlMode(?)"
	}
}

// DeriveControlMode computes the control mode from the currently
// connected snapshots (callers must pre-filter to Status == Connected).
// Two devices that have reported different states give
// ModeMismatchStopOnly even while other fields are still missing.
func DeriveControlMode(snaps []DeviceSnapshot) ControlMode {
	if len(snaps) == 0 {
		return ModeEmpty
	}
	var firstState *wire.DeviceState
	for _, s := range snaps {
		if s.State == nil {
			continue
		}
		if firstState == nil {
			firstState = s.State
		} else if *s.State != *firstState {
			return ModeMismatchStopOnly
		}
	}
	for _, s := range snaps {
		if s.State == nil || s.Timing == nil || s.Trigger == nil || s.ChannelMap == nil {
			return ModeSyncing
		}
	}
	stateCons := State(snaps)
	if !stateCons.Aligned {
		return ModeMismatchStopOnly
	}
	timingCons := Timing(snaps)
	trigCons := Trigger(snaps)
	cmCons := ChannelMap(snaps)
	if !timingCons.Aligned || !trigCons.Aligned || !cmCons.Aligned {
		return ModeMismatchRunBlocked
	}
	if stateCons.Value == wire.Halted {
		return ModeAlignedHalted
	}
	return ModeAlignedNonHalted
}

// CommandKind names the mutating protocol commands the policy and
// guard reason about.
type CommandKind int

const (
	CmdSetState CommandKind = iota
	CmdTrigger
	CmdSetTiming
	CmdSetChannelMap
	CmdSetTrigger
	CmdSetRtBuffer
)

// SkipReason is why one target, or an entire command, was not
// dispatched.
type SkipReason string

const (
	ReasonNotConnected     SkipReason = "NotConnected"
	ReasonStateNotHalted   SkipReason = "StateNotHalted"
	ReasonStopOnly         SkipReason = "StopOnly"
	ReasonNoEligibleTargets SkipReason = "NoEligibleTargets"
)

// Skipped names one target excluded from a command, and why.
type Skipped struct {
	Path   string
	Reason SkipReason
}

// Decision is the command guard's verdict: which targets (if any) the
// command may be dispatched to, and why any were excluded.
type Decision struct {
	Allowed bool
	Targets []string
	Skipped []Skipped
	// Reason is set when the whole command is rejected rather than
	// merely narrowed.
	Reason SkipReason
}

// Guard applies the command guard: intersect the requested targets
// with connected devices, apply the command's own eligibility rule,
// then the mode-based permission check, and reject outright if
// nothing remains eligible.
//
// state is only consulted when cmd is CmdSetState, to distinguish a
// stop request (SetState{Halted}, unconditionally permitted while any
// device is connected) from a run request (SetState{non-Halted},
// permitted only in ModeAlignedHalted).
func Guard(mode ControlMode, cmd CommandKind, state wire.DeviceState, requestedPaths []string, snaps map[string]DeviceSnapshot) Decision {
	connected := make([]string, 0, len(snaps))
	for p, s := range snaps {
		if s.Status == Connected {
			connected = append(connected, p)
		}
	}
	connectedSet := make(map[string]bool, len(connected))
	for _, p := range connected {
		connectedSet[p] = true
	}

	targets := requestedPaths
	if len(targets) == 0 {
		targets = connected
	}

	var skipped []Skipped
	eligible := make([]string, 0, len(targets))
	for _, p := range targets {
		if connectedSet[p] {
			eligible = append(eligible, p)
		} else {
			skipped = append(skipped, Skipped{Path: p, Reason: ReasonNotConnected})
		}
	}

	switch cmd {
	case CmdSetState:
		if state != wire.Halted && mode != ModeAlignedHalted {
			return Decision{Skipped: skipped, Reason: ReasonStopOnly}
		}
	case CmdSetTiming:
		if mode == ModeMismatchStopOnly {
			return Decision{Skipped: skipped, Reason: ReasonStopOnly}
		}
		filtered := eligible[:0]
		for _, p := range eligible {
			if s := snaps[p].State; s != nil && *s == wire.Halted {
				filtered = append(filtered, p)
			} else {
				skipped = append(skipped, Skipped{Path: p, Reason: ReasonStateNotHalted})
			}
		}
		eligible = filtered
	case CmdTrigger, CmdSetTrigger, CmdSetRtBuffer:
		if mode == ModeMismatchStopOnly {
			return Decision{Skipped: skipped, Reason: ReasonStopOnly}
		}
	case CmdSetChannelMap:
		// Allowed whenever any device is connected; no further
		// mode-based restriction.
	}

	if len(eligible) == 0 {
		return Decision{Skipped: skipped, Reason: ReasonNoEligibleTargets}
	}
	return Decision{Allowed: true, Targets: eligible, Skipped: skipped}
}
