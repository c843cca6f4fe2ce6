package engine

import (
	"testing"
	"time"

	"github.com/tomrford/scopelink/devicemgr"
	"github.com/tomrford/scopelink/store"
	"github.com/tomrford/scopelink/transport"
	"github.com/tomrford/scopelink/transport/transporttest"
	"github.com/tomrford/scopelink/wire"
)

func infoPayload(numChannels, rtCount, varCount uint8) []byte {
	payload := []byte{numChannels, 0xE8, 0x03, 0x0A, 0x00, varCount, rtCount, 0x04, 0x04, 0x00}
	return append(payload, []byte("dev\x00")...)
}

func frame(typ wire.MessageType, payload []byte) []byte {
	f, _ := wire.Encode(typ, payload)
	return f
}

// primingResponder answers every request primeSession issues with a
// minimal but complete set of responses, for a device with no
// variables or rt channels so pagination terminates immediately.
func primingResponder(reqType wire.MessageType, reqPayload []byte) []byte {
	switch reqType {
	case wire.GetInfo:
		return frame(wire.GetInfo, infoPayload(1, 0, 0))
	case wire.GetState:
		return frame(wire.GetState, []byte{byte(wire.Halted)})
	case wire.GetTiming:
		buf := make([]byte, 8)
		wire.WriteU32(buf, 0, 1, wire.Little)
		wire.WriteU32(buf, 4, 2, wire.Little)
		return frame(wire.GetTiming, buf)
	case wire.GetTrigger:
		buf := make([]byte, 6)
		wire.WriteF32(buf, 0, 1.5, wire.Little)
		return frame(wire.GetTrigger, buf)
	case wire.GetChannelMap:
		return frame(wire.GetChannelMap, []byte{0})
	case wire.GetVarList:
		return frame(wire.GetVarList, []byte{0, 0, 0})
	case wire.GetRtLabels:
		return frame(wire.GetRtLabels, []byte{0, 0, 0})
	}
	return nil
}

func newTestEngine(responder transporttest.Responder) (*Engine, *devicemgr.Manager) {
	opener := func(path string, cfg transport.SerialConfig) (transport.Handle, error) {
		return transporttest.NewHandle(responder), nil
	}
	mgr := devicemgr.New(opener, time.Second)
	return New(mgr, Config{}), mgr
}

func drainEvents(t *testing.T, e *Engine, n int) []store.Event {
	t.Helper()
	var out []store.Event
	for i := 0; i < n; i++ {
		select {
		case ev := <-e.Events():
			out = append(out, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
	return out
}

func TestConnectPrimesSession(t *testing.T) {
	e, _ := newTestEngine(primingResponder)

	cmd, result := NewConnectCmd("/dev/ttyUSB0", transport.SerialConfig{})
	go e.dispatchCommand(cmd)

	events := drainEvents(t, e, 7)
	kinds := make([]string, len(events))
	for i, ev := range events {
		switch ev.(type) {
		case store.DeviceConnected:
			kinds[i] = "connected"
		case store.StateUpdated:
			kinds[i] = "state"
		case store.TimingUpdated:
			kinds[i] = "timing"
		case store.TriggerUpdated:
			kinds[i] = "trigger"
		case store.ChannelMapUpdated:
			kinds[i] = "channelmap"
		case store.VarListPageUpdated:
			kinds[i] = "varlist"
		case store.RtLabelsPageUpdated:
			kinds[i] = "rtlabels"
		default:
			kinds[i] = "other"
		}
	}
	want := []string{"connected", "state", "timing", "trigger", "channelmap", "varlist", "rtlabels"}
	for i, k := range want {
		if kinds[i] != k {
			t.Fatalf("event %d: got %s, want %s (all: %v)", i, kinds[i], k, kinds)
		}
	}

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connect result")
	}

	snap, ok := e.Snapshot("/dev/ttyUSB0")
	if !ok || snap.State == nil || *snap.State != wire.Halted {
		t.Fatalf("got %+v", snap)
	}
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	e, _ := newTestEngine(primingResponder)
	for i := 0; i < userCommandCap; i++ {
		cmd, _ := NewDisconnectCmd("/dev/ttyUSB0")
		if err := e.Submit(cmd); err != nil {
			t.Fatalf("unexpected rejection at %d: %v", i, err)
		}
	}
	cmd, _ := NewDisconnectCmd("/dev/ttyUSB0")
	if err := e.Submit(cmd); err == nil {
		t.Fatal("expected ErrQueueFull once the bounded queue is saturated")
	}
}

func TestTakeNextPollAlternates(t *testing.T) {
	e, _ := newTestEngine(primingResponder)
	e.stateSlot.Set(pollToken{})
	e.frameSlot.Set(pollToken{})

	_, k1, ok := e.takeNextPoll()
	if !ok || k1 != pollKindState {
		t.Fatalf("expected state to win the first round, got %v", k1)
	}
	e.stateSlot.Set(pollToken{})
	_, k2, ok := e.takeNextPoll()
	if !ok || k2 != pollKindFrame {
		t.Fatalf("expected frame to win the second round (turn persists), got %v", k2)
	}
}

func TestMutatingCommandRejectedByPolicyEmitsNoEvents(t *testing.T) {
	e, mgr := newTestEngine(primingResponder)
	mgr.Connect("/dev/ttyUSB0", transport.SerialConfig{})
	running := wire.Running
	e.mu.Lock()
	s := store.NewDeviceSnapshot("/dev/ttyUSB0")
	s.Status = store.Connected
	s.State = &running
	e.snapshots["/dev/ttyUSB0"] = s
	halted := wire.Halted
	s2 := store.NewDeviceSnapshot("/dev/ttyUSB1")
	s2.Status = store.Connected
	s2.State = &halted
	e.snapshots["/dev/ttyUSB1"] = s2
	e.mu.Unlock()

	cmd, result := NewSetTimingCmd(10, 20, nil)
	e.dispatchCommand(cmd)

	select {
	case d := <-result:
		if d.Allowed || d.Reason != store.ReasonStopOnly {
			t.Fatalf("got %+v", d)
		}
	default:
		t.Fatal("expected a decision to be available immediately")
	}

	select {
	case ev := <-e.Events():
		t.Fatalf("expected no events for a rejected command, got %+v", ev)
	default:
	}
}
