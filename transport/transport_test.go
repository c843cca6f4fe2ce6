package transport

import (
	"testing"
	"time"

	"github.com/tomrford/scopelink/transport/transporttest"
	"github.com/tomrford/scopelink/wire"
)

func echoState(reqType wire.MessageType, reqPayload []byte) []byte {
	switch reqType {
	case wire.GetState:
		f, _ := wire.Encode(wire.GetState, []byte{byte(wire.Halted)})
		return f
	default:
		return nil
	}
}

func TestSendRequestHappyPath(t *testing.T) {
	h := transporttest.NewHandle(echoState)
	defer h.Close()
	tr := New(h)

	typ, payload, err := tr.SendRequest(wire.GetState, nil, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if typ != wire.GetState || len(payload) != 1 || payload[0] != byte(wire.Halted) {
		t.Fatalf("got type=%v payload=%v", typ, payload)
	}
	if h.Flushes != 1 {
		t.Fatalf("expected exactly one flush, got %d", h.Flushes)
	}
}

func TestSendRequestTimeout(t *testing.T) {
	h := transporttest.NewHandle(func(wire.MessageType, []byte) []byte { return nil })
	defer h.Close()
	tr := New(h)

	_, _, err := tr.SendRequest(wire.GetState, nil, time.Now().Add(10*time.Millisecond))
	terr, ok := err.(*Error)
	if !ok || terr.Kind != KindTimeout {
		t.Fatalf("expected KindTimeout, got %v", err)
	}
}

func TestSendRequestCrcMismatch(t *testing.T) {
	h := transporttest.NewHandle(func(reqType wire.MessageType, reqPayload []byte) []byte {
		f, _ := wire.Encode(wire.GetState, []byte{byte(wire.Halted)})
		f[len(f)-1] ^= 0xFF // corrupt the CRC byte
		return f
	})
	defer h.Close()
	tr := New(h)

	_, _, err := tr.SendRequest(wire.GetState, nil, time.Now().Add(time.Second))
	terr, ok := err.(*Error)
	if !ok || terr.Kind != KindCrcMismatch {
		t.Fatalf("expected KindCrcMismatch, got %v", err)
	}
}

func TestSendRequestDiscardsStaleFrame(t *testing.T) {
	calls := 0
	h := transporttest.NewHandle(func(reqType wire.MessageType, reqPayload []byte) []byte {
		calls++
		stale, _ := wire.Encode(wire.GetFrame, []byte{0, 0, 0, 0})
		real, _ := wire.Encode(wire.GetState, []byte{byte(wire.Running)})
		return append(stale, real...)
	})
	defer h.Close()
	tr := New(h)

	typ, payload, err := tr.SendRequest(wire.GetState, nil, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if typ != wire.GetState || payload[0] != byte(wire.Running) {
		t.Fatalf("expected the matching GET_STATE response, got type=%v payload=%v", typ, payload)
	}
}

func TestSendRequestErrorFrame(t *testing.T) {
	h := transporttest.NewHandle(func(reqType wire.MessageType, reqPayload []byte) []byte {
		f, _ := wire.Encode(wire.ErrorFrame, []byte{byte(wire.ErrNotReady)})
		return f
	})
	defer h.Close()
	tr := New(h)

	typ, payload, err := tr.SendRequest(wire.GetSnapshotData, []byte{0, 0, 1}, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if typ != wire.ErrorFrame || payload[0] != byte(wire.ErrNotReady) {
		t.Fatalf("got type=%v payload=%v", typ, payload)
	}
}
