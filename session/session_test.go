package session

import (
	"testing"
	"time"

	"github.com/tomrford/scopelink/transport/transporttest"
	"github.com/tomrford/scopelink/wire"
)

func infoPayload() []byte {
	payload := []byte{
		0x02, 0xE8, 0x03, 0x0A, 0x00, 0x02, 0x02, 0x08, 0x08, 0x00,
	}
	name := make([]byte, 8)
	copy(name, "dev")
	return append(payload, name...)
}

func echoDevice(reqType wire.MessageType, reqPayload []byte) []byte {
	switch reqType {
	case wire.GetInfo:
		f, _ := wire.Encode(wire.GetInfo, infoPayload())
		return f
	case wire.SetTiming:
		f, _ := wire.Encode(wire.SetTiming, reqPayload)
		return f
	default:
		return nil
	}
}

func TestOpenCachesInfo(t *testing.T) {
	h := transporttest.NewHandle(echoDevice)
	defer h.Close()

	s, err := Open(h, time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Info().NumChannels != 2 || s.Info().DeviceName != "dev" {
		t.Fatalf("got %+v", s.Info())
	}
}

func TestOpenReleasesHandleOnFailure(t *testing.T) {
	closed := make(chan struct{})
	h := transporttest.NewHandle(func(wire.MessageType, []byte) []byte { return nil }) // never responds -> GET_INFO times out
	go func() {
		<-closed
	}()

	_, err := Open(h, 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected Open to fail when GET_INFO times out")
	}
	// A second Close on an already-closed handle returns an error in
	// transporttest, which is how we confirm Open closed it exactly
	// once.
	if err := h.Close(); err == nil {
		t.Fatal("expected handle to already be closed by Open")
	}
	close(closed)
}

func TestSetTimingRoundTrip(t *testing.T) {
	h := transporttest.NewHandle(echoDevice)
	defer h.Close()
	s, err := Open(h, time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := s.SetTiming(wire.TimingConfig{Divider: 10, PreTrig: 20})
	if err != nil {
		t.Fatalf("SetTiming: %v", err)
	}
	if got.Divider != 10 || got.PreTrig != 20 {
		t.Fatalf("got %+v", got)
	}
}
