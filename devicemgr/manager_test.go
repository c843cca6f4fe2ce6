package devicemgr

import (
	"testing"
	"time"

	"github.com/tomrford/scopelink/transport"
	"github.com/tomrford/scopelink/transport/transporttest"
	"github.com/tomrford/scopelink/wire"
)

func infoPayload() []byte {
	payload := []byte{0x01, 0xE8, 0x03, 0x0A, 0x00, 0x00, 0x00, 0x04, 0x04, 0x00}
	return append(payload, []byte("dev\x00")...)
}

func echoDevice(reqType wire.MessageType, reqPayload []byte) []byte {
	if reqType == wire.GetInfo {
		f, _ := wire.Encode(wire.GetInfo, infoPayload())
		return f
	}
	return nil
}

func fakeOpener(handles map[string]*transporttest.Handle) Opener {
	return func(path string, cfg transport.SerialConfig) (transport.Handle, error) {
		h := transporttest.NewHandle(echoDevice)
		handles[path] = h
		return h, nil
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	handles := map[string]*transporttest.Handle{}
	m := New(fakeOpener(handles), time.Second)

	d1, err := m.Connect("/dev/ttyUSB0", transport.SerialConfig{})
	if err != nil {
		t.Fatal(err)
	}
	d2, err := m.Connect("/dev/ttyUSB0", transport.SerialConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if d1.Session != d2.Session {
		t.Fatal("expected the second connect to reuse the first session")
	}
	if len(handles) != 1 {
		t.Fatalf("expected exactly one handle to have been opened, got %d", len(handles))
	}
}

func TestDisconnectRemovesEntry(t *testing.T) {
	handles := map[string]*transporttest.Handle{}
	m := New(fakeOpener(handles), time.Second)

	if _, err := m.Connect("/dev/ttyUSB0", transport.SerialConfig{}); err != nil {
		t.Fatal(err)
	}
	m.Disconnect("/dev/ttyUSB0")
	if _, ok := m.Get("/dev/ttyUSB0"); ok {
		t.Fatal("expected entry to be removed after disconnect")
	}
}

func TestDisconnectAll(t *testing.T) {
	handles := map[string]*transporttest.Handle{}
	m := New(fakeOpener(handles), time.Second)

	m.Connect("/dev/ttyUSB0", transport.SerialConfig{})
	m.Connect("/dev/ttyUSB1", transport.SerialConfig{})
	m.DisconnectAll()
	if len(m.Active()) != 0 {
		t.Fatalf("expected no active devices after DisconnectAll, got %d", len(m.Active()))
	}
}
