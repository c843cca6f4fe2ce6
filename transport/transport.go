package transport

import (
	"time"

	"github.com/tomrford/scopelink/wire"
)

// Transport drives one blocking request/response exchange at a time
// over a single Handle. It is not safe for concurrent use; the
// runtime serializes access to a device's transport by running one
// command at a time from its main loop, with at most one goroutine
// per device inside that command.
type Transport struct {
	handle Handle
	parser wire.Parser
	chunk  []byte
}

func New(h Handle) *Transport {
	return &Transport{handle: h, chunk: make([]byte, 64)}
}

// SendRequest writes (typ, payload) as a frame and blocks until a
// frame whose type equals typ or wire.ErrorFrame arrives, or deadline
// passes. Frames of any other type are discarded as stale or
// out-of-order.
func (t *Transport) SendRequest(typ wire.MessageType, payload []byte, deadline time.Time) (wire.MessageType, []byte, error) {
	if err := t.handle.FlushInput(); err != nil {
		return 0, nil, ioErr(err)
	}
	frame, err := wire.Encode(typ, payload)
	if err != nil {
		return 0, nil, err
	}
	if _, err := t.handle.Write(frame); err != nil {
		return 0, nil, ioErr(err)
	}

	t.parser.Reset()
	for {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0, nil, timeoutErr()
		}
		n, err := t.handle.Read(t.chunk)
		if err != nil {
			return 0, nil, ioErr(err)
		}
		for _, b := range t.chunk[:n] {
			r := t.parser.Feed(b)
			switch {
			case r.Err != nil:
				return 0, nil, crcMismatchErr()
			case r.Frame != nil:
				if r.Frame.Type == typ || r.Frame.Type == wire.ErrorFrame {
					return r.Frame.Type, r.Frame.Payload, nil
				}
				// Stale or out-of-order response; keep reading.
			}
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}
