// Package transporttest provides a channel-based fake transport.Handle
// for exercising transport, session, and engine without real serial
// hardware.
package transporttest

import (
	"errors"

	"github.com/tomrford/scopelink/wire"
)

// Responder produces the raw bytes a fake device writes back after
// receiving a complete, well-formed request frame. Returning nil
// means "don't respond to this request" (used to exercise timeouts).
type Responder func(reqType wire.MessageType, reqPayload []byte) []byte

type reqKind int

const (
	reqWrite reqKind = iota
	reqRead
	reqFlush
	reqClose
	reqInject
)

type ioRequest struct {
	kind reqKind
	data []byte
}

type ioResult struct {
	n   int
	err error
}

// Handle is a fake transport.Handle. All state lives in a single
// goroutine reached through in/out channels, mirroring the way a real
// serial port serializes access.
type Handle struct {
	in   chan ioRequest
	out  chan ioResult
	done chan struct{}

	respond Responder
	rxBuf   []byte
	parser  wire.Parser

	Writes  [][]byte
	Flushes int
}

func NewHandle(respond Responder) *Handle {
	h := &Handle{
		in:      make(chan ioRequest),
		out:     make(chan ioResult),
		done:    make(chan struct{}),
		respond: respond,
	}
	go h.run()
	return h
}

func (h *Handle) run() {
	for {
		select {
		case <-h.done:
			return
		case r := <-h.in:
			switch r.kind {
			case reqWrite:
				n, err := h.doWrite(r.data)
				h.out <- ioResult{n, err}
			case reqRead:
				n, err := h.doRead(r.data)
				h.out <- ioResult{n, err}
			case reqFlush:
				h.Flushes++
				h.rxBuf = nil
				h.out <- ioResult{}
			case reqInject:
				h.rxBuf = append(h.rxBuf, r.data...)
				h.out <- ioResult{}
			}
		}
	}
}

func (h *Handle) doWrite(data []byte) (int, error) {
	h.Writes = append(h.Writes, append([]byte(nil), data...))
	for _, b := range data {
		if r := h.parser.Feed(b); r.Frame != nil && h.respond != nil {
			if resp := h.respond(r.Frame.Type, r.Frame.Payload); resp != nil {
				h.rxBuf = append(h.rxBuf, resp...)
			}
		}
	}
	return len(data), nil
}

func (h *Handle) doRead(buf []byte) (int, error) {
	n := copy(buf, h.rxBuf)
	h.rxBuf = h.rxBuf[n:]
	return n, nil
}

func (h *Handle) Write(p []byte) (int, error) {
	h.in <- ioRequest{kind: reqWrite, data: p}
	r := <-h.out
	return r.n, r.err
}

func (h *Handle) Read(p []byte) (int, error) {
	h.in <- ioRequest{kind: reqRead, data: p}
	r := <-h.out
	return r.n, r.err
}

func (h *Handle) FlushInput() error {
	h.in <- ioRequest{kind: reqFlush}
	<-h.out
	return nil
}

// Inject queues raw bytes to be read back, bypassing the responder.
// Used to simulate garbage-between-frames or pre-corrupted frames.
func (h *Handle) Inject(data []byte) {
	h.in <- ioRequest{kind: reqInject, data: data}
	<-h.out
}

func (h *Handle) Close() error {
	select {
	case <-h.done:
		return errors.New("transporttest: handle already closed")
	default:
		close(h.done)
		return nil
	}
}
