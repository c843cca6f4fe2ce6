// Package serialhandle adapts github.com/tarm/serial to the
// transport.Handle interface. Port enumeration and the choice of
// which path to open are out of scope for the core; this package only
// opens the path it's given.
package serialhandle

import (
	"github.com/tarm/serial"

	"github.com/tomrford/scopelink/transport"
)

// Open opens path with cfg and returns a transport.Handle backed by a
// real serial port.
func Open(path string, cfg transport.SerialConfig) (transport.Handle, error) {
	conf := &serial.Config{
		Name:        path,
		Baud:        cfg.Baud,
		Size:        byte(cfg.DataBits),
		Parity:      toSerialParity(cfg.Parity),
		StopBits:    toSerialStopBits(cfg.StopBits),
		ReadTimeout: cfg.ReadTimeout,
	}
	port, err := serial.OpenPort(conf)
	if err != nil {
		return nil, err
	}
	return &handle{port: port}, nil
}

func toSerialParity(p transport.Parity) serial.Parity {
	switch p {
	case transport.ParityOdd:
		return serial.ParityOdd
	case transport.ParityEven:
		return serial.ParityEven
	default:
		return serial.ParityNone
	}
}

func toSerialStopBits(n int) serial.StopBits {
	if n == 2 {
		return serial.Stop2
	}
	return serial.Stop1
}

type handle struct {
	port *serial.Port
}

func (h *handle) Write(p []byte) (int, error) { return h.port.Write(p) }
func (h *handle) Read(p []byte) (int, error)  { return h.port.Read(p) }
func (h *handle) FlushInput() error           { return h.port.Flush() }
func (h *handle) Close() error                { return h.port.Close() }
