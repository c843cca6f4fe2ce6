// Package transport implements the blocking request/response exchange
// over one device handle: frame encoding, stream parsing with resync,
// and per-request deadlines.
package transport

import "time"

// Parity is the serial parity setting for a connection.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// SerialConfig describes how a handle should be opened. The core
// never opens a port itself; it hands this to the out-of-scope
// transport collaborator (see Handle).
type SerialConfig struct {
	Baud         int
	DataBits     int // 5, 6, 7, or 8
	Parity       Parity
	StopBits     int // 1 or 2
	ReadTimeout  time.Duration
}

// Handle is the opaque, out-of-scope collaborator the core reads and
// writes bytes through. The core never interprets its bits, only the
// byte stream it produces and consumes.
//
// Read must return fewer bytes than requested, including zero,
// without error when no data has arrived before the deadline — it
// must not treat that as io.EOF.
type Handle interface {
	Write(p []byte) (n int, err error)
	Read(p []byte) (n int, err error)
	// FlushInput discards any buffered, unread input.
	FlushInput() error
	Close() error
}
