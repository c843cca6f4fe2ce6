package transport

import "fmt"

// Kind distinguishes the failure modes retry policy needs to tell
// apart, principally CrcMismatch from Timeout.
type Kind int

const (
	KindTimeout Kind = iota
	KindCrcMismatch
	KindPortBusy
	KindDisconnected
	KindInvalidHandle
	KindIoError
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "Timeout"
	case KindCrcMismatch:
		return "CrcMismatch"
	case KindPortBusy:
		return "PortBusy"
	case KindDisconnected:
		return "Disconnected"
	case KindInvalidHandle:
		return "InvalidHandle"
	case KindIoError:
		return "IoError"
	default:
		return "Kind(?)"
	}
}

// Error is the flat, tagged error type transport operations fail
// with. Retry policy switches on Kind, never on the message text.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "transport: " + e.Kind.String()
	}
	return fmt.Sprintf("transport: %s: %s", e.Kind, e.Message)
}

func timeoutErr() error        { return &Error{Kind: KindTimeout} }
func crcMismatchErr() error     { return &Error{Kind: KindCrcMismatch} }
func ioErr(err error) error     { return &Error{Kind: KindIoError, Message: err.Error()} }
