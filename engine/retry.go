package engine

import (
	"errors"

	"github.com/tomrford/scopelink/transport"
)

// withRetry calls op up to attempts times in total, retrying only when it fails
// with a CrcMismatch; every other error (timeout, decode, device,
// disconnect) returns immediately on the first try, per the retry
// policy in spec.md section 4.7.5.
func withRetry[T any](attempts int, op func() (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}
	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := op()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !isCrcMismatch(err) {
			return zero, err
		}
	}
	return zero, lastErr
}

func isCrcMismatch(err error) bool {
	var te *transport.Error
	return errors.As(err, &te) && te.Kind == transport.KindCrcMismatch
}

func isTimeout(err error) bool {
	var te *transport.Error
	return errors.As(err, &te) && te.Kind == transport.KindTimeout
}

// errKind classifies an error into the short tag store.DeviceErrorEvent
// carries, per the flat error taxonomy in spec.md section 7.
func errKind(err error) string {
	var te *transport.Error
	if errors.As(err, &te) {
		return te.Kind.String()
	}
	if de, ok := asDeviceError(err); ok {
		return de.Code.String()
	}
	if isDecodeError(err) {
		return "DecodeError"
	}
	return "Error"
}
