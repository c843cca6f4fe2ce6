package engine

import (
	"errors"

	"github.com/tomrford/scopelink/wire"
)

func asDeviceError(err error) (*wire.DeviceError, bool) {
	var de *wire.DeviceError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func isDecodeError(err error) bool {
	var de *wire.DecodeError
	return errors.As(err, &de)
}
