package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when registering a device ID twice in the store.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when a device ID is empty or malformed.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidStatus is returned for status strings other than online, offline or error.
	ErrInvalidStatus = errors.New("device: invalid status")
)
