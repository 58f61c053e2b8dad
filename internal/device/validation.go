package device

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxIDLength bounds device identifiers so topics stay well under broker limits.
const MaxIDLength = 128

// MaxNameLength bounds the optional display name.
const MaxNameLength = 100

// ValidateID checks that id can be used as a single topic segment.
//
// An ID must be non-empty, at most MaxIDLength bytes and free of the MQTT
// separator and wildcard characters ('/', '+', '#').
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: id exceeds %d bytes", ErrInvalidDevice, MaxIDLength)
	}
	if strings.ContainsAny(id, "/+#") {
		return fmt.Errorf("%w: id %q contains a topic separator or wildcard", ErrInvalidDevice, id)
	}
	if strings.TrimSpace(id) != id {
		return fmt.Errorf("%w: id %q has surrounding whitespace", ErrInvalidDevice, id)
	}
	return nil
}

// ValidateSystemID checks the optional system a device belongs to. The same
// character rules as ValidateID apply, since the id ends up in scope keys.
func ValidateSystemID(systemID string) error {
	if systemID == "" {
		return nil
	}
	if len(systemID) > MaxIDLength {
		return fmt.Errorf("%w: system_id exceeds %d bytes", ErrInvalidDevice, MaxIDLength)
	}
	if strings.ContainsAny(systemID, "/+#:") || strings.TrimSpace(systemID) != systemID {
		return fmt.Errorf("%w: system_id %q is malformed", ErrInvalidDevice, systemID)
	}
	return nil
}

// ValidateName checks the optional display name.
func ValidateName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidDevice, MaxNameLength)
	}
	return nil
}
