package device

import (
	"fmt"
	"strings"
	"time"
)

// Status is the connectivity state of a device.
type Status string

// Connectivity states. A device absent from the registry is StatusOffline.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// AllStatuses returns every valid status.
func AllStatuses() []Status {
	return []Status{StatusOnline, StatusOffline, StatusError}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusError:
		return true
	}
	return false
}

// ParseStatus converts a wire status string (case-insensitive) to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Device is one known device and its connectivity.
//
// LastSeen is zero until the first status or telemetry message arrives and
// never moves backwards afterwards.
//
// SystemID names the hub installation the device belongs to; it links the
// device to that system's dashboard scope. Devices discovered from traffic
// have none until they are registered.
type Device struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	SystemID string    `json:"system_id,omitempty"`
	Status   Status    `json:"status"`
	LastSeen time.Time `json:"last_seen,omitempty"`
}

// Online reports whether the device is currently online.
func (d Device) Online() bool {
	return d.Status == StatusOnline
}
