package topic

import (
	"fmt"
	"strings"
)

// DefaultNamespace is the root segment used by Saphari devices.
const DefaultNamespace = "saphari"

// devicesSegment is the fixed second segment of every device topic.
const devicesSegment = "devices"

// SingleLevelWildcard replaces the device id in subscription patterns.
const SingleLevelWildcard = "+"

// Channel identifies the purpose of a device topic.
type Channel int

// Known channels. ChannelUnrecognized is returned by Parse for anything else.
const (
	ChannelUnrecognized Channel = iota
	ChannelStatus
	ChannelTelemetry
	ChannelEvents
	ChannelShadowReport
	ChannelShadowGet
	ChannelCmd
)

// channelSuffixes maps each channel to its wire suffix.
var channelSuffixes = map[Channel]string{
	ChannelStatus:       "status",
	ChannelTelemetry:    "telemetry",
	ChannelEvents:       "events",
	ChannelShadowReport: "shadow/report",
	ChannelShadowGet:    "shadow/get",
	ChannelCmd:          "cmd",
}

// Channels returns every recognised channel in declaration order.
func Channels() []Channel {
	return []Channel{
		ChannelStatus,
		ChannelTelemetry,
		ChannelEvents,
		ChannelShadowReport,
		ChannelShadowGet,
		ChannelCmd,
	}
}

// String returns the wire suffix ("shadow/report") or "unrecognized".
func (c Channel) String() string {
	if s, ok := channelSuffixes[c]; ok {
		return s
	}
	return "unrecognized"
}

// Set holds the six topics owned by one device.
type Set struct {
	Status       string `json:"status"`
	Telemetry    string `json:"telemetry"`
	Events       string `json:"events"`
	ShadowReport string `json:"shadowReport"`
	ShadowGet    string `json:"shadowGet"`
	Cmd          string `json:"cmd"`
}

// Model builds and parses device topics under one namespace.
// The zero value uses DefaultNamespace.
type Model struct {
	namespace string
}

// New returns a Model rooted at namespace. An empty namespace selects DefaultNamespace.
func New(namespace string) Model {
	return Model{namespace: namespace}
}

// Namespace returns the root topic segment.
func (m Model) Namespace() string {
	if m.namespace == "" {
		return DefaultNamespace
	}
	return m.namespace
}

// Topic returns <namespace>/devices/<deviceID>/<channel>.
func (m Model) Topic(deviceID string, ch Channel) string {
	return fmt.Sprintf("%s/%s/%s/%s", m.Namespace(), devicesSegment, deviceID, ch)
}

// For returns every topic owned by deviceID.
//
// Example: For("esp32-001").Cmd == "saphari/devices/esp32-001/cmd"
func (m Model) For(deviceID string) Set {
	return Set{
		Status:       m.Topic(deviceID, ChannelStatus),
		Telemetry:    m.Topic(deviceID, ChannelTelemetry),
		Events:       m.Topic(deviceID, ChannelEvents),
		ShadowReport: m.Topic(deviceID, ChannelShadowReport),
		ShadowGet:    m.Topic(deviceID, ChannelShadowGet),
		Cmd:          m.Topic(deviceID, ChannelCmd),
	}
}

// Wildcard returns the subscription pattern receiving ch for every device.
//
// Pattern: saphari/devices/+/telemetry
func (m Model) Wildcard(ch Channel) string {
	return m.Topic(SingleLevelWildcard, ch)
}

// Parse extracts the device id (third segment) and classifies the remainder.
//
// A topic outside the namespace, with an empty or wildcard device id, or with
// an unknown suffix returns ChannelUnrecognized. The device id is still
// returned when it could be located so callers can log it.
func (m Model) Parse(t string) (deviceID string, ch Channel) {
	parts := strings.SplitN(t, "/", 4)
	if len(parts) < 4 {
		return "", ChannelUnrecognized
	}
	if parts[0] != m.Namespace() || parts[1] != devicesSegment {
		return "", ChannelUnrecognized
	}

	deviceID = parts[2]
	if deviceID == "" || deviceID == SingleLevelWildcard || deviceID == "#" {
		return "", ChannelUnrecognized
	}

	suffix := parts[3]
	for c, s := range channelSuffixes {
		if s == suffix {
			return deviceID, c
		}
	}
	return deviceID, ChannelUnrecognized
}
