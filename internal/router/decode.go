package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/nerrad567/saphari-core/internal/device"
	"github.com/nerrad567/saphari-core/internal/telemetry"
	"github.com/nerrad567/saphari-core/internal/topic"
)

// Message is the decoded form of an inbound payload. It is one of
// StatusMessage, TelemetryMessage or PassThrough.
type Message interface {
	message()
}

// StatusMessage is a decoded status-channel payload.
// Timestamp is zero when the device did not send "ts".
type StatusMessage struct {
	Status    device.Status
	Timestamp time.Time
}

// TelemetryMessage is a decoded telemetry-channel payload.
//
// Metrics holds every well-formed value. Keys whose value was not a number,
// string or boolean are listed in Skipped; they do not invalidate the rest.
type TelemetryMessage struct {
	Timestamp time.Time
	Metrics   map[string]telemetry.Value
	Skipped   []string
}

// PassThrough is a message on a recognised channel the core does not
// interpret (events, shadow/report, shadow/get, cmd).
type PassThrough struct {
	Channel topic.Channel
	Payload []byte
}

func (StatusMessage) message()    {}
func (TelemetryMessage) message() {}
func (PassThrough) message()      {}

// statusPayload is the wire shape {"status": "...", "ts": <millis>?}.
type statusPayload struct {
	Status *string      `json:"status"`
	TS     *json.Number `json:"ts"`
}

// telemetryPayload is the wire shape {"ts": <millis>, "metrics": {...}}.
type telemetryPayload struct {
	TS      *json.Number               `json:"ts"`
	Metrics map[string]json.RawMessage `json:"metrics"`
}

// Decode validates payload against the shape expected on ch.
//
// Status payloads need a "status" of online, offline or error (any case)
// and may carry "ts". Telemetry payloads need an integer millisecond "ts"
// greater than zero and a "metrics" object. All failures wrap ErrDecode.
func Decode(ch topic.Channel, payload []byte) (Message, error) {
	switch ch {
	case topic.ChannelStatus:
		return decodeStatus(payload)
	case topic.ChannelTelemetry:
		return decodeTelemetry(payload)
	case topic.ChannelEvents, topic.ChannelShadowReport, topic.ChannelShadowGet, topic.ChannelCmd:
		return PassThrough{Channel: ch, Payload: payload}, nil
	default:
		return nil, fmt.Errorf("%w: no decoder for channel %s", ErrDecode, ch)
	}
}

func decodeStatus(payload []byte) (Message, error) {
	var p statusPayload
	if err := unmarshalObject(payload, &p); err != nil {
		return nil, err
	}
	if p.Status == nil {
		return nil, fmt.Errorf("%w: status field missing", ErrDecode)
	}

	status, err := device.ParseStatus(*p.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	msg := StatusMessage{Status: status}
	if p.TS != nil {
		ts, err := parseMillis(*p.TS)
		if err != nil {
			return nil, err
		}
		msg.Timestamp = ts
	}
	return msg, nil
}

func decodeTelemetry(payload []byte) (Message, error) {
	var p telemetryPayload
	if err := unmarshalObject(payload, &p); err != nil {
		return nil, err
	}
	if p.TS == nil {
		return nil, fmt.Errorf("%w: ts field missing", ErrDecode)
	}
	if p.Metrics == nil {
		return nil, fmt.Errorf("%w: metrics must be an object", ErrDecode)
	}

	ts, err := parseMillis(*p.TS)
	if err != nil {
		return nil, err
	}

	msg := TelemetryMessage{
		Timestamp: ts,
		Metrics:   make(map[string]telemetry.Value, len(p.Metrics)),
	}
	for key, raw := range p.Metrics {
		var v telemetry.Value
		if key == "" || json.Unmarshal(raw, &v) != nil {
			msg.Skipped = append(msg.Skipped, key)
			continue
		}
		msg.Metrics[key] = v
	}
	sort.Strings(msg.Skipped)

	return msg, nil
}

// unmarshalObject decodes exactly one JSON object. Other top-level values
// and anything after the object other than whitespace are rejected.
func unmarshalObject(payload []byte, into any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: payload is not a JSON object", ErrDecode)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", ErrDecode)
	}
	return nil
}

// parseMillis accepts an integral number of Unix milliseconds greater than zero.
func parseMillis(n json.Number) (time.Time, error) {
	if ms, err := n.Int64(); err == nil {
		if ms <= 0 {
			return time.Time{}, fmt.Errorf("%w: ts must be positive, got %d", ErrDecode, ms)
		}
		return time.UnixMilli(ms), nil
	}

	// Some firmware serialises integers as 1.7e12.
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f <= 0 || f > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("%w: ts %q is not integer milliseconds", ErrDecode, n.String())
	}
	return time.UnixMilli(int64(f)), nil
}
