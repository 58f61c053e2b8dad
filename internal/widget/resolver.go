package widget

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/saphari-core/internal/telemetry"
)

// Unknown is the display text for a binding with no cached sample.
const Unknown = "—"

// SampleReader is the read side of the telemetry cache.
type SampleReader interface {
	Latest(deviceID, key string) (telemetry.Sample, bool)
}

// Display is the resolved read value of a binding.
// When Known is false the metric has never been seen; it is not zero.
type Display struct {
	Known     bool
	Value     telemetry.Value
	Timestamp time.Time
}

// String renders the value for a label, or Unknown.
func (d Display) String() string {
	if !d.Known {
		return Unknown
	}
	return d.Value.Display()
}

// MarshalJSON encodes {"known", "value", "ts", "text"}; value and ts are
// null when unknown.
func (d Display) MarshalJSON() ([]byte, error) {
	out := struct {
		Known bool             `json:"known"`
		Value *telemetry.Value `json:"value"`
		TS    *int64           `json:"ts"`
		Text  string           `json:"text"`
	}{Known: d.Known, Text: d.String()}

	if d.Known {
		v := d.Value
		ms := d.Timestamp.UnixMilli()
		out.Value, out.TS = &v, &ms
	}
	return json.Marshal(out)
}

// CommandMessage is the payload published on a device's cmd topic.
type CommandMessage struct {
	TS      int64          `json:"ts"`
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
	ReqID   string         `json:"reqId,omitempty"`
}

// Resolver maps bindings to cache reads and command messages.
// It holds no state of its own.
type Resolver struct {
	cache SampleReader
}

// NewResolver creates a resolver over the telemetry cache.
func NewResolver(cache SampleReader) *Resolver {
	return &Resolver{cache: cache}
}

// ResolveDisplay reads the latest sample for the binding.
func (r *Resolver) ResolveDisplay(b Binding) Display {
	s, ok := r.cache.Latest(b.DeviceID, b.MetricKey)
	if !ok {
		return Display{}
	}
	return Display{Known: true, Value: s.Value, Timestamp: s.Timestamp}
}

// ResolveCommand builds the command for a user action on a WRITE binding.
//
// userValue is the scalar the user chose (nil for momentary buttons).
// A READ_ONLY binding always returns ErrReadOnlyBinding and no message.
func (r *Resolver) ResolveCommand(b Binding, userValue any, now time.Time) (CommandMessage, error) {
	if b.Mode != ModeWrite {
		return CommandMessage{}, fmt.Errorf("%w: %s/%s", ErrReadOnlyBinding, b.DeviceID, b.MetricKey)
	}
	tmpl := b.Command
	if tmpl == nil || tmpl.Command == "" {
		return CommandMessage{}, ErrNoCommandTemplate
	}

	params := make(map[string]any, len(tmpl.Static)+2)
	for k, v := range tmpl.Static {
		params[k] = v
	}
	params["key"] = b.MetricKey

	if userValue != nil {
		v, err := telemetry.FromAny(userValue)
		if err != nil {
			return CommandMessage{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		wire, err := tmpl.encode(v)
		if err != nil {
			return CommandMessage{}, err
		}
		params["value"] = wire
	} else if tmpl.ValueKind != telemetry.KindInvalid {
		return CommandMessage{}, fmt.Errorf("%w: %s requires a %s value", ErrInvalidValue, tmpl.Command, tmpl.ValueKind)
	}

	return CommandMessage{
		TS:      now.UnixMilli(),
		Command: tmpl.Command,
		Params:  params,
	}, nil
}

// encode checks v against the template and converts it to its wire form.
func (t *CommandTemplate) encode(v telemetry.Value) (any, error) {
	if t.ValueKind == telemetry.KindBool {
		// Switches also accept 0 and 1.
		if f, ok := v.Float(); ok && (f == 0 || f == 1) {
			v = telemetry.Bool(f == 1)
		}
	}
	if t.ValueKind != telemetry.KindInvalid && v.Kind() != t.ValueKind {
		return nil, fmt.Errorf("%w: %s expects %s, got %s", ErrInvalidValue, t.Command, t.ValueKind, v.Kind())
	}

	if f, ok := v.Float(); ok {
		if t.Min != nil && f < *t.Min {
			return nil, fmt.Errorf("%w: %v below minimum %v", ErrInvalidValue, f, *t.Min)
		}
		if t.Max != nil && f > *t.Max {
			return nil, fmt.Errorf("%w: %v above maximum %v", ErrInvalidValue, f, *t.Max)
		}
	}

	if b, ok := v.Boolean(); ok && t.BoolAsInt {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return v.Interface(), nil
}
