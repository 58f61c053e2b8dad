package widget

import (
	"fmt"
	"strings"

	"github.com/nerrad567/saphari-core/internal/telemetry"
)

// Mode says whether a binding may write commands.
type Mode string

// Binding modes.
const (
	ModeReadOnly Mode = "read_only"
	ModeWrite    Mode = "write"
)

// Type is a widget kind from the dashboard palette.
type Type string

// Widget types.
const (
	TypeSwitch    Type = "switch"
	TypeSlider    Type = "slider"
	TypeButton    Type = "button"
	TypeGauge     Type = "gauge"
	TypeNumber    Type = "number"
	TypeLabel     Type = "label"
	TypeIndicator Type = "indicator"
	TypeChart     Type = "chart"
)

// AllTypes returns every widget type in palette order.
func AllTypes() []Type {
	return []Type{
		TypeSwitch, TypeSlider, TypeButton, TypeGauge,
		TypeNumber, TypeLabel, TypeIndicator, TypeChart,
	}
}

// ParseType converts a case-insensitive type name.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// CommandTemplate describes the command a WRITE binding sends.
//
// The published params are {"key": <metric key>, "value": <user value>}
// merged over Static. ValueKind restricts the accepted user value
// (KindInvalid accepts any scalar or none); Min/Max bound numbers.
type CommandTemplate struct {
	Command   string         `json:"command"`
	ValueKind telemetry.Kind `json:"value_kind,omitempty"`
	BoolAsInt bool           `json:"bool_as_int,omitempty"`
	Min       *float64       `json:"min,omitempty"`
	Max       *float64       `json:"max,omitempty"`
	Static    map[string]any `json:"static,omitempty"`
}

// Binding ties a widget to one metric of one device.
type Binding struct {
	DeviceID  string           `json:"device_id"`
	MetricKey string           `json:"metric_key"`
	Mode      Mode             `json:"mode"`
	Command   *CommandTemplate `json:"command,omitempty"`
}

// Options are presentation hints carried with the widget.
type Options struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Unit string   `json:"unit,omitempty"`
	Text string   `json:"text,omitempty"`
}

// Widget is one dashboard widget definition.
type Widget struct {
	ID      string   `json:"id"`
	Type    Type     `json:"type"`
	Title   string   `json:"title,omitempty"`
	Binding *Binding `json:"binding,omitempty"`
	Options Options  `json:"options"`
}

// Clone returns a deep copy of w: the binding, its command template and
// every pointer or map they hold are copied.
func (w Widget) Clone() Widget {
	w.Options.Min = cloneFloat(w.Options.Min)
	w.Options.Max = cloneFloat(w.Options.Max)
	if w.Binding == nil {
		return w
	}

	b := *w.Binding
	if b.Command != nil {
		cmd := *b.Command
		cmd.Min = cloneFloat(cmd.Min)
		cmd.Max = cloneFloat(cmd.Max)
		if cmd.Static != nil {
			static := make(map[string]any, len(cmd.Static))
			for k, v := range cmd.Static {
				static[k] = cloneJSON(v)
			}
			cmd.Static = static
		}
		b.Command = &cmd
	}
	w.Binding = &b
	return w
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// cloneJSON copies the container values encoding/json produces.
func cloneJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneJSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneJSON(e)
		}
		return out
	default:
		return v
	}
}

// Validate checks that the widget is internally consistent.
func (w Widget) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidWidget)
	}
	if _, err := ParseType(string(w.Type)); err != nil {
		return err
	}
	if w.Binding == nil {
		if w.Type != TypeLabel {
			return fmt.Errorf("%w: %s widget needs a binding", ErrInvalidWidget, w.Type)
		}
		return nil
	}

	b := w.Binding
	if b.DeviceID == "" || b.MetricKey == "" {
		return fmt.Errorf("%w: binding needs device_id and metric_key", ErrInvalidWidget)
	}
	switch b.Mode {
	case ModeReadOnly:
	case ModeWrite:
		if b.Command == nil || b.Command.Command == "" {
			return fmt.Errorf("%w: write binding needs a command", ErrInvalidWidget)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidWidget, b.Mode)
	}
	return nil
}

func floatPtr(f float64) *float64 { return &f }

// NewWidget builds a widget of the given type with the palette defaults.
//
// metricKey may be empty to take the type's default key (relay for
// switches, dimmer for sliders, temp otherwise). Labels carry no binding.
func NewWidget(id string, typ Type, deviceID, metricKey string) (Widget, error) {
	if _, err := ParseType(string(typ)); err != nil {
		return Widget{}, err
	}

	w := Widget{ID: id, Type: typ}
	if typ == TypeLabel {
		w.Options.Text = "Label"
		return w, nil
	}

	b := &Binding{DeviceID: deviceID, MetricKey: metricKey, Mode: ModeReadOnly}
	switch typ {
	case TypeSwitch:
		if b.MetricKey == "" {
			b.MetricKey = "relay"
		}
		b.Mode = ModeWrite
		b.Command = &CommandTemplate{
			Command:   "relay.set",
			ValueKind: telemetry.KindBool,
			BoolAsInt: true,
		}
	case TypeSlider:
		if b.MetricKey == "" {
			b.MetricKey = "dimmer"
		}
		b.Mode = ModeWrite
		b.Command = &CommandTemplate{
			Command:   "set_value",
			ValueKind: telemetry.KindNumber,
			Min:       floatPtr(0),
			Max:       floatPtr(100),
		}
		w.Options.Min, w.Options.Max = floatPtr(0), floatPtr(100)
	case TypeButton:
		if b.MetricKey == "" {
			b.MetricKey = "button"
		}
		b.Mode = ModeWrite
		b.Command = &CommandTemplate{Command: "trigger"}
	default:
		if b.MetricKey == "" {
			b.MetricKey = "temp"
		}
		if typ == TypeGauge {
			w.Options.Min, w.Options.Max = floatPtr(0), floatPtr(100)
		}
	}
	w.Binding = b

	if err := w.Validate(); err != nil {
		return Widget{}, err
	}
	return w, nil
}
