package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which member of a Value is populated.
type Kind int

// Value kinds. KindInvalid is the zero value and never stored in the cache.
const (
	KindInvalid Kind = iota
	KindNumber
	KindString
	KindBool
)

// String returns the JSON type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	default:
		return "invalid"
	}
}

// MarshalText encodes the kind by its JSON type name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts "number", "string", "boolean", or "" and "any"
// for KindInvalid.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "number":
		*k = KindNumber
	case "string":
		*k = KindString
	case "boolean", "bool":
		*k = KindBool
	case "", "any", "invalid":
		*k = KindInvalid
	default:
		return fmt.Errorf("telemetry: unknown value kind %q", text)
	}
	return nil
}

// Value is a scalar metric value: a number, a string or a boolean.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which member is set.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a number, string or boolean.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Float returns the numeric member and whether v is a number.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

// Str returns the string member and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Boolean returns the boolean member and whether v is a boolean.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Interface returns v as float64, string or bool (nil when invalid).
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	return v == o
}

// Display formats the value for a widget label.
func (v Value) Display() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// FromAny converts a decoded JSON scalar into a Value.
// Integers of any width are accepted as numbers.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, x)
	}
}

// MarshalJSON encodes the value as a bare JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.IsValid() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts a JSON number, string or boolean.
// null, objects and arrays return ErrInvalidValue.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var x any
	if err := dec.Decode(&x); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	parsed, err := FromAny(x)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
