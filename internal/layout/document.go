package layout

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document is the persisted form of a layout.
type Document struct {
	ScopeKey string `json:"scope_key"`
	Columns  int    `json:"columns"`
	Cells    []Cell `json:"cells"`
}

// Serialize returns the full layout as a Document.
func (e *Engine) Serialize() Document {
	return Document{
		ScopeKey: e.scopeKey,
		Columns:  e.columns,
		Cells:    e.Cells(),
	}
}

// Deserialize rebuilds an engine from a document.
//
// It never fails. Overlapping cells are kept as they are; geometry outside
// the grid is clamped and y is capped at MaxRow; a repeated widget id keeps
// its last cell.
func Deserialize(doc Document) *Engine {
	e := New(doc.ScopeKey, doc.Columns)
	for _, c := range doc.Cells {
		if c.WidgetID == "" {
			continue
		}
		c = e.clamp(c)
		if c.Y > MaxRow {
			c.Y = MaxRow
		}
		if i := e.indexLocked(c.WidgetID); i >= 0 {
			e.cells[i] = c
			continue
		}
		e.cells = append(e.cells, c)
	}
	return e
}

// Marshal encodes the layout as JSON.
func (e *Engine) Marshal() ([]byte, error) {
	return json.Marshal(e.Serialize())
}

// Unmarshal decodes a JSON document. Only malformed JSON is an error;
// geometry problems are repaired as in Deserialize.
func Unmarshal(data []byte) (*Engine, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return Deserialize(doc), nil
}

// Scope key prefixes.
const (
	scopeSystem = "system"
	scopeDevice = "device"
	scopeUser   = "user"
)

// SystemScope is the scope key of the shared layout for a hub installation.
func SystemScope(systemID string) string {
	return scopeSystem + ":" + systemID
}

// DeviceUserScope is the scope key of one user's layout for one device.
func DeviceUserScope(deviceID, userID string) string {
	return scopeDevice + ":" + deviceID + ":" + scopeUser + ":" + userID
}

// ValidateScope checks that key has one of the two scope forms.
func ValidateScope(key string) error {
	parts := strings.Split(key, ":")
	switch {
	case len(parts) == 2 && parts[0] == scopeSystem && parts[1] != "":
		return nil
	case len(parts) == 4 && parts[0] == scopeDevice && parts[2] == scopeUser &&
		parts[1] != "" && parts[3] != "":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidScope, key)
}
