package dashboard

import (
	"time"

	"github.com/nerrad567/saphari-core/internal/layout"
	"github.com/nerrad567/saphari-core/internal/widget"
)

// Dashboard is the stored form of one scope's dashboard.
type Dashboard struct {
	ScopeKey  string          `json:"scope_key"`
	Columns   int             `json:"columns"`
	Cells     []layout.Cell   `json:"cells"`
	Widgets   []widget.Widget `json:"widgets"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Layout returns the layout document part of the dashboard.
func (d Dashboard) Layout() layout.Document {
	return layout.Document{ScopeKey: d.ScopeKey, Columns: d.Columns, Cells: d.Cells}
}

// Widget returns the widget with the given ID.
func (d Dashboard) Widget(id string) (widget.Widget, bool) {
	for _, w := range d.Widgets {
		if w.ID == id {
			return w, true
		}
	}
	return widget.Widget{}, false
}

// Cell returns the grid cell of the given widget.
func (d Dashboard) Cell(id string) (layout.Cell, bool) {
	for _, c := range d.Cells {
		if c.WidgetID == id {
			return c, true
		}
	}
	return layout.Cell{}, false
}
