package layout

import (
	"sort"
	"sync"
)

// DefaultColumns is the grid width used when none is configured.
const DefaultColumns = 12

// Geometry limits. Y+H of any cell stays far below the int range, so
// Bottom and Overlaps cannot wrap.
const (
	// MaxHeight is the tallest a cell may be.
	MaxHeight = 64

	// MaxRow is the lowest row a stored cell may start on.
	MaxRow = 100_000
)

// Cell is the grid geometry of one widget. X and Y are zero-based from the
// top-left; W and H are at least 1.
type Cell struct {
	WidgetID string `json:"widget_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	W        int    `json:"w"`
	H        int    `json:"h"`
}

// Bottom returns the first row below the cell.
func (c Cell) Bottom() int { return c.Y + c.H }

// Right returns the first column right of the cell.
func (c Cell) Right() int { return c.X + c.W }

// Overlaps reports whether two cells share at least one grid square.
func (c Cell) Overlaps(o Cell) bool {
	return c.X < o.Right() && o.X < c.Right() &&
		c.Y < o.Bottom() && o.Y < c.Bottom()
}

// Engine owns the cells of one layout document.
//
// Every operation succeeds. Geometry is clamped into the grid and a moved
// or resized cell pushes the cells it lands on downward; nothing is ever
// rejected. Engine is safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	scopeKey string
	columns  int
	cells    []Cell // insertion order
}

// New creates an empty layout. columns < 1 selects DefaultColumns.
func New(scopeKey string, columns int) *Engine {
	if columns < 1 {
		columns = DefaultColumns
	}
	return &Engine{scopeKey: scopeKey, columns: columns}
}

// ScopeKey returns the key of the document this layout belongs to.
func (e *Engine) ScopeKey() string { return e.scopeKey }

// Columns returns the grid width.
func (e *Engine) Columns() int { return e.columns }

// Place sets the geometry of widgetID, adding it if absent, and returns the
// cell as stored.
//
// w is clamped to [1, columns], h to [1, MaxHeight] and x to [0, columns-w].
// y is clamped to [0, end], where end is the first row below every other
// cell; a y past the end appends. Cells that overlap the placed cell are pushed down, and
// so on transitively, until no cell overlaps a cell above it that moved.
func (e *Engine) Place(widgetID string, x, y, w, h int) Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placeLocked(widgetID, x, y, w, h)
}

func (e *Engine) placeLocked(widgetID string, x, y, w, h int) Cell {
	c := e.clamp(Cell{WidgetID: widgetID, X: x, Y: y, W: w, H: h})
	if end := e.bottomLocked(widgetID); c.Y > end {
		c.Y = end
	}
	if i := e.indexLocked(widgetID); i >= 0 {
		e.cells[i] = c
	} else {
		e.cells = append(e.cells, c)
	}

	e.pushDownLocked(widgetID)
	return c
}

// Append places widgetID at x=0 below every existing cell.
func (e *Engine) Append(widgetID string, w, h int) Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placeLocked(widgetID, 0, e.bottomLocked(widgetID), w, h)
}

// Remove deletes the cell for widgetID. Remaining cells keep their
// positions; gaps are allowed. It reports whether a cell was removed.
func (e *Engine) Remove(widgetID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(widgetID)
	if i < 0 {
		return false
	}
	e.cells = append(e.cells[:i], e.cells[i+1:]...)
	return true
}

// Get returns the cell for widgetID.
func (e *Engine) Get(widgetID string) (Cell, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if i := e.indexLocked(widgetID); i >= 0 {
		return e.cells[i], true
	}
	return Cell{}, false
}

// Cells returns a copy of every cell in insertion order.
func (e *Engine) Cells() []Cell {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Cell, len(e.cells))
	copy(out, e.cells)
	return out
}

// Len returns the number of cells.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cells)
}

// Height returns the first empty row below all cells.
func (e *Engine) Height() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bottomLocked("")
}

// bottomLocked returns the first row below every cell except skipID.
func (e *Engine) bottomLocked(skipID string) int {
	y := 0
	for _, c := range e.cells {
		if c.WidgetID != skipID && c.Bottom() > y {
			y = c.Bottom()
		}
	}
	return y
}

func (e *Engine) clamp(c Cell) Cell {
	if c.W < 1 {
		c.W = 1
	}
	if c.W > e.columns {
		c.W = e.columns
	}
	if c.H < 1 {
		c.H = 1
	}
	if c.H > MaxHeight {
		c.H = MaxHeight
	}
	if c.X < 0 {
		c.X = 0
	}
	if c.X+c.W > e.columns {
		c.X = e.columns - c.W
	}
	if c.Y < 0 {
		c.Y = 0
	}
	return c
}

func (e *Engine) indexLocked(widgetID string) int {
	for i, c := range e.cells {
		if c.WidgetID == widgetID {
			return i
		}
	}
	return -1
}

// pushDownLocked resolves collisions caused by placing anchorID.
//
// The anchor is fixed. The other cells are visited top to bottom (then left
// to right). A cell overlapping a moved fixed cell is moved to just below
// it; once moved it must also clear every other fixed cell. It then becomes
// fixed itself. Cells only ever move down, and a cell that overlapped
// nothing that moved stays where it was.
func (e *Engine) pushDownLocked(anchorID string) {
	anchor := e.indexLocked(anchorID)

	order := make([]int, 0, len(e.cells)-1)
	for i := range e.cells {
		if i != anchor {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := e.cells[order[a]], e.cells[order[b]]
		if ca.Y != cb.Y {
			return ca.Y < cb.Y
		}
		return ca.X < cb.X
	})

	fixed := []int{anchor}
	moved := map[int]bool{anchor: true}
	for _, i := range order {
		for {
			collided := false
			for _, f := range fixed {
				// Untouched cells keep any overlap they already had.
				if !moved[f] && !moved[i] {
					continue
				}
				if e.cells[i].Overlaps(e.cells[f]) {
					e.cells[i].Y = e.cells[f].Bottom()
					moved[i] = true
					collided = true
				}
			}
			if !collided {
				break
			}
		}
		fixed = append(fixed, i)
	}
}
