package layout

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
)

// assertNoOverlap fails if any two cells share a grid square.
func assertNoOverlap(t *testing.T, cells []Cell) {
	t.Helper()
	for i := range cells {
		for j := i + 1; j < len(cells); j++ {
			if cells[i].Overlaps(cells[j]) {
				t.Errorf("cells overlap: %+v and %+v", cells[i], cells[j])
			}
		}
	}
}

func assertInGrid(t *testing.T, e *Engine) {
	t.Helper()
	for _, c := range e.Cells() {
		if c.X < 0 || c.Y < 0 || c.W < 1 || c.H < 1 || c.Right() > e.Columns() {
			t.Errorf("cell outside grid: %+v (columns=%d)", c, e.Columns())
		}
	}
}

// ============================================================================
// Append
// ============================================================================

func TestAppend_StacksBelow(t *testing.T) {
	e := New(SystemScope("hub"), 12)

	var ys []int
	for i := 0; i < 3; i++ {
		c := e.Append(fmt.Sprintf("w%d", i), 3, 2)
		if c.X != 0 {
			t.Errorf("Append #%d x = %d, want 0", i, c.X)
		}
		ys = append(ys, c.Y)
	}

	want := []int{0, 2, 4}
	for i := range want {
		if ys[i] != want[i] {
			t.Errorf("y values = %v, want %v", ys, want)
			break
		}
	}
	if e.Height() != 6 {
		t.Errorf("Height() = %d, want 6", e.Height())
	}
}

func TestAppend_ExistingWidgetMovesToBottom(t *testing.T) {
	e := New("system:x", 12)
	e.Append("a", 3, 2)
	e.Append("b", 3, 2)

	c := e.Append("a", 3, 2)
	if c.Y != 4 {
		t.Errorf("re-append y = %d, want 4", c.Y)
	}
	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}
}

// ============================================================================
// Place
// ============================================================================

func TestPlace_Clamps(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		want       Cell
	}{
		{"in range", 2, 0, 4, 2, Cell{X: 2, Y: 0, W: 4, H: 2}},
		{"row past end of empty grid", 2, 3, 4, 2, Cell{X: 2, Y: 0, W: 4, H: 2}},
		{"too tall", 0, 0, 1, MaxHeight + 1, Cell{X: 0, Y: 0, W: 1, H: MaxHeight}},
		{"negative position", -5, -1, 3, 2, Cell{X: 0, Y: 0, W: 3, H: 2}},
		{"zero size", 0, 0, 0, 0, Cell{X: 0, Y: 0, W: 1, H: 1}},
		{"too wide", 4, 0, 20, 1, Cell{X: 0, Y: 0, W: 12, H: 1}},
		{"past right edge", 11, 0, 3, 1, Cell{X: 9, Y: 0, W: 3, H: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New("system:x", 12)
			got := e.Place("w", tt.x, tt.y, tt.w, tt.h)
			tt.want.WidgetID = "w"
			if got != tt.want {
				t.Errorf("Place() = %+v, want %+v", got, tt.want)
			}
			stored, ok := e.Get("w")
			if !ok || stored != got {
				t.Errorf("Get() = %+v, %v", stored, ok)
			}
		})
	}
}

func TestPlace_PushesDown(t *testing.T) {
	e := New("system:x", 12)
	e.Place("a", 0, 0, 4, 2)
	e.Place("b", 0, 2, 4, 2)
	e.Place("c", 6, 0, 2, 2)

	// New cell lands on top of a.
	e.Place("n", 0, 0, 6, 3)

	got := map[string]Cell{}
	for _, c := range e.Cells() {
		got[c.WidgetID] = c
	}

	if got["n"].Y != 0 {
		t.Errorf("n moved: %+v", got["n"])
	}
	if got["a"].Y != 3 {
		t.Errorf("a.Y = %d, want 3", got["a"].Y)
	}
	if got["b"].Y != 5 {
		t.Errorf("b.Y = %d, want 5 (cascaded below a)", got["b"].Y)
	}
	if got["c"].Y != 0 {
		t.Errorf("c should not move: %+v", got["c"])
	}
	assertNoOverlap(t, e.Cells())
}

func TestPlace_HugeGeometryStaysBounded(t *testing.T) {
	e := New("system:x", 12)
	e.Append("a", 3, 2)

	b := e.Place("b", 0, math.MaxInt, 3, 5)
	if b.Y != 2 || b.Bottom() != 7 {
		t.Errorf("b = %+v, want appended at y=2", b)
	}

	c := e.Append("c", 3, 2)
	if c.Y != 7 {
		t.Errorf("c.Y = %d, want 7 (below b)", c.Y)
	}

	d := e.Place("d", 0, 0, 3, math.MaxInt)
	if d.H != MaxHeight {
		t.Errorf("d.H = %d, want %d", d.H, MaxHeight)
	}

	cells := e.Cells()
	assertInGrid(t, e)
	assertNoOverlap(t, cells)
	for _, cell := range cells {
		if cell.Bottom() <= cell.Y {
			t.Errorf("bottom wrapped: %+v", cell)
		}
	}
	if h := e.Height(); h <= 0 || h > MaxHeight*len(cells) {
		t.Errorf("Height() = %d", h)
	}
}

func TestDeserialize_HugeRowIsCapped(t *testing.T) {
	e := Deserialize(Document{
		ScopeKey: "system:x",
		Columns:  12,
		Cells:    []Cell{{WidgetID: "a", X: 0, Y: math.MaxInt, W: 3, H: math.MaxInt}},
	})

	a, _ := e.Get("a")
	if a.Y != MaxRow || a.H != MaxHeight {
		t.Errorf("a = %+v, want y=%d h=%d", a, MaxRow, MaxHeight)
	}
	if next := e.Append("b", 3, 2); next.Y != MaxRow+MaxHeight {
		t.Errorf("Append() y = %d, want %d", next.Y, MaxRow+MaxHeight)
	}
}

func TestPlace_MoveExisting(t *testing.T) {
	e := New("system:x", 12)
	e.Append("a", 12, 1)
	e.Append("b", 12, 1)

	e.Place("b", 0, 0, 12, 1)

	a, _ := e.Get("a")
	b, _ := e.Get("b")
	if b.Y != 0 || a.Y != 1 {
		t.Errorf("after swap a=%+v b=%+v", a, b)
	}
	if e.Len() != 2 {
		t.Errorf("Len() = %d", e.Len())
	}
}

func TestPlace_RandomKeepsGridValid(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	e := New("system:x", 12)

	for i := 0; i < 300; i++ {
		id := fmt.Sprintf("w%d", r.Intn(15))
		e.Place(id, r.Intn(20)-4, r.Intn(20)-4, r.Intn(14)-1, r.Intn(5)-1)
		assertInGrid(t, e)
		assertNoOverlap(t, e.Cells())
		if t.Failed() {
			t.Fatalf("failed after %d placements", i+1)
		}
	}
}

// ============================================================================
// Remove and misc
// ============================================================================

func TestRemove_LeavesGap(t *testing.T) {
	e := New("system:x", 12)
	e.Append("a", 3, 2)
	e.Append("b", 3, 2)
	e.Append("c", 3, 2)

	if !e.Remove("b") {
		t.Fatal("Remove(b) = false")
	}
	if e.Remove("b") {
		t.Error("second Remove(b) = true")
	}

	c, _ := e.Get("c")
	if c.Y != 4 {
		t.Errorf("c.Y = %d after remove, want 4", c.Y)
	}
	if _, ok := e.Get("b"); ok {
		t.Error("b still present")
	}
}

func TestNew_DefaultColumns(t *testing.T) {
	if got := New("system:x", 0).Columns(); got != DefaultColumns {
		t.Errorf("Columns() = %d, want %d", got, DefaultColumns)
	}
}

func TestCells_ReturnsCopy(t *testing.T) {
	e := New("system:x", 12)
	e.Append("a", 3, 2)

	cells := e.Cells()
	cells[0].Y = 99

	if c, _ := e.Get("a"); c.Y != 0 {
		t.Error("mutating Cells() result changed the engine")
	}
}

// ============================================================================
// Documents
// ============================================================================

func TestMarshal_RoundTrip(t *testing.T) {
	e := New(DeviceUserScope("d1", "u1"), 8)
	e.Append("a", 3, 2)
	e.Place("b", 4, 0, 4, 3)

	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.ScopeKey() != "device:d1:user:u1" || got.Columns() != 8 {
		t.Errorf("header = %q/%d", got.ScopeKey(), got.Columns())
	}
	want := e.Cells()
	cells := got.Cells()
	if len(cells) != len(want) {
		t.Fatalf("cells = %+v, want %+v", cells, want)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cell %d = %+v, want %+v", i, cells[i], want[i])
		}
	}
}

func TestDeserialize_ToleratesOverlap(t *testing.T) {
	doc := Document{
		ScopeKey: "system:x",
		Columns:  12,
		Cells: []Cell{
			{WidgetID: "a", X: 0, Y: 0, W: 4, H: 4},
			{WidgetID: "b", X: 2, Y: 2, W: 4, H: 4},
			{WidgetID: "", X: 0, Y: 0, W: 1, H: 1},
			{WidgetID: "c", X: 10, Y: -3, W: 5, H: 0},
		},
	}

	e := Deserialize(doc)

	if e.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", e.Len())
	}
	b, _ := e.Get("b")
	if b.X != 2 || b.Y != 2 {
		t.Errorf("overlapping cell was moved: %+v", b)
	}
	c, _ := e.Get("c")
	if c != (Cell{WidgetID: "c", X: 7, Y: 0, W: 5, H: 1}) {
		t.Errorf("c = %+v, want clamped", c)
	}
}

func TestDeserialize_ThenPlaceResolvesOnlyMovedCollisions(t *testing.T) {
	e := Deserialize(Document{
		ScopeKey: "system:x",
		Columns:  12,
		Cells: []Cell{
			{WidgetID: "a", X: 0, Y: 0, W: 4, H: 4},
			{WidgetID: "b", X: 2, Y: 2, W: 4, H: 4},
			{WidgetID: "z", X: 8, Y: 0, W: 2, H: 2},
		},
	})

	e.Place("z", 8, 1, 2, 2)

	b, _ := e.Get("b")
	if b.Y != 2 {
		t.Errorf("unrelated overlap changed: %+v", b)
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	if _, err := Unmarshal([]byte("{nope")); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("Unmarshal() error = %v, want ErrInvalidDocument", err)
	}
}

func TestValidateScope(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{SystemScope("hub-1"), true},
		{DeviceUserScope("d1", "u1"), true},
		{"system:", false},
		{"device:d1:user:", false},
		{"device:d1", false},
		{"tenant:x", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateScope(tt.key)
			if (err == nil) != tt.want {
				t.Errorf("ValidateScope(%q) = %v", tt.key, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidScope) {
				t.Errorf("error not ErrInvalidScope: %v", err)
			}
		})
	}
}
