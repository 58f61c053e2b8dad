package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/saphari-core/internal/infrastructure/config"
	"github.com/nerrad567/saphari-core/internal/infrastructure/database"
	"github.com/nerrad567/saphari-core/internal/layout"
	"github.com/nerrad567/saphari-core/internal/widget"
	"github.com/nerrad567/saphari-core/migrations"
)

// setupTestDB opens an in-memory database with the real schema.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func sampleDashboard(t *testing.T) Dashboard {
	t.Helper()
	sw, err := widget.NewWidget("sw1", widget.TypeSwitch, "garden-1", "")
	if err != nil {
		t.Fatalf("NewWidget() error = %v", err)
	}
	lbl, _ := widget.NewWidget("lbl1", widget.TypeLabel, "", "")
	return Dashboard{
		ScopeKey: layout.SystemScope("hub"),
		Columns:  12,
		Cells: []layout.Cell{
			{WidgetID: "sw1", X: 0, Y: 0, W: 3, H: 3},
			{WidgetID: "lbl1", X: 3, Y: 0, W: 6, H: 1},
		},
		Widgets:   []widget.Widget{sw, lbl},
		UpdatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteRepository_SaveAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t).DB)
	ctx := context.Background()
	want := sampleDashboard(t)

	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, want.ScopeKey)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.ScopeKey != want.ScopeKey || got.Columns != 12 {
		t.Errorf("header = %q/%d", got.ScopeKey, got.Columns)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
	if len(got.Cells) != 2 || got.Cells[1] != want.Cells[1] {
		t.Errorf("Cells = %+v", got.Cells)
	}
	if len(got.Widgets) != 2 {
		t.Fatalf("Widgets = %+v", got.Widgets)
	}
	sw, ok := got.Widget("sw1")
	if !ok || sw.Binding == nil || sw.Binding.Command == nil || sw.Binding.Command.Command != "relay.set" {
		t.Errorf("switch widget lost its binding: %+v", sw)
	}
}

func TestSQLiteRepository_SaveReplaces(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t).DB)
	ctx := context.Background()
	d := sampleDashboard(t)

	if err := repo.Save(ctx, d); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	d.Widgets = d.Widgets[:1]
	d.Cells = d.Cells[:1]
	if err := repo.Save(ctx, d); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := repo.Get(ctx, d.ScopeKey)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Widgets) != 1 || len(got.Cells) != 1 {
		t.Errorf("after replace: %d widgets, %d cells", len(got.Widgets), len(got.Cells))
	}
}

func TestSQLiteRepository_EmptyDashboard(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t).DB)
	ctx := context.Background()
	scope := layout.DeviceUserScope("d1", "u1")

	if err := repo.Save(ctx, Dashboard{ScopeKey: scope, Columns: 12}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := repo.Get(ctx, scope)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Cells == nil || got.Widgets == nil {
		t.Errorf("empty arrays decoded as nil: %+v", got)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t).DB)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "system:none"); !errors.Is(err, ErrDashboardNotFound) {
		t.Errorf("Get() error = %v, want ErrDashboardNotFound", err)
	}
	if err := repo.Delete(ctx, "system:none"); !errors.Is(err, ErrDashboardNotFound) {
		t.Errorf("Delete() error = %v, want ErrDashboardNotFound", err)
	}
}

func TestSQLiteRepository_DeleteAndScopes(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t).DB)
	ctx := context.Background()

	for _, scope := range []string{"system:b", "system:a", "device:d1:user:u1"} {
		if err := repo.Save(ctx, Dashboard{ScopeKey: scope, Columns: 12}); err != nil {
			t.Fatalf("Save(%s) error = %v", scope, err)
		}
	}

	scopes, err := repo.Scopes(ctx)
	if err != nil {
		t.Fatalf("Scopes() error = %v", err)
	}
	want := []string{"device:d1:user:u1", "system:a", "system:b"}
	if len(scopes) != len(want) {
		t.Fatalf("Scopes() = %v, want %v", scopes, want)
	}
	for i := range want {
		if scopes[i] != want[i] {
			t.Errorf("Scopes()[%d] = %q, want %q", i, scopes[i], want[i])
		}
	}

	if err := repo.Delete(ctx, "system:a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, "system:a"); !errors.Is(err, ErrDashboardNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}
