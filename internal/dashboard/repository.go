package dashboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/saphari-core/internal/layout"
	"github.com/nerrad567/saphari-core/internal/widget"
)

// Repository persists dashboards by scope key.
type Repository interface {
	// Get returns the dashboard for scope.
	// Returns ErrDashboardNotFound if none is stored.
	Get(ctx context.Context, scope string) (Dashboard, error)

	// Save inserts or replaces the dashboard.
	Save(ctx context.Context, d Dashboard) error

	// Delete removes the dashboard for scope.
	// Returns ErrDashboardNotFound if none is stored.
	Delete(ctx context.Context, scope string) error

	// Scopes lists the stored scope keys in key order.
	Scopes(ctx context.Context) ([]string, error)
}

// SQLiteRepository implements Repository using SQLite.
// Cells and widgets are stored as JSON arrays.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the dashboard for scope.
func (r *SQLiteRepository) Get(ctx context.Context, scope string) (Dashboard, error) {
	var (
		d         Dashboard
		cells     string
		widgets   string
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT scope_key, columns, cells, widgets, updated_at FROM dashboards WHERE scope_key = ?`,
		scope,
	).Scan(&d.ScopeKey, &d.Columns, &cells, &widgets, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Dashboard{}, ErrDashboardNotFound
		}
		return Dashboard{}, fmt.Errorf("querying dashboard: %w", err)
	}

	if err := json.Unmarshal([]byte(cells), &d.Cells); err != nil {
		return Dashboard{}, fmt.Errorf("decoding cells for %s: %w", scope, err)
	}
	if err := json.Unmarshal([]byte(widgets), &d.Widgets); err != nil {
		return Dashboard{}, fmt.Errorf("decoding widgets for %s: %w", scope, err)
	}
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // Written by Save
	return d, nil
}

// Save inserts or replaces the dashboard.
func (r *SQLiteRepository) Save(ctx context.Context, d Dashboard) error {
	cells := d.Cells
	if cells == nil {
		cells = []layout.Cell{}
	}
	widgets := d.Widgets
	if widgets == nil {
		widgets = []widget.Widget{}
	}

	cellsJSON, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("encoding cells: %w", err)
	}
	widgetsJSON, err := json.Marshal(widgets)
	if err != nil {
		return fmt.Errorf("encoding widgets: %w", err)
	}

	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dashboards (scope_key, columns, cells, widgets, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope_key) DO UPDATE SET
			columns = excluded.columns,
			cells = excluded.cells,
			widgets = excluded.widgets,
			updated_at = excluded.updated_at
	`, d.ScopeKey, d.Columns, string(cellsJSON), string(widgetsJSON),
		updatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving dashboard %s: %w", d.ScopeKey, err)
	}
	return nil
}

// Delete removes the dashboard for scope.
func (r *SQLiteRepository) Delete(ctx context.Context, scope string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dashboards WHERE scope_key = ?`, scope)
	if err != nil {
		return fmt.Errorf("deleting dashboard: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDashboardNotFound
	}
	return nil
}

// Scopes lists the stored scope keys.
func (r *SQLiteRepository) Scopes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT scope_key FROM dashboards ORDER BY scope_key`)
	if err != nil {
		return nil, fmt.Errorf("querying dashboards: %w", err)
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning dashboard row: %w", err)
		}
		scopes = append(scopes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dashboards: %w", err)
	}
	return scopes, nil
}
