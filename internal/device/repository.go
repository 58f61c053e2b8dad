package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists explicitly registered devices.
// Connectivity status and last-seen times are session state and never stored.
type Repository interface {
	// GetByID retrieves a registered device.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (Device, error)

	// List retrieves all registered devices in registration order.
	List(ctx context.Context) ([]Device, error)

	// Save inserts the device or updates its name and system.
	Save(ctx context.Context, d Device) error

	// Delete removes a registration.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a registered device.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (Device, error) {
	var d Device
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, system_id FROM devices WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.SystemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Device{}, ErrDeviceNotFound
		}
		return Device{}, fmt.Errorf("querying device by id: %w", err)
	}
	d.Status = StatusOffline
	return d, nil
}

// List retrieves all registered devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, system_id FROM devices ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d := Device{Status: StatusOffline}
		if err := rows.Scan(&d.ID, &d.Name, &d.SystemID); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Save inserts the device or updates its name and system.
func (r *SQLiteRepository) Save(ctx context.Context, d Device) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, system_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			system_id = excluded.system_id,
			updated_at = excluded.updated_at`,
		d.ID, d.Name, d.SystemID, now, now,
	)
	if err != nil {
		return fmt.Errorf("saving device: %w", err)
	}
	return nil
}

// Delete removes a registration.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}
