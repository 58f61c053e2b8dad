package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds one record per known device for the lifetime of a session.
//
// Devices are created lazily by UpsertStatus (the message router) or
// explicitly by Register, and are never removed. Only explicit registrations
// are persisted, through the optional Repository; connectivity is session
// state and always starts as offline.
//
// All public methods are thread-safe and return copies.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	order   []string // insertion order
	repo    Repository
	logger  Logger
}

// NewRegistry creates an empty registry. repo may be nil for a purely
// in-memory registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		repo:    repo,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache loads the registered devices from the repository.
// Devices already known to the registry keep their status and position;
// new ones are appended as offline. Call on startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	stored, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range stored {
		if existing, ok := r.devices[d.ID]; ok {
			if existing.Name == "" {
				existing.Name = d.Name
			}
			if existing.SystemID == "" {
				existing.SystemID = d.SystemID
			}
			continue
		}
		r.insertLocked(&Device{ID: d.ID, Name: d.Name, SystemID: d.SystemID, Status: StatusOffline})
	}

	r.logger.Info("device registry loaded", "count", len(stored))
	return nil
}

// Register adds a device explicitly (before any message has been seen) or
// updates the name and system of a known one. Only ID, Name and SystemID of
// reg are used; connectivity is left to the router. The record is persisted
// when a repository is set.
func (r *Registry) Register(ctx context.Context, reg Device) (Device, error) {
	if err := ValidateID(reg.ID); err != nil {
		return Device{}, err
	}
	if err := ValidateName(reg.Name); err != nil {
		return Device{}, err
	}
	if err := ValidateSystemID(reg.SystemID); err != nil {
		return Device{}, err
	}

	if r.repo != nil {
		rec := Device{ID: reg.ID, Name: reg.Name, SystemID: reg.SystemID}
		if err := r.repo.Save(ctx, rec); err != nil {
			return Device{}, fmt.Errorf("saving device: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[reg.ID]
	if !ok {
		d = &Device{ID: reg.ID, Status: StatusOffline}
		r.insertLocked(d)
	}
	d.Name = reg.Name
	d.SystemID = reg.SystemID

	r.logger.Info("device registered", "device_id", reg.ID, "system_id", reg.SystemID)
	return *d, nil
}

// UpsertStatus records a connectivity update for id, creating the device if
// it is unknown.
//
// LastSeen becomes max(LastSeen, ts); a zero ts leaves it untouched.
// The returned bool reports whether anything observable changed (creation,
// status or LastSeen), so callers can skip redundant notifications.
func (r *Registry) UpsertStatus(id string, status Status, ts time.Time) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	d, ok := r.devices[id]
	if !ok {
		d = &Device{ID: id, Status: StatusOffline}
		r.insertLocked(d)
		changed = true
		r.logger.Debug("device discovered", "device_id", id)
	}

	if d.Status != status {
		r.logger.Debug("device status changed", "device_id", id, "from", d.Status, "to", status)
		d.Status = status
		changed = true
	}
	if ts.After(d.LastSeen) {
		d.LastSeen = ts
		changed = true
	}

	return *d, changed
}

// Get returns the device with the given id.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Status returns the device's status; unknown devices are offline.
func (r *Registry) Status(id string) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.devices[id]; ok {
		return d.Status
	}
	return StatusOffline
}

// List returns every known device in the order it was first seen.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.devices[id])
	}
	return out
}

// ListBySystem returns the devices registered to systemID in the order they
// were first seen.
func (r *Registry) ListBySystem(systemID string) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0)
	for _, id := range r.order {
		if d := r.devices[id]; d.SystemID == systemID {
			out = append(out, *d)
		}
	}
	return out
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// CountByStatus returns the number of known devices per status.
func (r *Registry) CountByStatus() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[Status]int, 3)
	for _, d := range r.devices {
		counts[d.Status]++
	}
	return counts
}

func (r *Registry) insertLocked(d *Device) {
	r.devices[d.ID] = d
	r.order = append(r.order, d.ID)
}
