// Package device provides the Device Registry for the Saphari hub.
//
// The registry is the catalogue of every device the hub has heard from or
// been told about, together with its connectivity status and last-seen time.
//
// # Ownership
//
// The message router is the only writer of connectivity (UpsertStatus). The
// REST API may Register devices ahead of their first message; such
// registrations are persisted through a Repository so they survive restarts.
// Status is never persisted: every session starts with all devices offline.
//
// # Invariants
//
//   - A device absent from the registry is offline (Status returns StatusOffline).
//   - LastSeen never decreases.
//   - List preserves insertion order; devices are never deleted from a session.
//
// # Usage
//
//	reg := device.NewRegistry(device.NewSQLiteRepository(db))
//	if err := reg.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	d, changed := reg.UpsertStatus("esp32-001", device.StatusOnline, time.Now())
package device
