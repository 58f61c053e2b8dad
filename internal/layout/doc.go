// Package layout keeps dashboard widget geometry on a fixed-width grid.
//
// Placement never fails: sizes and positions are clamped into the grid and
// collisions are resolved by pushing the other cells down. Removing a cell
// leaves a gap. Stored documents with overlapping cells load as they are.
//
// Layouts are partitioned by scope key: SystemScope for a hub's shared
// dashboard and DeviceUserScope for one user's view of one device.
package layout
