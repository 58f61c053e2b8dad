// Package dashboard stores dashboard definitions: the grid layout from
// package layout together with the widget definitions placed on it.
//
// Dashboards are keyed by layout scope, one shared dashboard per hub
// (layout.SystemScope) and one per device and user
// (layout.DeviceUserScope). Service keeps dashboards that have been used in
// memory and writes every change through to the Repository.
package dashboard
