// Package audit records what was done through the hub API: commands sent to
// devices, device registrations and dashboard edits.
//
// Entries are written best-effort after the action; a failed write is logged
// by the caller and never fails the action itself. Commands are recorded
// whether they were published, rejected by the binding, or failed at the
// transport, so the log answers "did the hub try to switch the pump?".
package audit
