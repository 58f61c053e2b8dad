package dashboard

import "errors"

// Domain errors for the dashboard package.
var (
	// ErrDashboardNotFound is returned when no dashboard is stored for a scope.
	ErrDashboardNotFound = errors.New("dashboard: not found")

	// ErrWidgetNotFound is returned when a widget ID is not on the dashboard.
	ErrWidgetNotFound = errors.New("dashboard: widget not found")

	// ErrWidgetExists is returned when adding a widget whose ID is already used.
	ErrWidgetExists = errors.New("dashboard: widget already exists")
)
