package widget

import "errors"

// Domain errors for the widget package.
var (
	// ErrReadOnlyBinding is returned when a command is requested through a
	// read-only binding. It indicates caller misuse.
	ErrReadOnlyBinding = errors.New("widget: binding is read-only")

	// ErrNoCommandTemplate is returned for a write binding without a command.
	ErrNoCommandTemplate = errors.New("widget: binding has no command template")

	// ErrInvalidValue is returned when the user value does not fit the template.
	ErrInvalidValue = errors.New("widget: invalid command value")

	// ErrNotConnected is returned when publishing while the transport is down.
	// The command was not sent.
	ErrNotConnected = errors.New("widget: transport not connected, command not sent")

	// ErrRateLimited is returned when a device receives commands faster than allowed.
	ErrRateLimited = errors.New("widget: command rate limit exceeded")

	// ErrPublishFailed wraps other transport publish failures.
	ErrPublishFailed = errors.New("widget: publish failed")

	// ErrInvalidWidget is returned when a widget definition is inconsistent.
	ErrInvalidWidget = errors.New("widget: invalid")

	// ErrUnknownType is returned for widget types outside the palette.
	ErrUnknownType = errors.New("widget: unknown type")
)
