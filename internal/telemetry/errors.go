package telemetry

import "errors"

// ErrInvalidValue is returned when a metric value is not a number, string or boolean.
var ErrInvalidValue = errors.New("telemetry: invalid metric value")
