package layout

import "errors"

var (
	// ErrInvalidDocument is returned when a stored layout is not valid JSON.
	ErrInvalidDocument = errors.New("layout: invalid document")

	// ErrInvalidScope is returned for scope keys that are neither
	// "system:<id>" nor "device:<id>:user:<id>".
	ErrInvalidScope = errors.New("layout: invalid scope key")
)
