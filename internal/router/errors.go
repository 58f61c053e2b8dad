package router

import "errors"

var (
	// ErrDecode wraps every payload decode failure. The router absorbs these;
	// they are only returned by Decode.
	ErrDecode = errors.New("router: malformed payload")

	// ErrStopped is returned by Enqueue once Run has exited.
	ErrStopped = errors.New("router: stopped")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("router: already running")
)
