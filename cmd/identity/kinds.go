package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")

	// ErrStale is returned by SwapRenewalCredential when the stored value no
	// longer equals the expected one.
	ErrStale = errors.New("stale")
)
