// Package lifecycle orchestrates account registration, login, session refresh,
// logout and password changes on top of the identity store, the password
// hasher and the session rotator.
//
// It is transport-agnostic: callers pass plain inputs and receive
// *apperr.Error values that carry the client-facing message and status.
package lifecycle
