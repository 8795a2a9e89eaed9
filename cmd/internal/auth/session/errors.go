package session

import "errors"

var (
	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")

	// ErrMalformedToken is returned when a token cannot be decoded or lacks required claims.
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature is returned when a token was not signed by the expected secret,
	// uses an unexpected algorithm, or names a different issuer.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired is returned when a token's expiry lies in the past beyond the clock skew.
	ErrTokenExpired = errors.New("token expired")
)

var (
	// ErrInvalidRenewal is returned when a renewal token fails verification.
	ErrInvalidRenewal = errors.New("renewal token invalid or expired")

	// ErrAccountGone is returned when a renewal token names an account that no longer exists.
	ErrAccountGone = errors.New("account not found")

	// ErrRenewalReused is returned when a verified renewal token is not the one on record:
	// it was already rotated or the session was ended.
	ErrRenewalReused = errors.New("renewal token expired or already used")

	// ErrRotationConflict is returned when a concurrent rotation won the compare-and-swap.
	// The presented token is spent; the caller may retry with the winner's token.
	ErrRotationConflict = errors.New("concurrent rotation in progress")
)
