package consent

import "errors"

var (
	// ErrMalformedToken means the input could not be deserialized as a token.
	// Malformed input is never trusted and never reaches the scope/user checks.
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature means the signature does not match the recomputed
	// value. Treated as a forgery attempt, not a retryable condition.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired means the token's expiry is in the past. The caller
	// must re-request consent rather than retry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked means the token was explicitly revoked before its
	// natural expiry.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrScopeMismatch means the token is valid but carries a different
	// scope than the operation requires.
	ErrScopeMismatch = errors.New("token scope mismatch")

	// ErrUserMismatch means the token is valid but was issued for a
	// different user.
	ErrUserMismatch = errors.New("token user mismatch")

	// ErrInvalidScope means a scope string is not part of the closed
	// enumeration.
	ErrInvalidScope = errors.New("invalid consent scope")
)
