package vault

import "errors"

var (
	// ErrRecordNotFound means no live record exists at the key. Absent is
	// not a failure at this layer; callers decide how to surface it.
	ErrRecordNotFound = errors.New("record not found")

	// ErrTamperDetected means the authentication tag check failed while
	// decrypting a stored payload. Never converted to ErrRecordNotFound:
	// it may indicate storage corruption or an integrity attack.
	ErrTamperDetected = errors.New("tamper detected")

	// ErrStorageIO wraps failures of the underlying persistence substrate.
	// Retryable at the caller's discretion, unlike the semantic errors above.
	ErrStorageIO = errors.New("storage i/o failure")

	// ErrInvalidTTL means a non-positive ttl was passed to a write.
	ErrInvalidTTL = errors.New("ttl must be positive")
)
