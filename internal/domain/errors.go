package domain

import "errors"

// Sentinel errors that cross the service boundary. Handlers map these to
// HTTP status codes; everything else is treated as an internal failure.
var (
	// ErrNotFound covers both a truly absent entity and an entity owned by
	// a different tenant. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when a caller-supplied tenant id conflicts
	// with the context tenant, or when no tenant is present where one is
	// required. It signals a programmer error, not a recoverable condition.
	ErrUnauthorized = errors.New("operation not permitted for tenant")

	// ErrValidation is returned for malformed repository input, e.g. an
	// unknown filter field or an operator/value mismatch.
	ErrValidation = errors.New("invalid input")

	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("conflict")

	// ErrTransaction wraps a failed database commit or rollback.
	ErrTransaction = errors.New("transaction failed")
)
