package payload

import (
	"errors"
	"fmt"
)

// Rejection and failure sentinels returned by Extract.
var (
	// ErrNotFound may be returned by lookups to report an absent entity.
	ErrNotFound = errors.New("payload: not found")

	// ErrRealmNotFound rejects an event whose realm does not resolve.
	ErrRealmNotFound = errors.New("payload: realm not found")

	// ErrUserNotFound rejects an event whose user does not resolve.
	ErrUserNotFound = errors.New("payload: user not found")

	// ErrExtractionFailed matches every *ExtractionError.
	ErrExtractionFailed = errors.New("payload: extraction failed")

	// ErrInvalidPayload is returned by Validate when a body breaks Schema.
	ErrInvalidPayload = errors.New("payload: schema violation")
)

// ExtractionError wraps an unexpected lookup fault or panic.
type ExtractionError struct {
	EventID string
	Cause   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("payload: extraction failed for event %s: %v", e.EventID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrExtractionFailed) true.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}

// IsRejection reports whether err is a missing-entity rejection rather than
// a failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRealmNotFound) || errors.Is(err, ErrUserNotFound)
}
