package domain

import "fmt"

// ValidationError reports malformed caller input (date or bounds). It is
// always recovered into a structured 400 response and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// FetchError reports an unreachable upstream feed or a non-success response.
// It aborts the current ingestion run; weeks committed before the failure
// stay committed.
type FetchError struct {
	StatusCode int // 0 when the transport itself failed
	Message    string
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("changeset fetch: %s", e.Message)
	}
	return fmt.Sprintf("changeset fetch: upstream status %d: %s", e.StatusCode, e.Message)
}
