package responder

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable means the backend could not be reached or refused
	// to serve (timeouts, connection errors, 5xx, 429, missing credentials).
	// The relay escalates the conversation to a human on this error.
	ErrBackendUnavailable = errors.New("responder backend unavailable")
	// ErrBackendError means the backend answered but the answer was unusable.
	ErrBackendError = errors.New("responder backend error")
)

// IsUnavailable reports whether err should escalate to a human agent.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// classifyTransport wraps a failed round trip. Deadlines, cancellations and
// network errors all mean the backend did not answer.
func classifyTransport(backend string, err error) error {
	return fmt.Errorf("%s: %w: %v", backend, ErrBackendUnavailable, err)
}
