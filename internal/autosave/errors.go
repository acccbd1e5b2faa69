package autosave

import (
	"fmt"
	"time"
)

// Save outcomes are a closed set: success carries the new version and
// server timestamp, and each failure class gets its own error type so the
// pipeline can branch with errors.As instead of inspecting status codes.

// Ack is a successful save acknowledgement.
type Ack struct {
	Version  int64
	Modified time.Time
}

// ConflictError reports a version mismatch. Payload holds the
// server-rendered resolution fragment for display. Never retried.
type ConflictError struct {
	Payload string
}

func (e *ConflictError) Error() string {
	return "save conflict: entry was modified elsewhere"
}

// RetryableError covers server 5xx responses and transport failures. The
// pipeline retries these with backoff before giving up.
type RetryableError struct {
	Message string
	Err     error
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// FatalError covers client errors other than conflicts. Surfaced
// immediately, never retried.
type FatalError struct {
	StatusCode int
	Message    string
}

func (e *FatalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("save rejected (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("save rejected: %s", e.Message)
}
