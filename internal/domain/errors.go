// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the caller supplied invalid input.
var ErrValidation = errors.New("validation error")

// ErrServiceUnavailable indicates the planning service could not be reached.
var ErrServiceUnavailable = errors.New("planner service unavailable")

// ErrUpstreamTimeout indicates the planning service did not answer in time.
var ErrUpstreamTimeout = errors.New("planner request timed out")

// ErrUpstream indicates the planning service answered with a non-2xx status.
var ErrUpstream = errors.New("planner returned an error")

// ErrRequestFailed indicates any other transport failure talking to the planner.
var ErrRequestFailed = errors.New("planner request failed")

// ErrStorage indicates a plan could not be persisted. The transaction was rolled back.
var ErrStorage = errors.New("storage error")

// UpstreamError carries the status and message of a failed planner reply.
// It matches ErrUpstream with errors.Is.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("planner error %d: %s", e.Status, e.Message)
}

// Is reports whether target is ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Validationf returns an error wrapping ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
