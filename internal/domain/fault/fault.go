// Package fault defines the error taxonomy shared by the booking core.
// Every error that crosses a service boundary is one of these kinds so the
// transport layer can translate it into user-visible text without inspecting
// package internals.
package fault

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed user input. It is recovered locally by
// re-prompting; the conversation stays in place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ConflictError reports an operation that collides with existing state, such
// as a duplicate invoice attempt.
type ConflictError struct {
	Op     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Op, e.Reason)
}

// TransientError wraps a store connection or timeout failure. The transition
// is aborted and the session keeps its prior state so the user can retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// StaleSessionError reports a reference to a conversation context that no
// longer exists. It drives session recovery and is never surfaced raw.
type StaleSessionError struct {
	Ref string
}

func (e *StaleSessionError) Error() string {
	return fmt.Sprintf("stale conversation reference: %s", e.Ref)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func IsStaleSession(err error) bool {
	var s *StaleSessionError
	return errors.As(err, &s)
}
