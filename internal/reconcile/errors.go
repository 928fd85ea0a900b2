package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the referenced account does not exist.
var ErrNotFound = errors.New("account not found")

// PersistenceError wraps a store failure. The owner save and every
// doctor upsert report through this type so callers can distinguish
// retryable store trouble from bad input.
type PersistenceError struct {
	Op  string // Store operation that failed
	Err error  // Underlying store error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConflictError reports a unique-constraint rejection, e.g. two
// concurrent reconciles racing to create the same doctor email.
type ConflictError struct {
	Op  string // Store operation that failed
	Err error  // Underlying store error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// ProvisionFailure is one failed doctor upsert out of the fan-out.
type ProvisionFailure struct {
	Email string `json:"email"` // Doctor email that failed
	DrsID string `json:"drsId"` // Doctor identifier that failed
	Err   error  `json:"-"`     // What went wrong
}

// Reason returns the failure cause as a string for JSON responses.
func (f ProvisionFailure) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// PartialProvisionError reports that the owner record was saved but a
// subset of the doctor upserts failed. The owner save is never rolled
// back; re-running the reconcile with the same payload is the recovery
// path.
type PartialProvisionError struct {
	Failures []ProvisionFailure // One entry per failed doctor
}

func (e *PartialProvisionError) Error() string {
	emails := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		emails[i] = f.Email
	}
	return fmt.Sprintf("provisioning failed for %d doctor(s): %s",
		len(e.Failures), strings.Join(emails, ", "))
}
