package reconcile

import (
	"errors"
	"fmt"
)

// ConflictError reports that a local optimistic mutation was superseded
// by a remote change before it could commit. The reconciler has already
// rolled the local change back; the caller may retry against the merged
// state.
type ConflictError struct {
	Op string
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("reconcile: %s: %s was superseded by a remote change", e.Op, e.ID)
}

// PersistenceError reports that the store rejected or failed a write.
// The reconciler has already rolled the optimistic mutation back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("reconcile: %s: persistence failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
