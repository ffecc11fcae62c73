package board

import (
	"errors"
	"fmt"
)

// ValidationError reports a rule violation: attachment not permitted,
// capacity exhausted, or a resource type placed on a row that does not
// accept it. It is raised before any mutation; the board is unchanged.
type ValidationError struct {
	Op     string // "assign", "attach", "move"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("board: %s: %s", e.Op, e.Reason)
}

// NotFoundError reports a reference to an assignment, resource, or job
// id that the board does not know.
type NotFoundError struct {
	Kind string // "assignment", "resource", "job"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("board: %s not found: %s", e.Kind, e.ID)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
