package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrNothingToCancel   = errors.New("nothing to cancel")
	ErrIllegalTransition = errors.New("illegal transition")
)

// InvalidInputError reports malformed or out-of-range user input.
type InvalidInputError struct {
	Field  string
	Reason string
	Err    error
}

func Invalid(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}

// InvalidWrap is Invalid carrying the underlying parse error.
func InvalidWrap(field string, err error) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: err.Error(), Err: err}
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// CollaboratorError wraps a failure of an external collaborator (geocoder,
// persistence, archive or text extraction). It never aborts a workflow.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
