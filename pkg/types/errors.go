package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadySelected  = errors.New("a quotation has already been selected for this case")
	ErrStatusConflict   = errors.New("case status changed concurrently")
	ErrDuplicateQuote   = errors.New("nbfc has already quoted on this case")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrCaseNotFound     = &NotFoundError{Entity: "case"}
	ErrNBFCNotFound     = &NotFoundError{Entity: "nbfc"}
	ErrQuotationMissing = &NotFoundError{Entity: "quotation"}
)

// ValidationError carries every problem found in a payload.
type ValidationError struct {
	Problems []string
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	t, ok := target.(*NotFoundError)
	return ok && t.Entity == e.Entity && (t.ID == "" || t.ID == e.ID)
}

// InvalidTransitionError is returned when a status change is not in the transition table.
type InvalidTransitionError struct {
	From CaseStatus
	To   CaseStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// InvalidStateError is returned when an operation is not permitted in the case's current status.
type InvalidStateError struct {
	Operation string
	Status    CaseStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is not permitted while case is %s", e.Operation, e.Status)
}

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
