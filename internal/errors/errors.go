// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrMissingTimestamp  = errors.New("fill has no timestamp")
	ErrUnknownSide       = errors.New("unrecognized fill side")
	ErrInvalidQuantity   = errors.New("fill quantity must be positive")
	ErrMissingInstrument = errors.New("fill has no instrument")
	ErrEmptyExport       = errors.New("export contains no rows")
	ErrDuplicateFill     = errors.New("fill already ingested")
	ErrTradeNotFound     = errors.New("trade not found")
	ErrFillNotFound      = errors.New("fill not found")
	ErrInvalidTradeType  = errors.New("invalid trade type")
	ErrConfigInvalid     = errors.New("invalid configuration")
)

// FillError represents an error tied to one fill, typically during
// ingestion or validation. Row is the 1-based CSV row when the fill came
// from an import, zero otherwise.
type FillError struct {
	FillID string
	Row    int
	Reason string
	Err    error
}

func (e *FillError) Error() string {
	loc := e.FillID
	if e.Row > 0 {
		loc = fmt.Sprintf("row %d", e.Row)
	}
	if e.Err != nil {
		return fmt.Sprintf("fill error [%s]: %s: %v", loc, e.Reason, e.Err)
	}
	return fmt.Sprintf("fill error [%s]: %s", loc, e.Reason)
}

func (e *FillError) Unwrap() error {
	return e.Err
}

// NewFillError creates a new FillError.
func NewFillError(fillID string, row int, reason string, err error) *FillError {
	return &FillError{
		FillID: fillID,
		Row:    row,
		Reason: reason,
		Err:    err,
	}
}

// PersistenceError represents a storage failure. Matching runs treat it as
// fatal so that a partial result is never committed.
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error [%s]: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(operation string, err error) *PersistenceError {
	return &PersistenceError{
		Operation: operation,
		Err:       err,
	}
}
