package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Schema errors
	ErrSchemaMismatch = errors.New("export schema mismatch")
	ErrEmptyExport    = errors.New("export contains no data rows")

	// Analysis errors
	ErrInsufficientData  = errors.New("insufficient data for analysis")
	ErrUnknownCondition  = errors.New("participant condition unresolved")
	ErrDegenerateSamples = errors.New("degenerate samples for test")

	// Determinism errors
	ErrHashMismatch = errors.New("input hash mismatch")
)

// Error constructors with context
func NewSchemaMismatchError(convention string) error {
	return fmt.Errorf("%w: no columns match convention %q", ErrSchemaMismatch, convention)
}

func NewInsufficientDataError(context string, n int) error {
	return fmt.Errorf("%w: %s (n=%d)", ErrInsufficientData, context, n)
}

// Error checking helpers
func IsSchemaMismatchError(err error) bool {
	return errors.Is(err, ErrSchemaMismatch) || errors.Is(err, ErrEmptyExport)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDegenerateSamples)
}
