package network

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrConfiguration marks a missing or invalid rule, mapping entry, or
	// required column. Always fatal; silently defaulting a mis-specified
	// rule corrupts aggregated electrical quantities.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInconsistent marks merge groups that disagree on a value expected
	// to be uniform (e.g. differing carriers inside one CC group).
	ErrInconsistent = errors.New("inconsistent merge group")

	// ErrInsufficientData marks aggregation rules with no usable source
	// values (all-NaN mean, zero total circuit weight).
	ErrInsufficientData = errors.New("insufficient data for aggregation")

	ErrComponentNotFound = errors.New("component not found")
	ErrNameCollision     = errors.New("component name already exists")
	ErrSnapshotMismatch  = errors.New("time series index does not match snapshots")
)

// AggregationError provides structured error information for network
// transformation failures.
type AggregationError struct {
	Op     string // Operation that failed (e.g. "MergeCCGenerators")
	Entity string // Entity kind (e.g. "generator", "line", "bus")
	Key    string // Offending component name, group tag, or attribute
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.Key, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AggregationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *AggregationError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// NewAggregationError builds a structured error with the offending key
// identified, as required for all fatal configuration failures.
func NewAggregationError(op, entity, key string, cause error) *AggregationError {
	return &AggregationError{Op: op, Entity: entity, Key: key, Cause: cause}
}
