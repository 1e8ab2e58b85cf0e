package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrSchema marks a reference to a column the dataset does not have.
	ErrSchema = errors.New("unknown column")
	// ErrPlanInvalid marks a malformed plan shape, type or unsupported aggregation.
	ErrPlanInvalid = errors.New("invalid plan")
	// ErrAggregation marks an aggregation requested on a non-numeric column.
	ErrAggregation = errors.New("aggregation not applicable")
	// ErrNoData marks an empty dataset where records were expected.
	ErrNoData = errors.New("no usable data")
)

// SchemaError identifies the unknown column a plan referenced.
type SchemaError struct {
	Column string
	Where  string // plan section: filters, groupby, metrics, sort
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unknown column %q in %s", e.Column, e.Where)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// NewSchemaError builds a SchemaError for a plan section.
func NewSchemaError(column, where string) error {
	return &SchemaError{Column: column, Where: where}
}

// PlanValidationError identifies the offending plan field.
type PlanValidationError struct {
	Field  string
	Reason string
}

func (e *PlanValidationError) Error() string {
	return fmt.Sprintf("invalid plan: %s: %s", e.Field, e.Reason)
}

func (e *PlanValidationError) Unwrap() error { return ErrPlanInvalid }

// NewPlanError builds a PlanValidationError for a plan field.
func NewPlanError(field, reason string) error {
	return &PlanValidationError{Field: field, Reason: reason}
}

// AggregationError identifies an aggregation applied to an incompatible column.
type AggregationError struct {
	Column      string
	Aggregation string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation %q not applicable to non-numeric column %q", e.Aggregation, e.Column)
}

func (e *AggregationError) Unwrap() error { return ErrAggregation }

// NewAggregationError builds an AggregationError.
func NewAggregationError(column, agg string) error {
	return &AggregationError{Column: column, Aggregation: agg}
}

// Error checking helpers
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsPlanError(err error) bool {
	return errors.Is(err, ErrPlanInvalid)
}

func IsAggregationError(err error) bool {
	return errors.Is(err, ErrAggregation)
}
