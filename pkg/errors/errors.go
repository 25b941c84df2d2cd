// Package errors provides structured error handling for chalc2d.
// Error types carry enough context (operation, expected/actual shapes,
// offending file) for a failed run to be diagnosed from a single log line;
// stack traces come from cockroachdb/errors.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NotFittedError is returned when Predict, Transform or Score is called
// on an estimator before Fit.
type NotFittedError struct {
	EstimatorName string
	Method        string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("chalc2d: %s: estimator is not fitted yet. Call Fit() before using %s()", e.EstimatorName, e.Method)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("estimator", e.EstimatorName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(estimator, method string) error {
	err := &NotFittedError{EstimatorName: estimator, Method: method}
	return errors.WithStack(err)
}

// DimensionError is returned when the shape of an input matrix or vector
// does not match what the operation expects.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("chalc2d: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError is returned when an argument value is invalid for the
// operation, e.g. a negative learning rate or an empty vector.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("chalc2d: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ValidationError is returned when a named parameter fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("chalc2d: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// SchemaError is returned when a descriptor table does not match the
// expected column layout.
type SchemaError struct {
	Path    string
	Column  string
	Row     int // 1-based data row, 0 when the header itself is wrong
	Message string
}

func (e *SchemaError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("chalc2d: %s: row %d, column %q: %s", e.Path, e.Row, e.Column, e.Message)
	}
	if e.Column != "" {
		return fmt.Sprintf("chalc2d: %s: column %q: %s", e.Path, e.Column, e.Message)
	}
	return fmt.Sprintf("chalc2d: %s: %s", e.Path, e.Message)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *SchemaError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("column", e.Column).
		Int("row", e.Row).
		Str("message", e.Message).
		Str("type", "SchemaError")
}

// NewSchemaError creates a SchemaError with a stack trace attached.
func NewSchemaError(path, column string, row int, message string) error {
	err := &SchemaError{Path: path, Column: column, Row: row, Message: message}
	return errors.WithStack(err)
}

// ParseError is returned when a VASP file (POSCAR, POTCAR, OUTCAR, ...)
// cannot be parsed.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("chalc2d: %s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("chalc2d: %s: %s", e.File, e.Message)
}

// NewParseError creates a ParseError with a stack trace attached.
func NewParseError(file string, line int, message string) error {
	err := &ParseError{File: file, Line: line, Message: message}
	return errors.WithStack(err)
}

// Common sentinel errors.
var (
	// ErrEmptyData is returned when an operation receives no data.
	ErrEmptyData = New("empty data")

	// ErrNotConverged is returned when a VASP run did not reach the
	// required accuracy.
	ErrNotConverged = New("calculation did not converge")
)

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}
