package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError is an error created from a recovered panic. It keeps the
// original panic value and the stack trace at the point of panic.
type PanicError struct {
	PanicValue interface{}
	StackTrace string
	Operation  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String includes the stack trace for debugging.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a PanicError for the given operation and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error. Use with defer and a pointer to
// the function's named error return:
//
//	func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "Regressor.Fit")
//	    ...
//	}
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)

		if *err != nil {
			*err = fmt.Errorf("panic in %s: %v (original error: %w)",
				operation, r, *err)
		} else {
			*err = panicErr
		}
	}
}
