package utils

import (
	"errors"
	"fmt"
)

// Op names the normalization step that failed.
type Op string

const (
	// OpExtract covers pulling a failure record out of a result document.
	OpExtract Op = "extract"
	// OpValidate covers rejecting a record with a missing blob.
	OpValidate Op = "validate"
	// OpParse covers segmenting an accepted record.
	OpParse Op = "parse"
)

// AppError ties a failure to the pipeline and step that produced it.
type AppError struct {
	Pipeline string
	Op       Op
	Err      error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s failed", e.Pipeline, e.Op)
	}
	return fmt.Sprintf("%s %s: %v", e.Pipeline, e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(pipeline string, op Op, err error) error {
	return &AppError{Pipeline: pipeline, Op: op, Err: err}
}

// IsInputError reports whether err was caused by the caller's input rather
// than by the service: extraction and validation failures.
func IsInputError(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Op == OpExtract || appErr.Op == OpValidate
}
