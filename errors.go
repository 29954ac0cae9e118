package sheetpipe

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrColumnNotFound    = errors.New("column not found")
	ErrQuery             = errors.New("query error")
	ErrSheetNameConflict = errors.New("sheet name conflict")
	ErrWriteFailure      = errors.New("write failure")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrStoreClosed       = errors.New("store is closed")
)

// SheetError reports which file and sheet an operation failed on.
type SheetError struct {
	Op    string // "load", "export", "update", "edit"
	Path  string
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s sheet %q: %v", e.Op, e.Path, e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError creates a new SheetError.
func NewSheetError(op, path, sheet string, err error) *SheetError {
	return &SheetError{
		Op:    op,
		Path:  path,
		Sheet: sheet,
		Err:   err,
	}
}

// QueryError carries the statement that failed and why.
// It matches ErrQuery with errors.Is.
type QueryError struct {
	Statement string
	Cause     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v (statement: %s)", e.Cause, e.Statement)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}

// NewQueryError creates a QueryError from a formatted cause.
func NewQueryError(statement string, format string, args ...interface{}) *QueryError {
	return &QueryError{
		Statement: statement,
		Cause:     fmt.Errorf(format, args...),
	}
}
