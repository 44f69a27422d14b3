package models

import (
	"errors"
	"fmt"
)

// ErrStaleOutput is returned when the converter finds an output file left over
// from an earlier run and is not allowed to overwrite it.
var ErrStaleOutput = errors.New("stale output file")

// TransferError is a fatal failure fetching the remote source.
type TransferError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transfer %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("transfer %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// SchemaMismatchError marks a raw line whose field count is wrong. It is
// recoverable: the line is skipped and counted.
type SchemaMismatchError struct {
	Line int
	Want int
	Got  int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("line %d: expected %d fields, found %d", e.Line, e.Want, e.Got)
}

// TransformError aborts the transform. Step names the cleaning step that failed.
type TransformError struct {
	Step string
	Err  error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Step, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// InsertError is a per-row load failure; the row is rolled back and skipped.
type InsertError struct {
	TransactionID string
	Err           error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("insert %s: %v", e.TransactionID, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// QueryError is fatal to report generation only.
type QueryError struct {
	Report string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("report %s: %v", e.Report, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
