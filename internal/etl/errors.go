package etl

import (
	"errors"
	"fmt"
	"strings"
)

// SourceUnavailableError means a collection could not be read. The entity
// type is aborted; the run continues with the next one.
type SourceUnavailableError struct {
	Entity     string
	Collection string
	Err        error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable for %s (collection %s): %v", e.Entity, e.Collection, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// FieldMappingError rejects one source document.
type FieldMappingError struct {
	DocumentID string
	Field      string
	Reason     string
}

func (e *FieldMappingError) Error() string {
	return fmt.Sprintf("document %s: field %s: %s", e.DocumentID, e.Field, e.Reason)
}

// BatchWriteError is one failed attempt at writing a batch.
type BatchWriteError struct {
	Batch     int
	Attempt   int
	Err       error
	Permanent bool
}

func (e *BatchWriteError) Error() string {
	kind := "retryable"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("batch %d attempt %d (%s): %v", e.Batch, e.Attempt, kind, e.Err)
}

func (e *BatchWriteError) Unwrap() error { return e.Err }

// BatchWriteFailedError is the terminal outcome of a batch whose attempts
// are exhausted.
type BatchWriteFailedError struct {
	Batch     int
	Attempts  int
	SourceIDs []string
	Err       error
}

func (e *BatchWriteFailedError) Error() string {
	return fmt.Sprintf("batch %d failed after %d attempt(s), %d record(s): %v",
		e.Batch, e.Attempts, len(e.SourceIDs), e.Err)
}

func (e *BatchWriteFailedError) Unwrap() error { return e.Err }

// FieldErrors flattens a transform error into its field mapping errors.
func FieldErrors(err error) []*FieldMappingError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*FieldMappingError
		for _, e := range joined.Unwrap() {
			out = append(out, FieldErrors(e)...)
		}
		return out
	}
	var fe *FieldMappingError
	if errors.As(err, &fe) {
		return []*FieldMappingError{fe}
	}
	return nil
}

// describeFieldErrors renders a rejection as a single log line.
func describeFieldErrors(errs []*FieldMappingError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+": "+e.Reason)
	}
	return strings.Join(parts, "; ")
}
