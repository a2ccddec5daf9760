/*
errors.go - Centralized error types for the fleet engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine itself never returns errors for malformed data: bad records
  are rejected by the record adapter (factory) and dropped by the caller.

ERROR CATEGORIES:
  1. Record errors - Unparseable or incomplete upstream records, skipped or
     kept with a dropped field
  2. Programming errors - Invalid buckets passed by a caller
  3. Store errors - Persistence failures

USAGE:
  if errors.Is(err, generic.ErrUnparseableDate) {
      logger.Warn("skipping booking", "error", err)
  }

SEE ALSO:
  - factory/record.go: Produces RecordError
  - source/loader.go: Logs and skips them
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnparseableDate is returned when a date field cannot be parsed.
	ErrUnparseableDate = errors.New("unparseable date")

	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing field")

	// ErrUnknownStatus is returned when a status code/enum is not recognized.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrBoundDropped marks a booking kept as a single day after one of its
	// bounds failed to parse. The record is not skipped.
	ErrBoundDropped = errors.New("bound dropped")

	// ErrInvalidAmount is returned when a price cannot be parsed.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidInterval is returned when an interval ends before it starts.
	ErrInvalidInterval = errors.New("invalid interval: end before start")

	// ErrVehicleNotFound is returned when a referenced vehicle doesn't exist.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrUnknownCollection is returned for an unsupported record collection.
	ErrUnknownCollection = errors.New("unknown collection")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RecordError describes why one upstream record was rejected.
type RecordError struct {
	Collection string // "bookings", "maintenance", ...
	RecordID   string // may be empty when the record has no id
	Field      string
	Err        error
}

func (e *RecordError) Error() string {
	id := e.RecordID
	if id == "" {
		id = "?"
	}
	if e.Field == "" {
		return fmt.Sprintf("%s[%s]: %v", e.Collection, id, e.Err)
	}
	return fmt.Sprintf("%s[%s].%s: %v", e.Collection, id, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRecordError returns true if the error means "skip this record".
func IsRecordError(err error) bool {
	if IsDegraded(err) {
		return false
	}
	return errors.Is(err, ErrUnparseableDate) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrUnknownStatus) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsDegraded returns true if the record was kept with a field dropped.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrBoundDropped)
}
