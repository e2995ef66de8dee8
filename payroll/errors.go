/*
errors.go - Centralized error types for the payroll pipeline

PURPOSE:
  All error types in one place. The API layer maps these onto stable
  machine-readable codes; the store wraps its driver errors into them so the
  pipeline never has to parse driver strings.

ERROR CATEGORIES:
  1. Validation errors - missing scope fields, rejected before any store access
  2. Authorization     - export token mismatch
  3. Store errors      - unavailability and schema drift

SEE ALSO:
  - markpaid.go: schema-drift strip-and-retry uses SchemaDriftError
  - store/sqlite: produces SchemaDriftError from driver errors
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingWeekEnding is returned when a scoped operation is called
	// without the required week-ending date.
	ErrMissingWeekEnding = errors.New("week_ending is required")

	// ErrMissingBatch is returned when mark-paid is called without a
	// payroll batch identifier.
	ErrMissingBatch = errors.New("payroll_batch is required")

	// ErrBadExportToken is returned when the configured export token is
	// absent or does not match. Checked before any store access.
	ErrBadExportToken = errors.New("invalid export token")

	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached. Read paths degrade to the fallback dataset instead; the
	// mark-paid path surfaces this error because writes cannot be faked.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSchemaDrift is the sentinel underneath SchemaDriftError.
	ErrSchemaDrift = errors.New("schema drift")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// SchemaDriftError reports a column/relation mismatch between the code and
// the live store schema, typically from incremental migrations. The mark-paid
// write path reacts by stripping the offending field and retrying.
type SchemaDriftError struct {
	Column string
	Err    error
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("schema drift: column %q: %v", e.Column, e.Err)
}

func (e *SchemaDriftError) Unwrap() error { return ErrSchemaDrift }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsSchemaDrift reports whether err is (or wraps) a schema-drift condition.
func IsSchemaDrift(err error) bool {
	return errors.Is(err, ErrSchemaDrift)
}

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingWeekEnding) ||
		errors.Is(err, ErrMissingBatch)
}
