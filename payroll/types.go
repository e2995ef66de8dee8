/*
Package payroll implements the payroll export/reconciliation pipeline.

PURPOSE:
  This package contains the pure core of the staffing back-office: it takes
  raw, loosely-shaped timesheet rows (as returned by the joined store query),
  normalizes them into canonical records, derives the financial figures,
  flags data-quality exceptions, aggregates for reporting, emits payroll
  extracts, and marks records paid in idempotent batches.

KEY CONCEPTS IN THIS FILE (types.go):
  - RawRecord:  A shape-agnostic row from the store (flat or nested joins)
  - Record:     The canonical timesheet record, post-normalization
  - Status / PayrollStatus: Workflow enums
  - Dataset:    A record set tagged with its source (live vs fallback)

DESIGN PRINCIPLES:
  1. Purity: normalization, exceptions, aggregation and export are pure
     functions over their inputs. Only the mark-paid processor writes.
  2. Precision: money uses decimal.Decimal, never float64 arithmetic.
  3. Tolerance: malformed upstream data degrades to zero/empty, never panics.

SEE ALSO:
  - normalize.go:  RawRecord -> Record mapping
  - exceptions.go: Data-quality warning scan
  - aggregate.go:  Totals and rollups
  - export.go:     CSV extract
  - markpaid.go:   Idempotent paid-state transitions
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW INPUT
// =============================================================================

// RawRecord is one row as it comes back from the store query. Depending on
// which migration generation produced the row, fields may be flat
// ("client_name") or nested under "assignment" -> "project" -> "client".
// The normalizer resolves both shapes; nothing else should read a RawRecord.
type RawRecord map[string]any

// =============================================================================
// WORKFLOW ENUMS
// =============================================================================

// Status is the timesheet approval status set by the entry subsystem.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// PayrollStatus is the payment workflow state. Only the mark-paid processor
// writes this field; "paid" is terminal.
type PayrollStatus string

const (
	PayrollDraft      PayrollStatus = "draft"
	PayrollReady      PayrollStatus = "ready"
	PayrollPending    PayrollStatus = "pending"
	PayrollProcessing PayrollStatus = "processing"
	PayrollHold       PayrollStatus = "hold"
	PayrollBlocked    PayrollStatus = "blocked"
	PayrollPaid       PayrollStatus = "paid"
)

// DefaultCurrency is assumed when the source row carries no currency.
const DefaultCurrency = "GBP"

// =============================================================================
// CANONICAL RECORD
// =============================================================================

// Record is the canonical timesheet record. After normalization the derived
// invariants hold: TotalHours == StdHours + OtHours, and GpAmount equals
// ChargeAmount - PayAmount unless the source carried a nonzero override.
type Record struct {
	ID string

	// Linkage
	AssignmentID  string
	AssignmentRef string
	TimesheetRef  string
	ContractorID  string
	ClientID      string
	ProjectID     string

	// Descriptive
	ContractorName  string
	ContractorEmail string
	ClientName      string
	ProjectName     string

	// Temporal. WeekEnding is an ISO date string; WeekNo is nil when either
	// the week ending or the fiscal anchor failed to parse.
	WeekEnding string
	WeekNo     *int

	Status        Status
	PayrollStatus PayrollStatus

	// Hours
	StdHours   decimal.Decimal
	OtHours    decimal.Decimal
	TotalHours decimal.Decimal

	// Money
	RateStd      decimal.Decimal
	RateOt       decimal.Decimal
	PayAmount    decimal.Decimal
	ChargeAmount decimal.Decimal
	GpAmount     decimal.Decimal
	Currency     string

	// Payroll batch metadata
	PayrollBatch     string
	PaidAt           string
	PaymentReference string
	PayrollMeta      map[string]any
}

// IsPaid reports whether this record has already been through a payroll batch.
func (r Record) IsPaid() bool { return r.PayrollStatus == PayrollPaid }

// ContractorKey is the grouping key for per-contractor rollups: contractor id,
// falling back to email, then name, then the record id.
func (r Record) ContractorKey() string {
	switch {
	case r.ContractorID != "":
		return r.ContractorID
	case r.ContractorEmail != "":
		return r.ContractorEmail
	case r.ContractorName != "":
		return r.ContractorName
	default:
		return r.ID
	}
}

// =============================================================================
// DATASET ENVELOPE
// =============================================================================

// Source tags where a read-path dataset came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Dataset is a record set plus provenance. Read-oriented operations return a
// Dataset so callers can tell a degraded (fallback) response from a live one
// instead of silently trusting possibly-stale data.
type Dataset struct {
	Records []Record
	Source  Source
	Warning string
}
