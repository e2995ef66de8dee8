/*
markpaid.go - Mark-paid batch processor

PURPOSE:
  Transitions a scoped set of timesheets into the paid state under a named
  payroll batch. This is the only writer of the payroll-status fields.

GUARANTEES:
  - Idempotent: a record already marked paid is never rewritten, even when a
    different batch id is presented. Both cases count as "already paid" -
    there is no silent re-pay and no batch reassignment.
  - Isolated: one record's write failure is recorded and the batch carries
    on. Partial completion is a reported outcome, not an error state.
  - Drift-tolerant: a column-mismatch error on write retries with the
    offending field stripped, a bounded number of times.

  Writes are issued sequentially so the already-paid short-circuit and the
  per-record failure report stay deterministic. No group atomicity; the
  already-paid guard is the only race mitigation and last-write-wins is
  acceptable for this domain.
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// maxDriftRetries bounds the strip-and-retry attempts per record.
const maxDriftRetries = 3

// Store is the slice of the backing store the processor needs.
type Store interface {
	// QueryTimesheets returns the raw joined rows in scope.
	QueryTimesheets(ctx context.Context, scope Scope) ([]RawRecord, error)

	// UpdateTimesheetPayroll persists payroll fields for one record. It must
	// return a *SchemaDriftError when the store reports a column mismatch.
	UpdateTimesheetPayroll(ctx context.Context, id string, fields map[string]any) error
}

// Scope selects the records a payroll operation acts on.
type Scope struct {
	WeekEnding string
	ClientID   string
}

// MarkPaidRequest carries one batch invocation.
type MarkPaidRequest struct {
	Scope
	Batch            string
	PaidAt           time.Time
	PaymentReference string
}

// Failure is one record that could not be written.
type Failure struct {
	RecordID string `json:"record_id"`
	Error    string `json:"error"`
}

// MarkPaidResult reports the batch outcome per record.
type MarkPaidResult struct {
	UpdatedCount     int       `json:"updated_count"`
	AlreadyPaidCount int       `json:"already_paid_count"`
	FailedCount      int       `json:"failed_count"`
	Failures         []Failure `json:"failures"`
}

// Processor runs mark-paid batches against a store.
type Processor struct {
	store Store
	log   *zap.Logger
}

// NewProcessor creates a processor. A nil logger is replaced with a no-op.
func NewProcessor(store Store, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{store: store, log: log}
}

// MarkPaid loads the scoped records and transitions each eligible one to
// paid. Validation failures return before any store access.
func (p *Processor) MarkPaid(ctx context.Context, req MarkPaidRequest) (*MarkPaidResult, error) {
	if req.WeekEnding == "" {
		return nil, ErrMissingWeekEnding
	}
	if req.Batch == "" {
		return nil, ErrMissingBatch
	}
	if req.PaidAt.IsZero() {
		req.PaidAt = time.Now().UTC()
	}

	raws, err := p.store.QueryTimesheets(ctx, req.Scope)
	if err != nil {
		// Writes cannot be faked; unlike the read paths there is no
		// fallback here.
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	result := &MarkPaidResult{Failures: []Failure{}}
	for _, raw := range raws {
		r := Normalize(raw, "")

		if r.IsPaid() {
			if r.PayrollBatch != "" && r.PayrollBatch != req.Batch {
				p.log.Debug("already paid under a different batch",
					zap.String("record", r.ID),
					zap.String("stored_batch", r.PayrollBatch),
					zap.String("requested_batch", req.Batch))
			}
			result.AlreadyPaidCount++
			continue
		}

		if err := p.writeWithDriftRetry(ctx, r, req); err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, Failure{RecordID: r.ID, Error: err.Error()})
			p.log.Warn("mark-paid write failed",
				zap.String("record", r.ID), zap.Error(err))
			continue
		}
		result.UpdatedCount++
	}

	p.log.Info("mark-paid batch complete",
		zap.String("batch", req.Batch),
		zap.String("week_ending", req.WeekEnding),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("already_paid", result.AlreadyPaidCount),
		zap.Int("failed", result.FailedCount))

	return result, nil
}

// writeWithDriftRetry persists the paid transition, stripping fields the
// live schema no longer carries, up to maxDriftRetries times.
func (p *Processor) writeWithDriftRetry(ctx context.Context, r Record, req MarkPaidRequest) error {
	fields := paidFields(r, req)

	var err error
	for attempt := 0; attempt <= maxDriftRetries; attempt++ {
		err = p.store.UpdateTimesheetPayroll(ctx, r.ID, fields)
		if err == nil {
			return nil
		}

		var drift *SchemaDriftError
		if !errors.As(err, &drift) {
			return err
		}
		if _, ok := fields[drift.Column]; !ok || len(fields) <= 1 {
			return err
		}
		p.log.Debug("stripping drifted column and retrying",
			zap.String("record", r.ID), zap.String("column", drift.Column))
		delete(fields, drift.Column)
	}
	return err
}

// paidFields builds the write set, merging the previous payroll metadata
// with the batch details.
func paidFields(r Record, req MarkPaidRequest) map[string]any {
	meta := make(map[string]any, len(r.PayrollMeta)+4)
	for k, v := range r.PayrollMeta {
		meta[k] = v
	}
	meta["status"] = string(PayrollPaid)
	meta["batch"] = req.Batch
	meta["paid_at"] = req.PaidAt.Format(time.RFC3339)
	if req.PaymentReference != "" {
		meta["payment_reference"] = req.PaymentReference
	}

	return map[string]any{
		"payroll_status":    string(PayrollPaid),
		"paid_at":           req.PaidAt.Format(time.RFC3339),
		"payroll_batch":     req.Batch,
		"payment_reference": req.PaymentReference,
		"payroll_meta":      meta,
	}
}
