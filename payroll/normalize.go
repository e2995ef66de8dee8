/*
normalize.go - Timesheet normalizer

PURPOSE:
  Maps one raw, loosely-shaped timesheet row into the canonical Record.
  Upstream rows come from several migration generations: some carry flat
  columns ("client_name"), some nest the joined assignment -> project ->
  client objects, and several fields go by more than one alias.

RESOLUTION STRATEGY:
  Every canonical field has an ordered candidate list in fieldPaths; the
  first non-empty source location wins. The table keeps the whole mapping
  auditable in one place instead of optional-chaining scattered through
  the codebase.

DERIVATION RULES:
  - totalHours: explicit nonzero total_hours wins; else the h_mon..h_sun day
    columns summed; else stdHours + otHours. Afterwards stdHours is
    reconciled so that totalHours == stdHours + otHours always holds.
  - pay/charge: a nonzero stored amount wins (manual overrides made upstream
    are honored); zero or absent falls back to rate x hours.
  - gp: a nonzero stored gp_amount wins verbatim over charge - pay. This is
    deliberate - source systems sometimes pre-store gp.
  - currency: defaults to GBP.

FAILURE SEMANTICS:
  Never panics. Unparseable numerics coerce to zero, absent strings to "".
*/
package payroll

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// fieldPaths maps each canonical field to its ordered candidate source
// locations. Dotted paths descend into nested objects.
var fieldPaths = map[string][]string{
	"id":                {"id", "timesheet_id", "_id"},
	"assignment_id":     {"assignment_id", "assignment.id"},
	"assignment_ref":    {"assignment_ref", "assignment.ref", "assignment.reference"},
	"ts_ref":            {"ts_ref", "timesheet_ref", "ref"},
	"contractor_id":     {"contractor_id", "candidate_id", "assignment.contractor_id", "assignment.candidate_id"},
	"contractor_name":   {"contractor_name", "candidate_name", "assignment.contractor_name", "assignment.candidate.name"},
	"contractor_email":  {"contractor_email", "candidate_email", "assignment.contractor_email", "assignment.candidate.email"},
	"client_id":         {"client_id", "assignment.client_id", "assignment.project.client_id", "assignment.project.client.id"},
	"client_name":       {"client_name", "assignment.client_name", "assignment.project.client.name"},
	"project_id":        {"project_id", "assignment.project_id", "assignment.project.id"},
	"project_name":      {"project_name", "assignment.project_name", "assignment.project.name"},
	"week_ending":       {"week_ending", "weekEnding", "week_end_date"},
	"status":            {"status"},
	"payroll_status":    {"payroll_status", "payrollStatus"},
	"std_hours":         {"std_hours", "standard_hours", "hours_std"},
	"ot_hours":          {"ot_hours", "overtime_hours", "hours_ot"},
	"total_hours":       {"total_hours"},
	"rate_std":          {"rate_std", "pay_rate", "assignment.rate_std", "assignment.pay_rate"},
	"rate_ot":           {"rate_ot", "overtime_rate", "assignment.rate_ot", "assignment.overtime_rate"},
	"charge_std":        {"charge_std", "charge_rate", "assignment.charge_std", "assignment.charge_rate"},
	"charge_ot":         {"charge_ot", "assignment.charge_ot"},
	"pay_amount":        {"pay_amount", "pay_total"},
	"charge_amount":     {"charge_amount", "charge_total"},
	"gp_amount":         {"gp_amount", "gross_profit"},
	"currency":          {"currency", "assignment.currency"},
	"payroll_batch":     {"payroll_batch"},
	"paid_at":           {"paid_at"},
	"payment_reference": {"payment_reference"},
	"payroll_meta":      {"payroll_meta"},
}

// dayColumns are summed into totalHours when no explicit total is stored.
var dayColumns = []string{"h_mon", "h_tue", "h_wed", "h_thu", "h_fri", "h_sat", "h_sun"}

// Normalize maps one raw row into the canonical Record. The anchor is the
// configured fiscal-week-1 ending date; pass "" for the default.
func Normalize(raw RawRecord, anchor string) Record {
	r := Record{
		ID:              str(raw, "id"),
		AssignmentID:    str(raw, "assignment_id"),
		AssignmentRef:   str(raw, "assignment_ref"),
		TimesheetRef:    str(raw, "ts_ref"),
		ContractorID:    str(raw, "contractor_id"),
		ClientID:        str(raw, "client_id"),
		ProjectID:       str(raw, "project_id"),
		ContractorName:  str(raw, "contractor_name"),
		ContractorEmail: str(raw, "contractor_email"),
		ClientName:      str(raw, "client_name"),
		ProjectName:     str(raw, "project_name"),
		WeekEnding:      str(raw, "week_ending"),

		Status:        Status(strings.ToLower(str(raw, "status"))),
		PayrollStatus: PayrollStatus(strings.ToLower(str(raw, "payroll_status"))),

		RateStd:  num(raw, "rate_std"),
		RateOt:   num(raw, "rate_ot"),
		Currency: strings.ToUpper(str(raw, "currency")),

		PayrollBatch:     str(raw, "payroll_batch"),
		PaidAt:           str(raw, "paid_at"),
		PaymentReference: str(raw, "payment_reference"),
		PayrollMeta:      metaMap(resolve(raw, "payroll_meta")),
	}

	if r.Status == "" {
		r.Status = StatusDraft
	}
	if r.PayrollStatus == "" {
		r.PayrollStatus = PayrollDraft
	}
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}

	r.StdHours = num(raw, "std_hours")
	r.OtHours = num(raw, "ot_hours")
	r.TotalHours = resolveTotalHours(raw, r.StdHours, r.OtHours)

	// Reconcile so TotalHours == StdHours + OtHours survives any source shape.
	if !r.StdHours.Add(r.OtHours).Equal(r.TotalHours) {
		switch {
		case r.StdHours.IsZero() && r.OtHours.IsZero():
			r.StdHours = r.TotalHours
		case r.OtHours.LessThanOrEqual(r.TotalHours):
			r.StdHours = r.TotalHours.Sub(r.OtHours)
		default:
			r.StdHours = r.TotalHours
			r.OtHours = decimal.Zero
		}
	}

	// Nonzero stored amounts win; zero/absent falls back to rate x hours.
	r.PayAmount = num(raw, "pay_amount")
	if r.PayAmount.IsZero() {
		r.PayAmount = r.RateStd.Mul(r.StdHours).Add(r.RateOt.Mul(r.OtHours))
	}
	r.ChargeAmount = num(raw, "charge_amount")
	if r.ChargeAmount.IsZero() {
		chargeOt := num(raw, "charge_ot")
		if chargeOt.IsZero() {
			chargeOt = num(raw, "charge_std")
		}
		r.ChargeAmount = num(raw, "charge_std").Mul(r.StdHours).Add(chargeOt.Mul(r.OtHours))
	}

	// A nonzero stored gp is an upstream override and wins verbatim.
	r.GpAmount = num(raw, "gp_amount")
	if r.GpAmount.IsZero() {
		r.GpAmount = r.ChargeAmount.Sub(r.PayAmount)
	}

	r.WeekNo = FiscalWeek(r.WeekEnding, anchor)
	return r
}

// NormalizeAll maps a query result into canonical records.
func NormalizeAll(raws []RawRecord, anchor string) []Record {
	records := make([]Record, len(raws))
	for i, raw := range raws {
		records[i] = Normalize(raw, anchor)
	}
	return records
}

// resolveTotalHours applies the total-hours precedence: explicit nonzero
// total, then summed day columns, then std + ot.
func resolveTotalHours(raw RawRecord, std, ot decimal.Decimal) decimal.Decimal {
	total := num(raw, "total_hours")
	if !total.IsZero() {
		return total
	}
	daySum := decimal.Zero
	for _, col := range dayColumns {
		if v, ok := raw[col]; ok {
			daySum = daySum.Add(toDecimal(v))
		}
	}
	if !daySum.IsZero() {
		return daySum
	}
	return std.Add(ot)
}

// =============================================================================
// CANDIDATE RESOLUTION
// =============================================================================

// resolve returns the first non-empty candidate value for a canonical field.
func resolve(raw RawRecord, field string) any {
	for _, path := range fieldPaths[field] {
		if v := lookup(raw, path); !isEmpty(v) {
			return v
		}
	}
	return nil
}

// lookup walks a dotted path through nested map values.
func lookup(raw RawRecord, path string) any {
	var cur any = map[string]any(raw)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			if rr, ok2 := cur.(RawRecord); ok2 {
				m = map[string]any(rr)
			} else {
				return nil
			}
		}
		cur, ok = m[part], true
		if cur == nil {
			return nil
		}
	}
	return cur
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// str resolves a canonical field as a trimmed string.
func str(raw RawRecord, field string) string {
	v := resolve(raw, field)
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return ""
	}
}

// num resolves a canonical field as a decimal, zero when unparseable.
func num(raw RawRecord, field string) decimal.Decimal {
	return toDecimal(resolve(raw, field))
}

// toDecimal coerces any plausible numeric encoding; never errors.
func toDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case float32:
		return decimal.NewFromFloat(float64(t))
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(t)); err == nil {
			return d
		}
	case decimal.Decimal:
		return t
	}
	return decimal.Zero
}

func metaMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out
}
