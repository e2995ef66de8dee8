/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the canonical payroll
  types from the wire contract. Money and hours serialize as floats for the
  dashboards; the pipeline itself stays in decimals.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: Canonical Record
*/
package api

import (
	"github.com/staffdesk/payroll-engine/payroll"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RecordDTO is one canonical timesheet record on the wire.
type RecordDTO struct {
	ID              string  `json:"id"`
	AssignmentID    string  `json:"assignment_id,omitempty"`
	AssignmentRef   string  `json:"assignment_ref,omitempty"`
	TimesheetRef    string  `json:"ts_ref,omitempty"`
	ContractorID    string  `json:"contractor_id,omitempty"`
	ContractorName  string  `json:"contractor_name,omitempty"`
	ContractorEmail string  `json:"contractor_email,omitempty"`
	ClientID        string  `json:"client_id,omitempty"`
	ClientName      string  `json:"client_name,omitempty"`
	ProjectID       string  `json:"project_id,omitempty"`
	ProjectName     string  `json:"project_name,omitempty"`
	WeekEnding      string  `json:"week_ending"`
	WeekNo          *int    `json:"week_no"`
	Status          string  `json:"status"`
	PayrollStatus   string  `json:"payroll_status"`
	StdHours        float64 `json:"std_hours"`
	OtHours         float64 `json:"ot_hours"`
	TotalHours      float64 `json:"total_hours"`
	RateStd         float64 `json:"rate_std"`
	RateOt          float64 `json:"rate_ot"`
	PayAmount       float64 `json:"pay_amount"`
	ChargeAmount    float64 `json:"charge_amount"`
	GpAmount        float64 `json:"gp_amount"`
	Currency        string  `json:"currency"`
	PayrollBatch    string  `json:"payroll_batch,omitempty"`
	PaidAt          string  `json:"paid_at,omitempty"`
	PaymentRef      string  `json:"payment_reference,omitempty"`
}

// TotalsDTO mirrors payroll.Totals.
type TotalsDTO struct {
	StdHours     float64 `json:"std_hours"`
	OtHours      float64 `json:"ot_hours"`
	PayAmount    float64 `json:"pay_amount"`
	ChargeAmount float64 `json:"charge_amount"`
	GpAmount     float64 `json:"gp_amount"`
}

// ContractorRollupDTO is one per-contractor reporting row.
type ContractorRollupDTO struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Records int    `json:"records"`
	TotalsDTO
}

// WeekBucketDTO is one fiscal-week reporting row.
type WeekBucketDTO struct {
	WeekNo  int `json:"week_no"`
	Records int `json:"records"`
	TotalsDTO
}

// ClientChargeDTO is one row of the top-clients view.
type ClientChargeDTO struct {
	ClientID   string  `json:"client_id,omitempty"`
	ClientName string  `json:"client_name"`
	Charge     float64 `json:"charge"`
	Records    int     `json:"records"`
}

// SummaryDTO is the aggregation block of the preview response.
type SummaryDTO struct {
	Totals      TotalsDTO             `json:"totals"`
	ByCurrency  map[string]TotalsDTO  `json:"by_currency"`
	Contractors []ContractorRollupDTO `json:"contractors"`
	Weeks       []WeekBucketDTO       `json:"weeks,omitempty"`
	Records     int                   `json:"records"`
}

// PreviewResponse is the payroll preview screen payload.
type PreviewResponse struct {
	WeekEnding    string            `json:"week_ending"`
	ClientID      string            `json:"client_id,omitempty"`
	Source        string            `json:"source"`
	SourceWarning string            `json:"source_warning,omitempty"`
	Records       []RecordDTO       `json:"records"`
	Warnings      []payroll.Warning `json:"warnings"`
	Summary       SummaryDTO        `json:"summary"`
	TopClients    []ClientChargeDTO `json:"top_clients"`
}

// MarkPaidRequestDTO is the mark-paid call body.
type MarkPaidRequestDTO struct {
	WeekEnding       string `json:"week_ending"`
	ClientID         string `json:"client_id,omitempty"`
	PayrollBatch     string `json:"payroll_batch"`
	PaidAt           string `json:"paid_at,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
}

// MarkPaidResponseDTO reports the batch outcome.
type MarkPaidResponseDTO struct {
	OK               bool              `json:"ok"`
	UpdatedCount     int               `json:"updated_count"`
	AlreadyPaidCount int               `json:"already_paid_count"`
	FailedCount      int               `json:"failed_count"`
	Failures         []payroll.Failure `json:"failures"`
}

// ClientDTO / ContractorDTO / AssignmentDTO are the back-office CRUD shapes.
type ClientDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ContractorDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type AssignmentDTO struct {
	ID           string  `json:"id"`
	Ref          string  `json:"ref,omitempty"`
	ContractorID string  `json:"contractor_id"`
	ProjectID    string  `json:"project_id"`
	RateStd      float64 `json:"rate_std"`
	RateOt       float64 `json:"rate_ot"`
	ChargeStd    float64 `json:"charge_std"`
	ChargeOt     float64 `json:"charge_ot"`
	Currency     string  `json:"currency,omitempty"`
}

// FiscalSettingDTO carries the fiscal-week-1 anchor date.
type FiscalSettingDTO struct {
	FiscalWeek1Ending string `json:"fiscal_week1_ending"`
}

// ErrorResponse is the standard error envelope: a stable machine-readable
// code plus a human-readable message. Internal details never include stack
// traces.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRecordDTO(r payroll.Record) RecordDTO {
	return RecordDTO{
		ID:              r.ID,
		AssignmentID:    r.AssignmentID,
		AssignmentRef:   r.AssignmentRef,
		TimesheetRef:    r.TimesheetRef,
		ContractorID:    r.ContractorID,
		ContractorName:  r.ContractorName,
		ContractorEmail: r.ContractorEmail,
		ClientID:        r.ClientID,
		ClientName:      r.ClientName,
		ProjectID:       r.ProjectID,
		ProjectName:     r.ProjectName,
		WeekEnding:      r.WeekEnding,
		WeekNo:          r.WeekNo,
		Status:          string(r.Status),
		PayrollStatus:   string(r.PayrollStatus),
		StdHours:        r.StdHours.InexactFloat64(),
		OtHours:         r.OtHours.InexactFloat64(),
		TotalHours:      r.TotalHours.InexactFloat64(),
		RateStd:         r.RateStd.InexactFloat64(),
		RateOt:          r.RateOt.InexactFloat64(),
		PayAmount:       r.PayAmount.InexactFloat64(),
		ChargeAmount:    r.ChargeAmount.InexactFloat64(),
		GpAmount:        r.GpAmount.InexactFloat64(),
		Currency:        r.Currency,
		PayrollBatch:    r.PayrollBatch,
		PaidAt:          r.PaidAt,
		PaymentRef:      r.PaymentReference,
	}
}

func toRecordDTOs(records []payroll.Record) []RecordDTO {
	dtos := make([]RecordDTO, len(records))
	for i, r := range records {
		dtos[i] = toRecordDTO(r)
	}
	return dtos
}

func toTotalsDTO(t payroll.Totals) TotalsDTO {
	return TotalsDTO{
		StdHours:     t.StdHours.InexactFloat64(),
		OtHours:      t.OtHours.InexactFloat64(),
		PayAmount:    t.PayAmount.InexactFloat64(),
		ChargeAmount: t.ChargeAmount.InexactFloat64(),
		GpAmount:     t.GpAmount.InexactFloat64(),
	}
}

func toSummaryDTO(s payroll.Summary) SummaryDTO {
	dto := SummaryDTO{
		Totals:     toTotalsDTO(s.Totals),
		ByCurrency: make(map[string]TotalsDTO, len(s.ByCurrency)),
		Records:    s.Records,
	}
	for cur, t := range s.ByCurrency {
		dto.ByCurrency[cur] = toTotalsDTO(t)
	}
	for _, c := range s.Contractors {
		dto.Contractors = append(dto.Contractors, ContractorRollupDTO{
			Key: c.Key, Name: c.Name, Email: c.Email, Records: c.Records,
			TotalsDTO: toTotalsDTO(c.Totals),
		})
	}
	for _, w := range s.Weeks {
		dto.Weeks = append(dto.Weeks, WeekBucketDTO{
			WeekNo: w.WeekNo, Records: w.Records,
			TotalsDTO: toTotalsDTO(w.Totals),
		})
	}
	return dto
}

func toClientChargeDTOs(in []payroll.ClientCharge) []ClientChargeDTO {
	out := make([]ClientChargeDTO, len(in))
	for i, c := range in {
		out[i] = ClientChargeDTO{
			ClientID:   c.ClientID,
			ClientName: c.ClientName,
			Charge:     c.Charge.InexactFloat64(),
			Records:    c.Records,
		}
	}
	return out
}
