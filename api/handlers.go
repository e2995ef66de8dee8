/*
handlers.go - HTTP API handlers for the payroll back-office

PURPOSE:
  Exposes the payroll pipeline and the supporting back-office CRUD over
  REST. Handles HTTP request/response and JSON serialization; all payroll
  semantics live in the payroll package.

ENDPOINTS:
  Payroll:
    GET  /api/payroll/preview      Normalized records + warnings + summary
    GET  /api/payroll/export       CSV extract (text/csv attachment)
    GET  /api/payroll/export.xlsx  Excel extract
    POST /api/payroll/mark-paid    Idempotent paid transition for a scope

  Back office:
    GET/POST /api/clients, /api/contractors, /api/assignments
    GET      /api/timesheets
    GET/PUT  /api/settings/fiscal
    POST     /api/seed

READ-PATH DEGRADATION:
  Preview/export/timesheet reads never fail hard on store trouble: they
  serve the static fallback dataset tagged source=fallback with a warning.
  Mark-paid fails outright when the store is down, since writes cannot be
  faked.

AUTH:
  Requests arrive already authenticated upstream (admin role enforced by
  the surrounding gateway). The only check done here is the shared-secret
  export token on mark-paid, when one is configured.

ERROR HANDLING:
  Errors are returned as JSON {error, code} with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Export token missing/mismatched
  - 503: Store unavailable on a write path

SEE ALSO:
  - dto.go: Request/response data structures
  - fallback.go: Degraded-read dataset
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/staffdesk/payroll-engine/payroll"
	"github.com/staffdesk/payroll-engine/store/sqlite"
)

// fiscalSettingKey is the settings-table key for the week-1 anchor.
const fiscalSettingKey = "fiscal_week1_ending"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	// ExportToken guards mark-paid when non-empty.
	ExportToken string

	// FiscalDefault is the configured anchor used when the settings table
	// has no override.
	FiscalDefault string

	Log *zap.Logger
}

// NewHandler creates a handler. A nil logger is replaced with a no-op.
func NewHandler(store *sqlite.Store, exportToken, fiscalDefault string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if fiscalDefault == "" {
		fiscalDefault = payroll.DefaultFiscalAnchor
	}
	return &Handler{Store: store, ExportToken: exportToken, FiscalDefault: fiscalDefault, Log: log}
}

// fiscalAnchor resolves the live anchor: settings table first, then the
// configured default. Read at call time so admins can move it mid-year.
func (h *Handler) fiscalAnchor(r *http.Request) string {
	v, err := h.Store.GetSetting(r.Context(), fiscalSettingKey)
	if err != nil || v == "" {
		return h.FiscalDefault
	}
	return v
}

// loadScoped queries and normalizes the scoped records, degrading to the
// fallback dataset when the store read fails.
func (h *Handler) loadScoped(r *http.Request, scope payroll.Scope) payroll.Dataset {
	anchor := h.fiscalAnchor(r)
	raws, err := h.Store.QueryTimesheets(r.Context(), scope)
	if err != nil {
		h.Log.Warn("timesheet query failed, serving fallback dataset",
			zap.String("week_ending", scope.WeekEnding), zap.Error(err))
		return fallbackDataset(scope, anchor)
	}
	return payroll.Dataset{
		Records: payroll.NormalizeAll(raws, anchor),
		Source:  payroll.SourceLive,
	}
}

func scopeFromQuery(r *http.Request) payroll.Scope {
	return payroll.Scope{
		WeekEnding: r.URL.Query().Get("week_ending"),
		ClientID:   r.URL.Query().Get("client_id"),
	}
}

// =============================================================================
// PAYROLL ENDPOINTS
// =============================================================================

// PreviewPayroll returns the normalized scope plus warnings and rollups.
// GET /api/payroll/preview?week_ending=&client_id=&include_unapproved=
func (h *Handler) PreviewPayroll(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromQuery(r)
	if scope.WeekEnding == "" {
		writeError(w, http.StatusBadRequest, "missing_week_ending", "week_ending is required")
		return
	}
	includeUnapproved := r.URL.Query().Get("include_unapproved") == "true"

	ds := h.loadScoped(r, scope)
	summary := payroll.Aggregate(ds.Records)

	writeJSON(w, http.StatusOK, PreviewResponse{
		WeekEnding:    scope.WeekEnding,
		ClientID:      scope.ClientID,
		Source:        string(ds.Source),
		SourceWarning: ds.Warning,
		Records:       toRecordDTOs(ds.Records),
		Warnings:      payroll.DetectExceptions(ds.Records, includeUnapproved),
		Summary:       toSummaryDTO(summary),
		TopClients:    toClientChargeDTOs(payroll.TopClientsByCharge(ds.Records, 0)),
	})
}

// ExportPayrollCSV streams the CSV extract.
// GET /api/payroll/export?week_ending=&client_id=&format=
func (h *Handler) ExportPayrollCSV(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromQuery(r)
	if scope.WeekEnding == "" {
		writeError(w, http.StatusBadRequest, "missing_week_ending", "week_ending is required")
		return
	}
	format := r.URL.Query().Get("format")

	ds := h.loadScoped(r, scope)
	data, err := payroll.ExportCSV(ds.Records, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", "failed to build CSV extract")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+payroll.ExportFilename(format, scope.WeekEnding)+`"`)
	w.Header().Set("X-Data-Source", string(ds.Source))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ExportPayrollXLSX streams the Excel extract.
// GET /api/payroll/export.xlsx?week_ending=&client_id=&format=
func (h *Handler) ExportPayrollXLSX(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromQuery(r)
	if scope.WeekEnding == "" {
		writeError(w, http.StatusBadRequest, "missing_week_ending", "week_ending is required")
		return
	}
	format := r.URL.Query().Get("format")

	ds := h.loadScoped(r, scope)
	data, err := payroll.ExportXLSX(ds.Records, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", "failed to build XLSX extract")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+payroll.ExportXLSXFilename(format, scope.WeekEnding)+`"`)
	w.Header().Set("X-Data-Source", string(ds.Source))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// MarkPaid transitions the scoped records to paid under a batch id.
// POST /api/payroll/mark-paid
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	// Token guard runs before the body is even read; nothing is touched on
	// a mismatch.
	if h.ExportToken != "" && r.Header.Get("X-Export-Token") != h.ExportToken {
		writeError(w, http.StatusUnauthorized, "bad_export_token", payroll.ErrBadExportToken.Error())
		return
	}

	var req MarkPaidRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	var paidAt time.Time
	if req.PaidAt != "" {
		t, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_paid_at", "paid_at must be RFC3339")
			return
		}
		paidAt = t
	}

	processor := payroll.NewProcessor(h.Store, h.Log)
	result, err := processor.MarkPaid(r.Context(), payroll.MarkPaidRequest{
		Scope:            payroll.Scope{WeekEnding: req.WeekEnding, ClientID: req.ClientID},
		Batch:            req.PayrollBatch,
		PaidAt:           paidAt,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		switch {
		case errors.Is(err, payroll.ErrMissingWeekEnding):
			writeError(w, http.StatusBadRequest, "missing_week_ending", err.Error())
		case errors.Is(err, payroll.ErrMissingBatch):
			writeError(w, http.StatusBadRequest, "missing_payroll_batch", err.Error())
		case errors.Is(err, payroll.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "backing store unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "mark_paid_failed", "mark-paid batch failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, MarkPaidResponseDTO{
		OK:               result.FailedCount == 0,
		UpdatedCount:     result.UpdatedCount,
		AlreadyPaidCount: result.AlreadyPaidCount,
		FailedCount:      result.FailedCount,
		Failures:         result.Failures,
	})
}

// =============================================================================
// TIMESHEET LISTING
// =============================================================================

// ListTimesheets returns the normalized records in scope.
// GET /api/timesheets?week_ending=&client_id=
func (h *Handler) ListTimesheets(w http.ResponseWriter, r *http.Request) {
	ds := h.loadScoped(r, scopeFromQuery(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"source":         string(ds.Source),
		"source_warning": ds.Warning,
		"records":        toRecordDTOs(ds.Records),
	})
}

// =============================================================================
// BACK-OFFICE CRUD
// =============================================================================

// ListClients returns all clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", "failed to list clients")
		return
	}
	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = ClientDTO{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClient creates a client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "name is required")
		return
	}
	c, err := h.Store.SaveClient(r.Context(), sqlite.Client{ID: req.ID, Name: req.Name})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", "failed to create client")
		return
	}
	writeJSON(w, http.StatusCreated, ClientDTO{ID: c.ID, Name: c.Name})
}

// ListContractors returns all contractors.
func (h *Handler) ListContractors(w http.ResponseWriter, r *http.Request) {
	contractors, err := h.Store.ListContractors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", "failed to list contractors")
		return
	}
	dtos := make([]ContractorDTO, len(contractors))
	for i, c := range contractors {
		dtos[i] = ContractorDTO{ID: c.ID, Name: c.Name, Email: c.Email}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContractor creates a contractor.
func (h *Handler) CreateContractor(w http.ResponseWriter, r *http.Request) {
	var req ContractorDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "name is required")
		return
	}
	c, err := h.Store.SaveContractor(r.Context(), sqlite.Contractor{ID: req.ID, Name: req.Name, Email: req.Email})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", "failed to create contractor")
		return
	}
	writeJSON(w, http.StatusCreated, ContractorDTO{ID: c.ID, Name: c.Name, Email: c.Email})
}

// ListAssignments returns all assignments.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Store.ListAssignments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", "failed to list assignments")
		return
	}
	dtos := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		dtos[i] = AssignmentDTO{
			ID: a.ID, Ref: a.Ref, ContractorID: a.ContractorID, ProjectID: a.ProjectID,
			RateStd: a.RateStd, RateOt: a.RateOt, ChargeStd: a.ChargeStd, ChargeOt: a.ChargeOt,
			Currency: a.Currency,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAssignment creates an assignment.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req AssignmentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContractorID == "" || req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "contractor_id and project_id are required")
		return
	}
	a, err := h.Store.SaveAssignment(r.Context(), sqlite.Assignment{
		ID: req.ID, Ref: req.Ref, ContractorID: req.ContractorID, ProjectID: req.ProjectID,
		RateStd: req.RateStd, RateOt: req.RateOt, ChargeStd: req.ChargeStd, ChargeOt: req.ChargeOt,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", "failed to create assignment")
		return
	}
	req.ID = a.ID
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetFiscalSetting returns the live fiscal anchor.
func (h *Handler) GetFiscalSetting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FiscalSettingDTO{FiscalWeek1Ending: h.fiscalAnchor(r)})
}

// PutFiscalSetting updates the fiscal anchor.
func (h *Handler) PutFiscalSetting(w http.ResponseWriter, r *http.Request) {
	var req FiscalSettingDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if payroll.FiscalWeek(req.FiscalWeek1Ending, req.FiscalWeek1Ending) == nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "fiscal_week1_ending must be an ISO date")
		return
	}
	if err := h.Store.PutSetting(r.Context(), fiscalSettingKey, req.FiscalWeek1Ending); err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", "failed to update setting")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// SeedDemo loads the demo dataset.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Seed(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", "failed to seed demo data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seeded": true, "week_ending": sqlite.SeedWeek})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
