/*
handlers_test.go - HTTP surface behavior

Runs the real router against an in-memory seeded store: preview content,
extract headers, the mark-paid flow end to end (token guard, idempotence),
fiscal settings, and read-path degradation to the fallback dataset.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/payroll-engine/api"
	"github.com/staffdesk/payroll-engine/store/sqlite"
)

func newTestServer(t *testing.T, token string) (http.Handler, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Seed(context.Background()))

	h := api.NewHandler(store, token, "", nil)
	return api.NewRouter(h), store
}

func do(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decode(t, rec, &body)
	return body.Code
}

func TestPreview_RequiresWeekEnding(t *testing.T) {
	router, _ := newTestServer(t, "")

	rec := do(t, router, httptest.NewRequest(http.MethodGet, "/api/payroll/preview", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_week_ending", errorCode(t, rec))
}

func TestPreview_SeededWeek(t *testing.T) {
	// GIVEN: the seeded demo week
	router, _ := newTestServer(t, "")

	// WHEN
	rec := do(t, router, httptest.NewRequest(http.MethodGet,
		"/api/payroll/preview?week_ending="+sqlite.SeedWeek, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.PreviewResponse
	decode(t, rec, &resp)

	// THEN: live data, all four records, rollups filled
	assert.Equal(t, "live", resp.Source)
	assert.Empty(t, resp.SourceWarning)
	assert.Len(t, resp.Records, 4)
	assert.Equal(t, 4, resp.Summary.Records)
	assert.Len(t, resp.Summary.Contractors, 3)
	assert.NotEmpty(t, resp.TopClients)
	assert.Greater(t, resp.Summary.Totals.PayAmount, 0.0)

	// AND: the seeded edge cases surface as warnings
	types := map[string]bool{}
	for _, w := range resp.Warnings {
		types[string(w.Type)] = true
	}
	assert.True(t, types["unapproved_timesheet"], "submitted sheet should warn")
	assert.True(t, types["non_gbp_currency"], "EUR sheet should warn")
}

func TestPreview_IncludeUnapproved(t *testing.T) {
	router, _ := newTestServer(t, "")

	rec := do(t, router, httptest.NewRequest(http.MethodGet,
		"/api/payroll/preview?week_ending="+sqlite.SeedWeek+"&include_unapproved=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.PreviewResponse
	decode(t, rec, &resp)
	for _, w := range resp.Warnings {
		assert.NotEqual(t, "unapproved_timesheet", string(w.Type))
	}
}

func TestPreview_FallbackWhenStoreDown(t *testing.T) {
	// GIVEN: a store that has gone away
	router, store := newTestServer(t, "")
	require.NoError(t, store.Close())

	// WHEN
	rec := do(t, router, httptest.NewRequest(http.MethodGet,
		"/api/payroll/preview?week_ending=2025-04-13", nil))

	// THEN: the read degrades instead of failing
	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.PreviewResponse
	decode(t, rec, &resp)
	assert.Equal(t, "fallback", resp.Source)
	assert.NotEmpty(t, resp.SourceWarning)
	assert.NotEmpty(t, resp.Records)
}

func TestExportCSV(t *testing.T) {
	router, _ := newTestServer(t, "")

	rec := do(t, router, httptest.NewRequest(http.MethodGet,
		"/api/payroll/export?week_ending="+sqlite.SeedWeek, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "generic_payroll_2025-04-13.csv")
	assert.Equal(t, "live", rec.Header().Get("X-Data-Source"))

	rows, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5) // header + 4 records
	assert.Equal(t, "Contractor Name", rows[0][0])

	// The comma-bearing client name survives quoting.
	joined := rec.Body.String()
	assert.Contains(t, joined, `"Acme, Inc."`)
}

func TestExportXLSX(t *testing.T) {
	router, _ := newTestServer(t, "")

	rec := do(t, router, httptest.NewRequest(http.MethodGet,
		"/api/payroll/export.xlsx?week_ending="+sqlite.SeedWeek, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	// XLSX is a zip container.
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestMarkPaid_TokenGuard(t *testing.T) {
	router, _ := newTestServer(t, "s3cret")
	body := `{"week_ending":"2025-04-13","payroll_batch":"2025-W16"}`

	// No token at all.
	rec := do(t, router, httptest.NewRequest(http.MethodPost,
		"/api/payroll/mark-paid", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "bad_export_token", errorCode(t, rec))

	// Wrong token.
	req := httptest.NewRequest(http.MethodPost, "/api/payroll/mark-paid", strings.NewReader(body))
	req.Header.Set("X-Export-Token", "wrong")
	rec = do(t, router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMarkPaid_FlowAndIdempotence(t *testing.T) {
	router, _ := newTestServer(t, "s3cret")

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payroll/mark-paid",
			strings.NewReader(`{"week_ending":"2025-04-13","payroll_batch":"2025-W16","payment_reference":"BACS-0042"}`))
		req.Header.Set("X-Export-Token", "s3cret")
		return do(t, router, req)
	}

	// First run pays the whole week.
	rec := post()
	require.Equal(t, http.StatusOK, rec.Code)
	var first api.MarkPaidResponseDTO
	decode(t, rec, &first)
	assert.True(t, first.OK)
	assert.Equal(t, 4, first.UpdatedCount)
	assert.Equal(t, 0, first.AlreadyPaidCount)
	assert.Equal(t, 0, first.FailedCount)

	// The second run is a no-op.
	rec = post()
	require.Equal(t, http.StatusOK, rec.Code)
	var second api.MarkPaidResponseDTO
	decode(t, rec, &second)
	assert.Equal(t, 0, second.UpdatedCount)
	assert.Equal(t, 4, second.AlreadyPaidCount)

	// The preview reflects the paid state.
	prev := do(t, router, httptest.NewRequest(http.MethodGet,
		"/api/payroll/preview?week_ending="+sqlite.SeedWeek, nil))
	var resp api.PreviewResponse
	decode(t, prev, &resp)
	for _, r := range resp.Records {
		assert.Equal(t, "paid", r.PayrollStatus)
		assert.Equal(t, "2025-W16", r.PayrollBatch)
	}
}

func TestMarkPaid_Validation(t *testing.T) {
	router, _ := newTestServer(t, "")

	rec := do(t, router, httptest.NewRequest(http.MethodPost, "/api/payroll/mark-paid",
		strings.NewReader(`{"payroll_batch":"2025-W16"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_week_ending", errorCode(t, rec))

	rec = do(t, router, httptest.NewRequest(http.MethodPost, "/api/payroll/mark-paid",
		strings.NewReader(`{"week_ending":"2025-04-13"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_payroll_batch", errorCode(t, rec))

	rec = do(t, router, httptest.NewRequest(http.MethodPost, "/api/payroll/mark-paid",
		strings.NewReader(`{"week_ending":"2025-04-13","payroll_batch":"b","paid_at":"yesterday"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_paid_at", errorCode(t, rec))
}

func TestMarkPaid_StoreDown(t *testing.T) {
	router, store := newTestServer(t, "")
	require.NoError(t, store.Close())

	rec := do(t, router, httptest.NewRequest(http.MethodPost, "/api/payroll/mark-paid",
		strings.NewReader(`{"week_ending":"2025-04-13","payroll_batch":"2025-W16"}`)))

	// Writes never fall back.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "store_unavailable", errorCode(t, rec))
}

func TestFiscalSetting(t *testing.T) {
	router, _ := newTestServer(t, "")

	// Default anchor before any override.
	rec := do(t, router, httptest.NewRequest(http.MethodGet, "/api/settings/fiscal", nil))
	var setting api.FiscalSettingDTO
	decode(t, rec, &setting)
	assert.Equal(t, "2025-04-06", setting.FiscalWeek1Ending)

	// Garbage dates are rejected.
	rec = do(t, router, httptest.NewRequest(http.MethodPut, "/api/settings/fiscal",
		strings.NewReader(`{"fiscal_week1_ending":"sometime"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", errorCode(t, rec))

	// A valid override sticks.
	rec = do(t, router, httptest.NewRequest(http.MethodPut, "/api/settings/fiscal",
		strings.NewReader(`{"fiscal_week1_ending":"2026-04-05"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, httptest.NewRequest(http.MethodGet, "/api/settings/fiscal", nil))
	decode(t, rec, &setting)
	assert.Equal(t, "2026-04-05", setting.FiscalWeek1Ending)
}

func TestClientCRUD(t *testing.T) {
	router, _ := newTestServer(t, "")

	rec := do(t, router, httptest.NewRequest(http.MethodPost, "/api/clients/",
		strings.NewReader(`{"name":"Initech"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created api.ClientDTO
	decode(t, rec, &created)
	assert.NotEmpty(t, created.ID)

	rec = do(t, router, httptest.NewRequest(http.MethodGet, "/api/clients/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var clients []api.ClientDTO
	decode(t, rec, &clients)
	assert.Len(t, clients, 3) // two seeded plus the new one

	// Name is mandatory.
	rec = do(t, router, httptest.NewRequest(http.MethodPost, "/api/clients/",
		strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
