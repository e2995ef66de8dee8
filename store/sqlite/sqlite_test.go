/*
sqlite_test.go - Store behavior against an in-memory database

Exercises the seed dataset, the joined query shape the normalizer consumes,
the payroll update path including schema-drift surfacing, and settings.
*/
package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/payroll-engine/payroll"
	"github.com/staffdesk/payroll-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seededStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s := newStore(t)
	require.NoError(t, s.Seed(context.Background()))
	return s
}

func TestQueryTimesheets_JoinedShape(t *testing.T) {
	// GIVEN: the seeded demo week
	s := seededStore(t)

	// WHEN
	rows, err := s.QueryTimesheets(context.Background(), payroll.Scope{WeekEnding: sqlite.SeedWeek})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// THEN: rows come back ordered by ts_ref with the joined entities nested
	first := rows[0]
	assert.Equal(t, "ts-9001", first["id"])

	assignment, ok := first["assignment"].(map[string]any)
	require.True(t, ok, "assignment should be nested")
	assert.Equal(t, "as-1001", assignment["id"])
	assert.Equal(t, "ASN-1001", assignment["ref"])

	candidate, ok := assignment["candidate"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada Byrne", candidate["name"])
	assert.Equal(t, "ada@contractors.example", candidate["email"])

	project, ok := assignment["project"].(map[string]any)
	require.True(t, ok)
	client, ok := project["client"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Acme, Inc.", client["name"])
}

func TestQueryTimesheets_NormalizesCleanly(t *testing.T) {
	s := seededStore(t)

	rows, err := s.QueryTimesheets(context.Background(), payroll.Scope{WeekEnding: sqlite.SeedWeek})
	require.NoError(t, err)

	records := payroll.NormalizeAll(rows, "")
	byID := map[string]payroll.Record{}
	for _, r := range records {
		byID[r.ID] = r
	}

	// Explicit split: pay derived from the assignment rates.
	ada := byID["ts-9001"]
	assert.Equal(t, "Ada Byrne", ada.ContractorName)
	assert.Equal(t, "Acme, Inc.", ada.ClientName)
	assert.Equal(t, "41.5", ada.TotalHours.String())
	assert.Equal(t, "1522.5", ada.PayAmount.String()) // 37.5*35 + 4*52.5

	// Day columns only: the normalizer sums them.
	brendan := byID["ts-9002"]
	assert.Equal(t, "39.5", brendan.TotalHours.String())

	// Stored pay override beats the rate derivation.
	carol := byID["ts-9003"]
	assert.Equal(t, "EUR", carol.Currency)
	assert.Equal(t, "1850", carol.PayAmount.String())
}

func TestQueryTimesheets_ClientScope(t *testing.T) {
	s := seededStore(t)

	rows, err := s.QueryTimesheets(context.Background(), payroll.Scope{
		WeekEnding: sqlite.SeedWeek,
		ClientID:   "cl-globex",
	})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	for _, raw := range rows {
		assignment := raw["assignment"].(map[string]any)
		project := assignment["project"].(map[string]any)
		client := project["client"].(map[string]any)
		assert.Equal(t, "cl-globex", client["id"])
	}
}

func TestUpdateTimesheetPayroll_Roundtrip(t *testing.T) {
	// GIVEN: a seeded timesheet
	s := seededStore(t)
	ctx := context.Background()

	// WHEN: writing the paid fields, metadata included
	err := s.UpdateTimesheetPayroll(ctx, "ts-9001", map[string]any{
		"payroll_status":    "paid",
		"payroll_batch":     "2025-W16",
		"paid_at":           "2025-04-18T12:00:00Z",
		"payment_reference": "BACS-0042",
		"payroll_meta":      map[string]any{"batch": "2025-W16", "status": "paid"},
	})
	require.NoError(t, err)

	// THEN: the normalized read reflects the paid state
	rows, err := s.QueryTimesheets(ctx, payroll.Scope{WeekEnding: sqlite.SeedWeek})
	require.NoError(t, err)

	var paid payroll.Record
	for _, r := range payroll.NormalizeAll(rows, "") {
		if r.ID == "ts-9001" {
			paid = r
		}
	}
	assert.True(t, paid.IsPaid())
	assert.Equal(t, "2025-W16", paid.PayrollBatch)
	assert.Equal(t, "BACS-0042", paid.PaymentReference)
	require.NotNil(t, paid.PayrollMeta)
	assert.Equal(t, "2025-W16", paid.PayrollMeta["batch"])
}

func TestUpdateTimesheetPayroll_SchemaDrift(t *testing.T) {
	s := seededStore(t)

	err := s.UpdateTimesheetPayroll(context.Background(), "ts-9001", map[string]any{
		"payroll_status": "paid",
		"legacy_flag":    1,
	})

	// The unknown column surfaces as a typed drift error naming it.
	require.Error(t, err)
	var drift *payroll.SchemaDriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, "legacy_flag", drift.Column)
	assert.ErrorIs(t, err, payroll.ErrSchemaDrift)
}

func TestSettings(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	// Unset reads as empty, not an error.
	v, err := s.GetSetting(ctx, "fiscal_week1_ending")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.PutSetting(ctx, "fiscal_week1_ending", "2025-04-06"))
	require.NoError(t, s.PutSetting(ctx, "fiscal_week1_ending", "2026-04-05"))

	v, err = s.GetSetting(ctx, "fiscal_week1_ending")
	require.NoError(t, err)
	assert.Equal(t, "2026-04-05", v)
}

func TestCRUD_GeneratedIDs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	c, err := s.SaveClient(ctx, sqlite.Client{Name: "New Client"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	co, err := s.SaveContractor(ctx, sqlite.Contractor{Name: "New Contractor", Email: "n@x.example"})
	require.NoError(t, err)
	assert.NotEmpty(t, co.ID)

	clients, err := s.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "New Client", clients[0].Name)

	contractors, err := s.ListContractors(ctx)
	require.NoError(t, err)
	require.Len(t, contractors, 1)
	assert.Equal(t, "n@x.example", contractors[0].Email)
}
