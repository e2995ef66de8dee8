/*
fiscal_test.go - Fiscal week arithmetic
*/
package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/payroll-engine/payroll"
)

func week(t *testing.T, weekEnding, anchor string) int {
	t.Helper()
	w := payroll.FiscalWeek(weekEnding, anchor)
	require.NotNil(t, w, "expected a week number for %q against %q", weekEnding, anchor)
	return *w
}

func TestFiscalWeek_AnchorIsWeekOne(t *testing.T) {
	assert.Equal(t, 1, week(t, "2025-04-06", "2025-04-06"))
}

func TestFiscalWeek_SevenDayBuckets(t *testing.T) {
	anchor := "2025-04-06"

	// Inside week 1, up to and including the anchor + 6 days.
	assert.Equal(t, 1, week(t, "2025-04-07", anchor))
	assert.Equal(t, 1, week(t, "2025-04-12", anchor))

	// Exactly one week on.
	assert.Equal(t, 2, week(t, "2025-04-13", anchor))

	// Before the anchor the numbering continues downward, it does not clamp.
	assert.Equal(t, 0, week(t, "2025-03-30", anchor))
	assert.Equal(t, 0, week(t, "2025-04-05", anchor))
	assert.Equal(t, -1, week(t, "2025-03-23", anchor))
}

func TestFiscalWeek_TimeOfDayIgnored(t *testing.T) {
	// A timestamped week ending lands in the same bucket as its date.
	assert.Equal(t, 2, week(t, "2025-04-13T23:30:00Z", "2025-04-06"))
	assert.Equal(t, 2, week(t, "2025-04-13 09:00:00", "2025-04-06"))
}

func TestFiscalWeek_AlternateDateLayouts(t *testing.T) {
	// UK-style day-first dates appear in older imports.
	assert.Equal(t, 2, week(t, "13/04/2025", "2025-04-06"))
}

func TestFiscalWeek_UnparseableYieldsNil(t *testing.T) {
	assert.Nil(t, payroll.FiscalWeek("not a date", "2025-04-06"))
	assert.Nil(t, payroll.FiscalWeek("", "2025-04-06"))
	assert.Nil(t, payroll.FiscalWeek("2025-04-13", "never"))
}

func TestFiscalWeek_EmptyAnchorUsesDefault(t *testing.T) {
	withDefault := payroll.FiscalWeek("2025-04-13", "")
	explicit := payroll.FiscalWeek("2025-04-13", payroll.DefaultFiscalAnchor)
	require.NotNil(t, withDefault)
	require.NotNil(t, explicit)
	assert.Equal(t, *explicit, *withDefault)
}
