/*
export_test.go - CSV and XLSX extract rendering
*/
package payroll_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/staffdesk/payroll-engine/payroll"
)

func exportRecord(id, name, tsRef string) payroll.Record {
	return payroll.Record{
		ID:              id,
		ContractorName:  name,
		ContractorEmail: "x@x.example",
		TimesheetRef:    tsRef,
		AssignmentRef:   "ASN-" + id,
		ClientName:      "Acme, Inc.",
		ProjectName:     "ERP",
		WeekEnding:      "2025-04-13",
		StdHours:        decimal.NewFromFloat(37.5),
		OtHours:         decimal.NewFromInt(4),
		RateStd:         decimal.NewFromInt(35),
		RateOt:          decimal.NewFromFloat(52.5),
		PayAmount:       decimal.NewFromFloat(1522.5),
	}
}

func TestExportCSV_RoundTripsCommasAndQuoting(t *testing.T) {
	// GIVEN: a record whose client name contains a comma
	out, err := payroll.ExportCSV([]payroll.Record{exportRecord("1", "Ada Byrne", "TS-1")}, payroll.FormatGeneric)
	require.NoError(t, err)

	// WHEN: parsing the output back
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)

	// THEN: header plus one data row, with the comma intact
	require.Len(t, rows, 2)
	assert.Equal(t, "Contractor Name", rows[0][0])
	assert.Equal(t, "Timesheet Ref", rows[0][11])
	assert.Equal(t, "Ada Byrne", rows[1][0])
	assert.Equal(t, "Acme, Inc.", rows[1][8])
	assert.Equal(t, "37.50", rows[1][3])
	assert.Equal(t, "1522.50", rows[1][7])
}

func TestExportCSV_SortOrder(t *testing.T) {
	records := []payroll.Record{
		exportRecord("1", "zara okafor", "TS-3"),
		exportRecord("2", "Ada Byrne", "TS-2"),
		exportRecord("3", "Ada Byrne", "TS-1"),
	}

	out, err := payroll.ExportCSV(records, payroll.FormatGeneric)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Name ascending (case-insensitive), then timesheet ref.
	assert.Equal(t, "TS-1", rows[1][11])
	assert.Equal(t, "TS-2", rows[2][11])
	assert.Equal(t, "zara okafor", rows[3][0])

	// The input slice itself is untouched.
	assert.Equal(t, "TS-3", records[0].TimesheetRef)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "generic_payroll_2025-04-13.csv", payroll.ExportFilename("", "2025-04-13"))
	assert.Equal(t, "sagepay_payroll_2025-04-13.csv", payroll.ExportFilename("SagePay", "2025-04-13"))
	assert.Equal(t, "generic_payroll_all.csv", payroll.ExportFilename("generic", ""))
}

func TestExportXLSX_HeaderAndCells(t *testing.T) {
	out, err := payroll.ExportXLSX([]payroll.Record{exportRecord("1", "Ada Byrne", "TS-1")}, payroll.FormatGeneric)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Payroll", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Contractor Name", header)

	name, err := f.GetCellValue("Payroll", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Ada Byrne", name)

	client, err := f.GetCellValue("Payroll", "I2")
	require.NoError(t, err)
	assert.Equal(t, "Acme, Inc.", client)
}
