/*
export_xlsx.go - Excel variant of the payroll extract

The admin dashboards offer the same extract as a workbook for clients who
post-process in Excel. Same 12 columns, same sort order as the CSV; numeric
cells are written as numbers so spreadsheet sums work out of the box.
*/
package payroll

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Payroll"

// ExportXLSX renders the extract as an .xlsx workbook.
func ExportXLSX(records []Record, format string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", xlsxSheet)

	for i, col := range exportColumns {
		cellRef, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, eris.Wrap(err, "xlsx export: header cell")
		}
		if err := f.SetCellValue(xlsxSheet, cellRef, col); err != nil {
			return nil, eris.Wrap(err, "xlsx export: write header")
		}
	}

	for rowIdx, r := range SortForExport(records) {
		values := []any{
			r.ContractorName,
			r.ContractorEmail,
			r.WeekEnding,
			r.StdHours.InexactFloat64(),
			r.OtHours.InexactFloat64(),
			r.RateStd.InexactFloat64(),
			r.RateOt.InexactFloat64(),
			r.PayAmount.InexactFloat64(),
			r.ClientName,
			r.ProjectName,
			r.AssignmentRef,
			r.TimesheetRef,
		}
		for colIdx, v := range values {
			cellRef, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, eris.Wrap(err, "xlsx export: cell name")
			}
			if err := f.SetCellValue(xlsxSheet, cellRef, v); err != nil {
				return nil, eris.Wrapf(err, "xlsx export: write row %s", r.ID)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "xlsx export: serialize")
	}
	return buf.Bytes(), nil
}

// ExportXLSXFilename names the workbook download for a format and scope.
func ExportXLSXFilename(format, weekEnding string) string {
	if weekEnding == "" {
		weekEnding = "all"
	}
	return normalizeFormat(format) + "_payroll_" + weekEnding + ".xlsx"
}
