/*
export.go - Payroll CSV extract

PURPOSE:
  Serializes a filtered record set into the payroll-system-compatible CSV.
  The header is fixed at 12 columns; escaping is RFC 4180 (handled by
  encoding/csv). Records are sorted ascending by contractor name, then by
  timesheet reference, before writing.

FORMAT TAG:
  format currently controls only the filename/mime tag. The column set is
  identical for "generic" and "sagepay"; per-format column sets were never
  finished upstream, so the fixed layout is preserved deliberately.
*/
package payroll

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// FormatGeneric and FormatSagepay are the accepted export format tags.
const (
	FormatGeneric = "generic"
	FormatSagepay = "sagepay"
)

// exportColumns is the fixed extract header, in output order.
var exportColumns = []string{
	"Contractor Name",
	"Contractor Email",
	"Week Ending",
	"Std Hours",
	"OT Hours",
	"Rate Std",
	"Rate OT",
	"Pay Amount",
	"Client Name",
	"Project Name",
	"Assignment Ref",
	"Timesheet Ref",
}

// ExportCSV renders the extract. The input slice is not mutated; a sorted
// copy is written.
func ExportCSV(records []Record, format string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportColumns); err != nil {
		return nil, eris.Wrap(err, "export: write header")
	}
	for _, r := range SortForExport(records) {
		if err := w.Write(buildRow(r)); err != nil {
			return nil, eris.Wrapf(err, "export: write row %s", r.ID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: flush")
	}

	_ = normalizeFormat(format) // validated for the filename; columns are fixed
	return buf.Bytes(), nil
}

// SortForExport returns a copy sorted ascending by contractor name, then by
// timesheet reference (stable).
func SortForExport(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := strings.ToLower(sorted[i].ContractorName), strings.ToLower(sorted[j].ContractorName)
		if a != b {
			return a < b
		}
		return sorted[i].TimesheetRef < sorted[j].TimesheetRef
	})
	return sorted
}

// ExportFilename names the download artifact for a given format and scope.
func ExportFilename(format, weekEnding string) string {
	if weekEnding == "" {
		weekEnding = "all"
	}
	return fmt.Sprintf("%s_payroll_%s.csv", normalizeFormat(format), weekEnding)
}

func normalizeFormat(format string) string {
	if strings.EqualFold(format, FormatSagepay) {
		return FormatSagepay
	}
	return FormatGeneric
}

// buildRow maps one record onto the extract columns.
func buildRow(r Record) []string {
	return []string{
		r.ContractorName,
		r.ContractorEmail,
		r.WeekEnding,
		cell(r.StdHours),
		cell(r.OtHours),
		cell(r.RateStd),
		cell(r.RateOt),
		cell(r.PayAmount),
		r.ClientName,
		r.ProjectName,
		r.AssignmentRef,
		r.TimesheetRef,
	}
}

func cell(d decimal.Decimal) string {
	return d.StringFixed(2)
}
