/*
fallback.go - Static fallback dataset for degraded read paths

When the backing store is unreachable or its schema has drifted, the
preview/summary/export reads serve this canned dataset instead of failing
hard. Responses built from it carry source "fallback" plus a warning so the
dashboards (and tests) can tell degraded data from live data. The mark-paid
write path never uses this - writes cannot be faked.
*/
package api

import (
	"github.com/staffdesk/payroll-engine/payroll"
)

const fallbackWarning = "backing store unavailable; serving static fallback dataset"

// fallbackRows is a tiny representative week in the legacy flat row shape.
var fallbackRows = []payroll.RawRecord{
	{
		"id": "fb-1", "ts_ref": "TS-FB-1", "assignment_ref": "ASN-FB-1",
		"contractor_id": "co-fb-1", "contractor_name": "Fallback Contractor A",
		"contractor_email": "a@fallback.example",
		"client_id":        "cl-fb-1", "client_name": "Fallback Client",
		"project_id": "pr-fb-1", "project_name": "Fallback Project",
		"week_ending": "2025-04-13", "status": "approved",
		"std_hours": 37.5, "rate_std": 30.0, "charge_std": 42.0,
	},
	{
		"id": "fb-2", "ts_ref": "TS-FB-2", "assignment_ref": "ASN-FB-2",
		"contractor_id": "co-fb-2", "contractor_name": "Fallback Contractor B",
		"contractor_email": "b@fallback.example",
		"client_id":        "cl-fb-1", "client_name": "Fallback Client",
		"project_id": "pr-fb-1", "project_name": "Fallback Project",
		"week_ending": "2025-04-13", "status": "approved",
		"std_hours": 40.0, "ot_hours": 2.0,
		"rate_std": 28.0, "rate_ot": 42.0, "charge_std": 40.0, "charge_ot": 55.0,
	},
}

// fallbackDataset filters the canned rows to the requested scope and tags
// the result.
func fallbackDataset(scope payroll.Scope, anchor string) payroll.Dataset {
	var records []payroll.Record
	for _, raw := range fallbackRows {
		r := payroll.Normalize(raw, anchor)
		if scope.WeekEnding != "" && r.WeekEnding != scope.WeekEnding {
			continue
		}
		if scope.ClientID != "" && r.ClientID != scope.ClientID {
			continue
		}
		records = append(records, r)
	}
	return payroll.Dataset{
		Records: records,
		Source:  payroll.SourceFallback,
		Warning: fallbackWarning,
	}
}
