/*
exceptions.go - Data-quality exception detector

PURPOSE:
  Scans a scope-filtered set of normalized records and flags everything a
  payroll operator should look at before exporting: missing identities,
  missing rates, negative figures, currency surprises, broken linkage,
  duplicate contractor identities, margin anomalies.

  The report is derived on every call, never persisted.

SHAPE:
  All warning types except duplicate_contractor_email are evaluated
  per-record independently. Duplicate detection is a full pass building an
  email -> contractor-id map, emitting one warning per email that appears
  under two or more distinct contractor ids.
*/
package payroll

import (
	"fmt"
	"sort"
	"strings"
)

// WarningType is the fixed set of exception kinds.
type WarningType string

const (
	WarnMissingContractor   WarningType = "missing_contractor"
	WarnMissingRateOrHours  WarningType = "missing_rate_or_hours"
	WarnNegativeValues      WarningType = "negative_values"
	WarnUnapproved          WarningType = "unapproved_timesheet"
	WarnNonGBPCurrency      WarningType = "non_gbp_currency"
	WarnMissingClient       WarningType = "missing_client"
	WarnMissingProject      WarningType = "missing_project"
	WarnDuplicateEmail      WarningType = "duplicate_contractor_email"
	WarnZeroHoursSubmitted  WarningType = "zero_hours_submitted"
	WarnMissingRefs         WarningType = "missing_refs"
	WarnMarginAnomaly       WarningType = "margin_anomaly"
)

// Warning is one flagged data-quality problem.
type Warning struct {
	Type    WarningType `json:"type"`
	Message string      `json:"message"`

	RecordID string `json:"record_id,omitempty"`

	// Set only for duplicate_contractor_email.
	Email         string   `json:"email,omitempty"`
	ContractorIDs []string `json:"contractor_ids,omitempty"`
}

// DetectExceptions scans records and returns every warning in a stable order:
// per-record warnings in input order, then duplicate-email warnings sorted by
// email. includeUnapproved suppresses the unapproved_timesheet warning when
// the caller has deliberately widened the scope.
func DetectExceptions(records []Record, includeUnapproved bool) []Warning {
	warnings := make([]Warning, 0)

	for _, r := range records {
		warnings = append(warnings, scanRecord(r, includeUnapproved)...)
	}

	warnings = append(warnings, scanDuplicateEmails(records)...)
	return warnings
}

func scanRecord(r Record, includeUnapproved bool) []Warning {
	var out []Warning
	add := func(t WarningType, msg string) {
		out = append(out, Warning{Type: t, Message: msg, RecordID: r.ID})
	}

	if r.ContractorName == "" || r.ContractorEmail == "" {
		add(WarnMissingContractor, "contractor name or email missing")
	}
	if !r.RateStd.IsPositive() || !r.TotalHours.IsPositive() {
		add(WarnMissingRateOrHours,
			fmt.Sprintf("pay rate %s / total hours %s", r.RateStd, r.TotalHours))
	}
	if r.StdHours.IsNegative() || r.OtHours.IsNegative() || r.PayAmount.IsNegative() {
		add(WarnNegativeValues, "negative hours or pay amount")
	}
	if r.Status != StatusApproved && !includeUnapproved {
		add(WarnUnapproved, fmt.Sprintf("status is %q, not approved", r.Status))
	}
	if !strings.EqualFold(r.Currency, DefaultCurrency) {
		add(WarnNonGBPCurrency, fmt.Sprintf("currency is %s", r.Currency))
	}
	if r.ClientID == "" && r.ClientName == "" {
		add(WarnMissingClient, "no client linked")
	}
	if r.ProjectID == "" && r.ProjectName == "" {
		add(WarnMissingProject, "no project linked")
	}
	if r.TotalHours.Sign() <= 0 && submittedOrLater(r.Status) {
		add(WarnZeroHoursSubmitted,
			fmt.Sprintf("zero hours on a %s timesheet", r.Status))
	}
	if r.AssignmentRef == "" || r.TimesheetRef == "" {
		add(WarnMissingRefs, "assignment or timesheet reference missing")
	}
	if r.GpAmount.IsNegative() || r.PayAmount.GreaterThan(r.ChargeAmount) {
		add(WarnMarginAnomaly,
			fmt.Sprintf("gp %s, pay %s, charge %s", r.GpAmount, r.PayAmount, r.ChargeAmount))
	}

	return out
}

func submittedOrLater(s Status) bool {
	return s == StatusSubmitted || s == StatusApproved || s == Status("paid")
}

// scanDuplicateEmails emits one warning per email that appears on records
// with two or more distinct contractor ids.
func scanDuplicateEmails(records []Record) []Warning {
	byEmail := make(map[string]map[string]struct{})
	for _, r := range records {
		email := strings.ToLower(strings.TrimSpace(r.ContractorEmail))
		if email == "" {
			continue
		}
		if byEmail[email] == nil {
			byEmail[email] = make(map[string]struct{})
		}
		if r.ContractorID != "" {
			byEmail[email][r.ContractorID] = struct{}{}
		}
	}

	var out []Warning
	for email, ids := range byEmail {
		if len(ids) < 2 {
			continue
		}
		sorted := make([]string, 0, len(ids))
		for id := range ids {
			sorted = append(sorted, id)
		}
		sort.Strings(sorted)
		out = append(out, Warning{
			Type:          WarnDuplicateEmail,
			Message:       fmt.Sprintf("%s is shared by %d contractor ids", email, len(sorted)),
			Email:         email,
			ContractorIDs: sorted,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}
