/*
fiscal.go - Fiscal week calculator

PURPOSE:
  Converts a week-ending date into an integer week number relative to a
  configured "week 1" anchor date. Week numbers bucket timesheets into
  payroll reporting periods.

ALGORITHM:
  weekNo = floor((weekEnding - anchor) / 7 days) + 1

  The week ending on the anchor date itself is week 1. Dates are compared at
  day granularity (UTC midnight) so a time-of-day or timezone component on
  either input cannot shift the bucket.

FAILURE SEMANTICS:
  Malformed input yields nil, never an error or panic. A record with a nil
  week number simply falls out of the per-week buckets.
*/
package payroll

import (
	"time"
)

// DefaultFiscalAnchor is the week-ending date of fiscal week 1 when no
// anchor has been configured: the first Sunday of the UK tax year.
const DefaultFiscalAnchor = "2025-04-06"

// dayFormats are the accepted week-ending encodings, tried in order.
var dayFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// FiscalWeek returns the week number for weekEnding relative to anchor, or
// nil if either date fails to parse. An empty anchor means the default.
func FiscalWeek(weekEnding, anchor string) *int {
	if anchor == "" {
		anchor = DefaultFiscalAnchor
	}
	we, ok := parseDay(weekEnding)
	if !ok {
		return nil
	}
	an, ok := parseDay(anchor)
	if !ok {
		return nil
	}

	days := int(we.Sub(an).Hours() / 24)
	n := floorDiv(days, 7) + 1
	return &n
}

// parseDay parses a date-ish string and truncates it to UTC midnight.
func parseDay(s string) (time.Time, bool) {
	for _, layout := range dayFormats {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// floorDiv divides rounding toward negative infinity, so week numbers
// decrement cleanly for dates before the anchor.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
