/*
aggregate.go - Reporting rollups

PURPOSE:
  Computes the preview-screen figures over a scope-filtered record set:
  grand totals, per-currency breakdown, per-contractor rollups, per-fiscal-
  week buckets, and the top-clients-by-charge view.

ORDERING:
  Contractor rollups sort ascending by contractor name (case-insensitive),
  ties broken by insertion order (stable sort). Week buckets sort by week
  number. Top clients sort descending by total charge and truncate to N.

FAILURE SEMANTICS:
  Pure; empty input yields zeroed totals and empty groupings.
*/
package payroll

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TopClientsDefault is the truncation point for the top-clients view.
const TopClientsDefault = 10

// Totals is the additive figure set shared by every rollup level.
type Totals struct {
	StdHours     decimal.Decimal
	OtHours      decimal.Decimal
	PayAmount    decimal.Decimal
	ChargeAmount decimal.Decimal
	GpAmount     decimal.Decimal
}

func (t *Totals) add(r Record) {
	t.StdHours = t.StdHours.Add(r.StdHours)
	t.OtHours = t.OtHours.Add(r.OtHours)
	t.PayAmount = t.PayAmount.Add(r.PayAmount)
	t.ChargeAmount = t.ChargeAmount.Add(r.ChargeAmount)
	t.GpAmount = t.GpAmount.Add(r.GpAmount)
}

// ContractorRollup accumulates one contractor's records. Key is the grouping
// key (contractor id, falling back to email, name, record id).
type ContractorRollup struct {
	Key   string
	Name  string
	Email string
	Totals
	Records int
}

// WeekBucket accumulates one fiscal week.
type WeekBucket struct {
	WeekNo int
	Totals
	Records int
}

// ClientCharge is one row of the top-clients view.
type ClientCharge struct {
	ClientID   string
	ClientName string
	Charge     decimal.Decimal
	Records    int
}

// Summary is the full aggregation result.
type Summary struct {
	Totals      Totals
	ByCurrency  map[string]Totals
	Contractors []ContractorRollup
	Weeks       []WeekBucket
	Records     int
}

// Aggregate rolls up a normalized, scope-filtered record set.
func Aggregate(records []Record) Summary {
	s := Summary{
		ByCurrency: make(map[string]Totals),
		Records:    len(records),
	}

	contractorIdx := make(map[string]int)
	weekIdx := make(map[int]int)

	for _, r := range records {
		s.Totals.add(r)

		cur := s.ByCurrency[r.Currency]
		cur.add(r)
		s.ByCurrency[r.Currency] = cur

		key := r.ContractorKey()
		i, ok := contractorIdx[key]
		if !ok {
			i = len(s.Contractors)
			contractorIdx[key] = i
			s.Contractors = append(s.Contractors, ContractorRollup{
				Key:   key,
				Name:  r.ContractorName,
				Email: r.ContractorEmail,
			})
		}
		s.Contractors[i].add(r)
		s.Contractors[i].Records++

		if r.WeekNo != nil {
			wi, ok := weekIdx[*r.WeekNo]
			if !ok {
				wi = len(s.Weeks)
				weekIdx[*r.WeekNo] = wi
				s.Weeks = append(s.Weeks, WeekBucket{WeekNo: *r.WeekNo})
			}
			s.Weeks[wi].add(r)
			s.Weeks[wi].Records++
		}
	}

	sort.SliceStable(s.Contractors, func(i, j int) bool {
		return strings.ToLower(s.Contractors[i].Name) < strings.ToLower(s.Contractors[j].Name)
	})
	sort.Slice(s.Weeks, func(i, j int) bool { return s.Weeks[i].WeekNo < s.Weeks[j].WeekNo })

	return s
}

// TopClientsByCharge groups by client and returns the n highest by total
// charge, descending. Pass n <= 0 for the default of 10.
func TopClientsByCharge(records []Record, n int) []ClientCharge {
	if n <= 0 {
		n = TopClientsDefault
	}

	idx := make(map[string]int)
	var out []ClientCharge
	for _, r := range records {
		key := r.ClientID
		if key == "" {
			key = r.ClientName
		}
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, ClientCharge{ClientID: r.ClientID, ClientName: r.ClientName})
		}
		out[i].Charge = out[i].Charge.Add(r.ChargeAmount)
		out[i].Records++
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Charge.GreaterThan(out[j].Charge) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
