/*
seed.go - Demo dataset loader

Loads a small but representative back-office dataset: two clients, three
contractors, four assignments, and a week of timesheets covering the edge
cases the payroll screens exercise (non-GBP currency, day-column hours,
stored amount overrides, an unapproved sheet).
*/
package sqlite

import (
	"context"

	"github.com/rotisserie/eris"
)

// SeedWeek is the week-ending date the demo timesheets land on.
const SeedWeek = "2025-04-13"

// Seed loads the demo dataset. Existing rows with the same ids are replaced.
func (s *Store) Seed(ctx context.Context) error {
	clients := []Client{
		{ID: "cl-acme", Name: "Acme, Inc."},
		{ID: "cl-globex", Name: "Globex Ltd"},
	}
	for _, c := range clients {
		if _, err := s.SaveClient(ctx, c); err != nil {
			return eris.Wrap(err, "seed: clients")
		}
	}

	projects := []Project{
		{ID: "pr-acme-erp", ClientID: "cl-acme", Name: "ERP Rollout"},
		{ID: "pr-globex-dc", ClientID: "cl-globex", Name: "Datacentre Move"},
	}
	for _, p := range projects {
		if _, err := s.SaveProject(ctx, p); err != nil {
			return eris.Wrap(err, "seed: projects")
		}
	}

	contractors := []Contractor{
		{ID: "co-ada", Name: "Ada Byrne", Email: "ada@contractors.example"},
		{ID: "co-brendan", Name: "Brendan Kerr", Email: "brendan@contractors.example"},
		{ID: "co-carol", Name: "Carol Nowak", Email: "carol@contractors.example"},
	}
	for _, c := range contractors {
		if _, err := s.SaveContractor(ctx, c); err != nil {
			return eris.Wrap(err, "seed: contractors")
		}
	}

	assignments := []Assignment{
		{ID: "as-1001", Ref: "ASN-1001", ContractorID: "co-ada", ProjectID: "pr-acme-erp",
			RateStd: 35, RateOt: 52.5, ChargeStd: 50, ChargeOt: 70, Currency: "GBP"},
		{ID: "as-1002", Ref: "ASN-1002", ContractorID: "co-brendan", ProjectID: "pr-acme-erp",
			RateStd: 40, RateOt: 60, ChargeStd: 55, ChargeOt: 75, Currency: "GBP"},
		{ID: "as-1003", Ref: "ASN-1003", ContractorID: "co-carol", ProjectID: "pr-globex-dc",
			RateStd: 45, RateOt: 0, ChargeStd: 62, ChargeOt: 0, Currency: "EUR"},
		{ID: "as-1004", Ref: "ASN-1004", ContractorID: "co-ada", ProjectID: "pr-globex-dc",
			RateStd: 38, RateOt: 57, ChargeStd: 52, ChargeOt: 70, Currency: "GBP"},
	}
	for _, a := range assignments {
		if _, err := s.SaveAssignment(ctx, a); err != nil {
			return eris.Wrap(err, "seed: assignments")
		}
	}

	timesheets := []Timesheet{
		// Explicit std/ot split.
		{ID: "ts-9001", AssignmentID: "as-1001", TsRef: "TS-9001", WeekEnding: SeedWeek,
			Status: "approved", StdHours: 37.5, OtHours: 4},
		// Day columns only; totals derived by the normalizer.
		{ID: "ts-9002", AssignmentID: "as-1002", TsRef: "TS-9002", WeekEnding: SeedWeek,
			Status: "approved",
			DayHours: map[string]float64{"h_mon": 8, "h_tue": 8, "h_wed": 8, "h_thu": 8, "h_fri": 7.5}},
		// Non-GBP with a stored pay override from the upstream system.
		{ID: "ts-9003", AssignmentID: "as-1003", TsRef: "TS-9003", WeekEnding: SeedWeek,
			Status: "approved", StdHours: 40, PayAmount: 1850, Currency: "EUR"},
		// Submitted but not yet approved.
		{ID: "ts-9004", AssignmentID: "as-1004", TsRef: "TS-9004", WeekEnding: SeedWeek,
			Status: "submitted", StdHours: 24},
	}
	for _, t := range timesheets {
		if _, err := s.SaveTimesheet(ctx, t); err != nil {
			return eris.Wrap(err, "seed: timesheets")
		}
	}

	return nil
}
