/*
Package sqlite provides the SQLite-backed store for the back-office.

PURPOSE:
  Persists the staffing entities (clients, projects, contractors,
  assignments, timesheets) and serves the payroll pipeline two contracts:
  the joined timesheet query producing raw rows for the normalizer, and the
  payroll-status update used by the mark-paid processor. In production the
  same patterns apply to a hosted Postgres - only dialect differences.

KEY TABLES:
  clients, projects, contractors, assignments, timesheets, settings

JOINED QUERY SHAPE:
  QueryTimesheets returns rows with the joined assignment/project/client
  entities nested under the timesheet, the same shape older API generations
  emitted. The normalizer's candidate-path resolver consumes both this and
  the flat legacy shape.

SCHEMA DRIFT:
  UpdateTimesheetPayroll surfaces "no such column" driver errors as
  *payroll.SchemaDriftError so the mark-paid write path can strip the
  offending field and retry.

CONCURRENCY:
  sync.RWMutex around the connection; WAL mode for concurrent readers.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"github.com/staffdesk/payroll-engine/payroll"
)

// Store implements the persistence layer on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at path. Use ":memory:" for tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_client ON projects(client_id);

	CREATE TABLE IF NOT EXISTS contractors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		ref TEXT,
		contractor_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		rate_std REAL DEFAULT 0,
		rate_ot REAL DEFAULT 0,
		charge_std REAL DEFAULT 0,
		charge_ot REAL DEFAULT 0,
		currency TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assignments_contractor ON assignments(contractor_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_project ON assignments(project_id);

	CREATE TABLE IF NOT EXISTS timesheets (
		id TEXT PRIMARY KEY,
		assignment_id TEXT NOT NULL,
		ts_ref TEXT,
		week_ending TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		payroll_status TEXT NOT NULL DEFAULT 'draft',
		h_mon REAL, h_tue REAL, h_wed REAL, h_thu REAL,
		h_fri REAL, h_sat REAL, h_sun REAL,
		std_hours REAL,
		ot_hours REAL,
		total_hours REAL,
		pay_amount REAL,
		charge_amount REAL,
		gp_amount REAL,
		currency TEXT,
		payroll_batch TEXT,
		paid_at TEXT,
		payment_reference TEXT,
		payroll_meta_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_timesheets_week ON timesheets(week_ending);
	CREATE INDEX IF NOT EXISTS idx_timesheets_assignment ON timesheets(assignment_id);
	CREATE INDEX IF NOT EXISTS idx_timesheets_payroll_status ON timesheets(payroll_status);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTITY RECORDS
// =============================================================================

type Client struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Project struct {
	ID        string
	ClientID  string
	Name      string
	CreatedAt time.Time
}

type Contractor struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

type Assignment struct {
	ID           string
	Ref          string
	ContractorID string
	ProjectID    string
	RateStd      float64
	RateOt       float64
	ChargeStd    float64
	ChargeOt     float64
	Currency     string
	CreatedAt    time.Time
}

// Timesheet is the write-side row. Derived figures are recomputed by the
// normalizer on read; stored amounts act as upstream overrides when nonzero.
type Timesheet struct {
	ID            string
	AssignmentID  string
	TsRef         string
	WeekEnding    string
	Status        string
	PayrollStatus string
	DayHours      map[string]float64 // keyed h_mon..h_sun
	StdHours      float64
	OtHours       float64
	TotalHours    float64
	PayAmount     float64
	ChargeAmount  float64
	GpAmount      float64
	Currency      string
}

// =============================================================================
// CRUD
// =============================================================================

func (s *Store) SaveClient(ctx context.Context, c Client) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO clients (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Client{}, eris.Wrap(err, "sqlite: save client")
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM clients ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clients")
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		var created string
		if err := rows.Scan(&c.ID, &c.Name, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client")
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SaveProject(ctx context.Context, p Project) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO projects (id, client_id, name, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.ClientID, p.Name, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Project{}, eris.Wrap(err, "sqlite: save project")
	}
	return p, nil
}

func (s *Store) SaveContractor(ctx context.Context, c Contractor) (Contractor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO contractors (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Contractor{}, eris.Wrap(err, "sqlite: save contractor")
	}
	return c, nil
}

func (s *Store) ListContractors(ctx context.Context) ([]Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(email, ''), created_at FROM contractors ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contractors")
	}
	defer rows.Close()

	var out []Contractor
	for rows.Next() {
		var c Contractor
		var created string
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contractor")
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SaveAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO assignments
		 (id, ref, contractor_id, project_id, rate_std, rate_ot, charge_std, charge_ot, currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Ref, a.ContractorID, a.ProjectID,
		a.RateStd, a.RateOt, a.ChargeStd, a.ChargeOt, a.Currency,
		a.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Assignment{}, eris.Wrap(err, "sqlite: save assignment")
	}
	return a, nil
}

func (s *Store) ListAssignments(ctx context.Context) ([]Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(ref, ''), contractor_id, project_id,
		        rate_std, rate_ot, charge_std, charge_ot, COALESCE(currency, ''), created_at
		 FROM assignments ORDER BY ref`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assignments")
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		var created string
		if err := rows.Scan(&a.ID, &a.Ref, &a.ContractorID, &a.ProjectID,
			&a.RateStd, &a.RateOt, &a.ChargeStd, &a.ChargeOt, &a.Currency, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assignment")
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SaveTimesheet(ctx context.Context, t Timesheet) (Timesheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = "draft"
	}
	if t.PayrollStatus == "" {
		t.PayrollStatus = "draft"
	}
	now := time.Now().UTC().Format(time.RFC3339)

	day := func(col string) any {
		if v, ok := t.DayHours[col]; ok {
			return v
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO timesheets
		 (id, assignment_id, ts_ref, week_ending, status, payroll_status,
		  h_mon, h_tue, h_wed, h_thu, h_fri, h_sat, h_sun,
		  std_hours, ot_hours, total_hours, pay_amount, charge_amount, gp_amount,
		  currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AssignmentID, t.TsRef, t.WeekEnding, t.Status, t.PayrollStatus,
		day("h_mon"), day("h_tue"), day("h_wed"), day("h_thu"), day("h_fri"), day("h_sat"), day("h_sun"),
		nilIfZero(t.StdHours), nilIfZero(t.OtHours), nilIfZero(t.TotalHours),
		nilIfZero(t.PayAmount), nilIfZero(t.ChargeAmount), nilIfZero(t.GpAmount),
		nilIfEmpty(t.Currency), now, now)
	if err != nil {
		return Timesheet{}, eris.Wrap(err, "sqlite: save timesheet")
	}
	return t, nil
}

// =============================================================================
// PAYROLL CONTRACTS
// =============================================================================

// QueryTimesheets returns the joined rows in scope, shaped as the raw
// records the normalizer expects: flat timesheet fields with the joined
// assignment -> project -> client entities nested.
func (s *Store) QueryTimesheets(ctx context.Context, scope payroll.Scope) ([]payroll.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT t.id, t.ts_ref, t.week_ending, t.status, t.payroll_status,
	             t.h_mon, t.h_tue, t.h_wed, t.h_thu, t.h_fri, t.h_sat, t.h_sun,
	             t.std_hours, t.ot_hours, t.total_hours,
	             t.pay_amount, t.charge_amount, t.gp_amount, t.currency,
	             t.payroll_batch, t.paid_at, t.payment_reference, t.payroll_meta_json,
	             a.id, a.ref, a.rate_std, a.rate_ot, a.charge_std, a.charge_ot, a.currency,
	             co.id, co.name, co.email,
	             p.id, p.name,
	             c.id, c.name
	      FROM timesheets t
	      LEFT JOIN assignments a ON a.id = t.assignment_id
	      LEFT JOIN contractors co ON co.id = a.contractor_id
	      LEFT JOIN projects p ON p.id = a.project_id
	      LEFT JOIN clients c ON c.id = p.client_id
	      WHERE 1=1`
	args := []any{}
	if scope.WeekEnding != "" {
		q += ` AND t.week_ending = ?`
		args = append(args, scope.WeekEnding)
	}
	if scope.ClientID != "" {
		q += ` AND c.id = ?`
		args = append(args, scope.ClientID)
	}
	q += ` ORDER BY t.week_ending, t.ts_ref`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query timesheets")
	}
	defer rows.Close()

	var out []payroll.RawRecord
	for rows.Next() {
		var (
			id                                       string
			tsRef, weekEnding, status, pstatus       sql.NullString
			hMon, hTue, hWed, hThu, hFri, hSat, hSun sql.NullFloat64
			stdH, otH, totalH, pay, charge, gp       sql.NullFloat64
			tCurrency, batch, paidAt, payRef, meta   sql.NullString
			aID, aRef                                sql.NullString
			rateStd, rateOt, chargeStd, chargeOt     sql.NullFloat64
			aCurrency                                sql.NullString
			coID, coName, coEmail                    sql.NullString
			pID, pName                               sql.NullString
			cID, cName                               sql.NullString
		)
		if err := rows.Scan(&id, &tsRef, &weekEnding, &status, &pstatus,
			&hMon, &hTue, &hWed, &hThu, &hFri, &hSat, &hSun,
			&stdH, &otH, &totalH, &pay, &charge, &gp, &tCurrency,
			&batch, &paidAt, &payRef, &meta,
			&aID, &aRef, &rateStd, &rateOt, &chargeStd, &chargeOt, &aCurrency,
			&coID, &coName, &coEmail,
			&pID, &pName,
			&cID, &cName); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan timesheet row")
		}

		raw := payroll.RawRecord{"id": id}
		putStr(raw, "ts_ref", tsRef)
		putStr(raw, "week_ending", weekEnding)
		putStr(raw, "status", status)
		putStr(raw, "payroll_status", pstatus)
		putNum(raw, "h_mon", hMon)
		putNum(raw, "h_tue", hTue)
		putNum(raw, "h_wed", hWed)
		putNum(raw, "h_thu", hThu)
		putNum(raw, "h_fri", hFri)
		putNum(raw, "h_sat", hSat)
		putNum(raw, "h_sun", hSun)
		putNum(raw, "std_hours", stdH)
		putNum(raw, "ot_hours", otH)
		putNum(raw, "total_hours", totalH)
		putNum(raw, "pay_amount", pay)
		putNum(raw, "charge_amount", charge)
		putNum(raw, "gp_amount", gp)
		putStr(raw, "currency", tCurrency)
		putStr(raw, "payroll_batch", batch)
		putStr(raw, "paid_at", paidAt)
		putStr(raw, "payment_reference", payRef)
		if meta.Valid && meta.String != "" {
			var m map[string]any
			if err := json.Unmarshal([]byte(meta.String), &m); err == nil {
				raw["payroll_meta"] = m
			}
		}

		if aID.Valid {
			assignment := map[string]any{"id": aID.String}
			putStr(assignment, "ref", aRef)
			putNum(assignment, "rate_std", rateStd)
			putNum(assignment, "rate_ot", rateOt)
			putNum(assignment, "charge_std", chargeStd)
			putNum(assignment, "charge_ot", chargeOt)
			putStr(assignment, "currency", aCurrency)
			if coID.Valid {
				assignment["contractor_id"] = coID.String
				candidate := map[string]any{"id": coID.String}
				putStr(candidate, "name", coName)
				putStr(candidate, "email", coEmail)
				assignment["candidate"] = candidate
			}
			if pID.Valid {
				project := map[string]any{"id": pID.String}
				putStr(project, "name", pName)
				if cID.Valid {
					client := map[string]any{"id": cID.String}
					putStr(client, "name", cName)
					project["client"] = client
				}
				assignment["project"] = project
			}
			raw["assignment"] = assignment
		}

		out = append(out, raw)
	}
	return out, rows.Err()
}

// UpdateTimesheetPayroll persists payroll fields for one record. The SET
// clause is built from the field map so the drift retry can shrink it;
// unknown columns surface as *payroll.SchemaDriftError.
func (s *Store) UpdateTimesheetPayroll(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+2)
	for _, k := range keys {
		col, val := k, fields[k]
		if k == "payroll_meta" {
			col = "payroll_meta_json"
			b, err := json.Marshal(val)
			if err != nil {
				return eris.Wrap(err, "sqlite: encode payroll meta")
			}
			val = string(b)
		}
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339), id)

	q := "UPDATE timesheets SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if col, ok := driftColumn(err); ok {
			// Map the column back to the field key the caller used.
			if col == "payroll_meta_json" {
				col = "payroll_meta"
			}
			return &payroll.SchemaDriftError{Column: col, Err: err}
		}
		return eris.Wrapf(err, "sqlite: update timesheet %s", id)
	}
	return nil
}

// driftColumn extracts the offending column from a sqlite column-mismatch
// error, if that is what err is.
func driftColumn(err error) (string, bool) {
	msg := err.Error()
	for _, prefix := range []string{"no such column: ", "has no column named "} {
		if i := strings.Index(msg, prefix); i >= 0 {
			col := strings.TrimSpace(msg[i+len(prefix):])
			if j := strings.IndexAny(col, " ,;"); j > 0 {
				col = col[:j]
			}
			return col, col != ""
		}
	}
	return "", false
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSetting returns the stored value for key, or "" when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get setting %s", key)
	}
	return value, nil
}

// PutSetting upserts a setting.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return eris.Wrapf(err, "sqlite: put setting %s", key)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func putStr(m map[string]any, key string, v sql.NullString) {
	if v.Valid && v.String != "" {
		m[key] = v.String
	}
}

func putNum(m map[string]any, key string, v sql.NullFloat64) {
	if v.Valid {
		m[key] = v.Float64
	}
}

func nilIfZero(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
