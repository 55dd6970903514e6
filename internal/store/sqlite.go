package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/audit-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS customers (
	id               TEXT PRIMARY KEY,
	slug             TEXT NOT NULL UNIQUE,
	company_name     TEXT NOT NULL,
	contact_name     TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL,
	phone            TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL,
	industry         TEXT NOT NULL DEFAULT '',
	location         TEXT NOT NULL DEFAULT '',
	competitors      TEXT NOT NULL DEFAULT '[]',
	target_keywords  TEXT NOT NULL DEFAULT '[]',
	status           TEXT NOT NULL DEFAULT 'queued',
	progress         INTEGER NOT NULL DEFAULT 0,
	status_message   TEXT NOT NULL DEFAULT '',
	result_id        TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL,
	audit_started_at DATETIME,
	audit_ended_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_customers_status ON customers(status);
CREATE INDEX IF NOT EXISTS idx_customers_name_lc ON customers(lower(company_name));
CREATE INDEX IF NOT EXISTS idx_customers_email_lc ON customers(lower(email));

CREATE TABLE IF NOT EXISTS audit_jobs (
	id           TEXT PRIMARY KEY,
	customer_id  TEXT NOT NULL REFERENCES customers(id),
	status       TEXT NOT NULL DEFAULT 'queued',
	stage_index  INTEGER NOT NULL DEFAULT 0,
	progress     INTEGER NOT NULL DEFAULT 0,
	stage_errors TEXT NOT NULL DEFAULT '[]',
	created_at   DATETIME NOT NULL,
	started_at   DATETIME,
	ended_at     DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_one_active
	ON audit_jobs(customer_id) WHERE status IN ('queued', 'processing');
CREATE INDEX IF NOT EXISTS idx_jobs_customer ON audit_jobs(customer_id);

CREATE TABLE IF NOT EXISTS audit_results (
	id           TEXT PRIMARY KEY,
	customer_id  TEXT NOT NULL REFERENCES customers(id),
	job_id       TEXT NOT NULL,
	data         TEXT NOT NULL,
	generated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_customer ON audit_results(customer_id, generated_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateOrGetCustomer inserts c unless a customer with the same company name
// or email (case-insensitive) already exists, in which case the existing
// record is returned unchanged. The second return value reports whether a new
// record was created.
func (s *SQLiteStore) CreateOrGetCustomer(ctx context.Context, c model.Customer) (*model.Customer, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		customerSelect+` WHERE lower(company_name) = lower(?) OR lower(email) = lower(?) LIMIT 1`,
		c.CompanyName, c.Email,
	)
	existing, err := scanCustomer(row)
	if err == nil {
		return existing, false, nil
	}
	if !eris.Is(err, ErrNotFound) {
		return nil, false, err
	}

	c.ID = uuid.New().String()
	c.Slug = uniqueSlug(ctx, tx, c.Slug, c.ID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt

	competitorsJSON, keywordsJSON, err := marshalCustomerLists(c)
	if err != nil {
		return nil, false, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO customers (id, slug, company_name, contact_name, email, phone, website,
			industry, location, competitors, target_keywords, status, progress, status_message,
			result_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Slug, c.CompanyName, c.ContactName, c.Email, c.Phone, c.Website,
		c.Industry, c.Location, competitorsJSON, keywordsJSON, string(c.Status), c.Progress,
		c.StatusMessage, c.ResultID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: insert customer")
	}

	if err := tx.Commit(); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: commit")
	}
	return &c, true, nil
}

// uniqueSlug appends an id fragment when two distinct companies collapse to
// the same slug.
func uniqueSlug(ctx context.Context, tx *sql.Tx, slug, id string) string {
	if slug == "" {
		slug = "customer"
	}
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM customers WHERE slug = ?`, slug,
	).Scan(&n); err == nil && n > 0 {
		return slug + "-" + id[:8]
	}
	return slug
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	row := s.db.QueryRowContext(ctx, customerSelect+` WHERE id = ?`, id)
	return scanCustomer(row)
}

func (s *SQLiteStore) GetCustomerBySlug(ctx context.Context, slug string) (*model.Customer, error) {
	row := s.db.QueryRowContext(ctx, customerSelect+` WHERE slug = ?`, slug)
	return scanCustomer(row)
}

func (s *SQLiteStore) UpdateCustomerStatus(ctx context.Context, id string, status model.CustomerStatus, progress int, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE customers SET status = ?, progress = ?, status_message = ?, updated_at = ? WHERE id = ?`,
		string(status), progress, message, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update customer status %s", id)
	}
	return checkRowsAffected(res, "customer", id)
}

func (s *SQLiteStore) MarkAuditStarted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE customers SET status = ?, progress = 0, audit_started_at = ?, audit_ended_at = NULL, updated_at = ? WHERE id = ?`,
		string(model.CustomerStatusProcessing), now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark audit started %s", id)
	}
	return checkRowsAffected(res, "customer", id)
}

// CompleteCustomerAudit atomically flips the customer to completed and swaps
// in the new result pointer.
func (s *SQLiteStore) CompleteCustomerAudit(ctx context.Context, id, resultID string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE customers SET status = ?, progress = 100, status_message = '', result_id = ?,
			audit_ended_at = ?, updated_at = ? WHERE id = ?`,
		string(model.CustomerStatusCompleted), resultID, now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete customer audit %s", id)
	}
	return checkRowsAffected(res, "customer", id)
}

func (s *SQLiteStore) ListCustomers(ctx context.Context, filter CustomerFilter) ([]model.Customer, error) {
	query := customerSelect + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Search != "" {
		needle := "%" + strings.ToLower(filter.Search) + "%"
		query += ` AND (lower(company_name) LIKE ? OR lower(email) LIKE ? OR lower(website) LIKE ?
			OR lower(industry) LIKE ? OR lower(location) LIKE ?)`
		args = append(args, needle, needle, needle, needle, needle)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	if !filter.CreatedBefore.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, filter.CreatedBefore.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list customers")
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, eris.Wrap(rows.Err(), "sqlite: list customers iterate")
}

func (s *SQLiteStore) CreateJob(ctx context.Context, customerID string) (*model.AuditJob, error) {
	job := model.AuditJob{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Status:     model.JobStatusQueued,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_jobs (id, customer_id, status, stage_index, progress, stage_errors, created_at)
		 VALUES (?, ?, ?, 0, 0, '[]', ?)`,
		job.ID, job.CustomerID, string(job.Status), job.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert job for customer %s", customerID)
	}
	return &job, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.AuditJob, error) {
	row := s.db.QueryRowContext(ctx, jobSelect+` WHERE id = ?`, id)
	return scanJob(row)
}

// GetActiveJob returns the queued or processing job for a customer, or
// ErrNotFound when no active job exists.
func (s *SQLiteStore) GetActiveJob(ctx context.Context, customerID string) (*model.AuditJob, error) {
	row := s.db.QueryRowContext(ctx,
		jobSelect+` WHERE customer_id = ? AND status IN ('queued', 'processing') LIMIT 1`,
		customerID,
	)
	return scanJob(row)
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.AuditJob) error {
	errorsJSON, err := json.Marshal(job.StageErrors)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stage errors")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE audit_jobs SET status = ?, stage_index = ?, progress = ?, stage_errors = ?,
			started_at = ?, ended_at = ? WHERE id = ?`,
		string(job.Status), job.StageIndex, job.Progress, string(errorsJSON),
		nullTime(job.StartedAt), nullTime(job.EndedAt), job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", job.ID)
	}
	return checkRowsAffected(res, "job", job.ID)
}

func (s *SQLiteStore) SaveResult(ctx context.Context, result *model.AuditResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.GeneratedAt.IsZero() {
		result.GeneratedAt = time.Now().UTC()
	}
	data, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_results (id, customer_id, job_id, data, generated_at) VALUES (?, ?, ?, ?, ?)`,
		result.ID, result.CustomerID, result.JobID, string(data), result.GeneratedAt,
	)
	return eris.Wrap(err, "sqlite: insert result")
}

func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*model.AuditResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM audit_results WHERE id = ?`, id)
	return scanResult(row)
}

func (s *SQLiteStore) GetLatestResult(ctx context.Context, customerID string) (*model.AuditResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM audit_results WHERE customer_id = ? ORDER BY generated_at DESC LIMIT 1`,
		customerID,
	)
	return scanResult(row)
}

// helpers

const customerSelect = `SELECT id, slug, company_name, contact_name, email, phone, website,
	industry, location, competitors, target_keywords, status, progress, status_message,
	result_id, created_at, updated_at, audit_started_at, audit_ended_at FROM customers`

const jobSelect = `SELECT id, customer_id, status, stage_index, progress, stage_errors,
	created_at, started_at, ended_at FROM audit_jobs`

func marshalCustomerLists(c model.Customer) (string, string, error) {
	competitors, err := json.Marshal(orEmpty(c.Competitors))
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal competitors")
	}
	keywords, err := json.Marshal(orEmpty(c.TargetKeywords))
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal target keywords")
	}
	return string(competitors), string(keywords), nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCustomer(row scannable) (*model.Customer, error) {
	var c model.Customer
	var competitorsJSON, keywordsJSON string
	var startedAt, endedAt sql.NullTime

	err := row.Scan(&c.ID, &c.Slug, &c.CompanyName, &c.ContactName, &c.Email, &c.Phone,
		&c.Website, &c.Industry, &c.Location, &competitorsJSON, &keywordsJSON,
		&c.Status, &c.Progress, &c.StatusMessage, &c.ResultID,
		&c.CreatedAt, &c.UpdatedAt, &startedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "customer")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan customer")
	}

	if err := json.Unmarshal([]byte(competitorsJSON), &c.Competitors); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal competitors")
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &c.TargetKeywords); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal target keywords")
	}
	if startedAt.Valid {
		t := startedAt.Time
		c.AuditStartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		c.AuditEndedAt = &t
	}
	return &c, nil
}

func scanJob(row scannable) (*model.AuditJob, error) {
	var j model.AuditJob
	var errorsJSON string
	var startedAt, endedAt sql.NullTime

	err := row.Scan(&j.ID, &j.CustomerID, &j.Status, &j.StageIndex, &j.Progress,
		&errorsJSON, &j.CreatedAt, &startedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "job")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	if err := json.Unmarshal([]byte(errorsJSON), &j.StageErrors); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal stage errors")
	}
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		j.EndedAt = &t
	}
	return &j, nil
}

func scanResult(row scannable) (*model.AuditResult, error) {
	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "result")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan result")
	}
	var r model.AuditResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &r, nil
}
