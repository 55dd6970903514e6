package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/model"
)

// Pool abstracts the pgx pool operations used by the store so tests can
// substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wires an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
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
	competitors      JSONB NOT NULL DEFAULT '[]',
	target_keywords  JSONB NOT NULL DEFAULT '[]',
	status           TEXT NOT NULL DEFAULT 'queued',
	progress         INTEGER NOT NULL DEFAULT 0,
	status_message   TEXT NOT NULL DEFAULT '',
	result_id        TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	audit_started_at TIMESTAMPTZ,
	audit_ended_at   TIMESTAMPTZ
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
	stage_errors JSONB NOT NULL DEFAULT '[]',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at   TIMESTAMPTZ,
	ended_at     TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_one_active
	ON audit_jobs(customer_id) WHERE status IN ('queued', 'processing');
CREATE INDEX IF NOT EXISTS idx_jobs_customer ON audit_jobs(customer_id);

CREATE TABLE IF NOT EXISTS audit_results (
	id           TEXT PRIMARY KEY,
	customer_id  TEXT NOT NULL REFERENCES customers(id),
	job_id       TEXT NOT NULL,
	data         JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_results_customer ON audit_results(customer_id, generated_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

const pgCustomerSelect = `SELECT id, slug, company_name, contact_name, email, phone, website,
	industry, location, competitors, target_keywords, status, progress, status_message,
	result_id, created_at, updated_at, audit_started_at, audit_ended_at FROM customers`

const pgJobSelect = `SELECT id, customer_id, status, stage_index, progress, stage_errors,
	created_at, started_at, ended_at FROM audit_jobs`

func (s *PostgresStore) CreateOrGetCustomer(ctx context.Context, c model.Customer) (*model.Customer, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		pgCustomerSelect+` WHERE lower(company_name) = lower($1) OR lower(email) = lower($2) LIMIT 1`,
		c.CompanyName, c.Email,
	)
	existing, err := scanPgCustomer(row)
	if err == nil {
		return existing, false, nil
	}
	if !eris.Is(err, ErrNotFound) {
		return nil, false, err
	}

	c.ID = uuid.New().String()
	if c.Slug == "" {
		c.Slug = "customer"
	}
	var slugCount int
	if err := tx.QueryRow(ctx, `SELECT COUNT(1) FROM customers WHERE slug = $1`, c.Slug).Scan(&slugCount); err == nil && slugCount > 0 {
		c.Slug = c.Slug + "-" + c.ID[:8]
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt

	competitorsJSON, err := json.Marshal(orEmpty(c.Competitors))
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: marshal competitors")
	}
	keywordsJSON, err := json.Marshal(orEmpty(c.TargetKeywords))
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: marshal target keywords")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO customers (id, slug, company_name, contact_name, email, phone, website,
			industry, location, competitors, target_keywords, status, progress, status_message,
			result_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.ID, c.Slug, c.CompanyName, c.ContactName, c.Email, c.Phone, c.Website,
		c.Industry, c.Location, competitorsJSON, keywordsJSON, string(c.Status), c.Progress,
		c.StatusMessage, c.ResultID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: insert customer")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, eris.Wrap(err, "postgres: commit")
	}
	return &c, true, nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	return scanPgCustomer(s.pool.QueryRow(ctx, pgCustomerSelect+` WHERE id = $1`, id))
}

func (s *PostgresStore) GetCustomerBySlug(ctx context.Context, slug string) (*model.Customer, error) {
	return scanPgCustomer(s.pool.QueryRow(ctx, pgCustomerSelect+` WHERE slug = $1`, slug))
}

func (s *PostgresStore) UpdateCustomerStatus(ctx context.Context, id string, status model.CustomerStatus, progress int, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE customers SET status = $1, progress = $2, status_message = $3, updated_at = $4 WHERE id = $5`,
		string(status), progress, message, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update customer status %s", id)
	}
	return checkTag(tag, "customer", id)
}

func (s *PostgresStore) MarkAuditStarted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE customers SET status = $1, progress = 0, audit_started_at = $2, audit_ended_at = NULL, updated_at = $3 WHERE id = $4`,
		string(model.CustomerStatusProcessing), now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark audit started %s", id)
	}
	return checkTag(tag, "customer", id)
}

func (s *PostgresStore) CompleteCustomerAudit(ctx context.Context, id, resultID string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE customers SET status = $1, progress = 100, status_message = '', result_id = $2,
			audit_ended_at = $3, updated_at = $4 WHERE id = $5`,
		string(model.CustomerStatusCompleted), resultID, now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete customer audit %s", id)
	}
	return checkTag(tag, "customer", id)
}

func (s *PostgresStore) ListCustomers(ctx context.Context, filter CustomerFilter) ([]model.Customer, error) {
	query := pgCustomerSelect + ` WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.Search != "" {
		needle := "%" + strings.ToLower(filter.Search) + "%"
		p := arg(needle)
		query += ` AND (lower(company_name) LIKE ` + p + ` OR lower(email) LIKE ` + p +
			` OR lower(website) LIKE ` + p + ` OR lower(industry) LIKE ` + p +
			` OR lower(location) LIKE ` + p + `)`
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ` + arg(filter.CreatedAfter.UTC())
	}
	if !filter.CreatedBefore.IsZero() {
		query += ` AND created_at < ` + arg(filter.CreatedBefore.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list customers")
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanPgCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, eris.Wrap(rows.Err(), "postgres: list customers iterate")
}

func (s *PostgresStore) CreateJob(ctx context.Context, customerID string) (*model.AuditJob, error) {
	job := model.AuditJob{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Status:     model.JobStatusQueued,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_jobs (id, customer_id, status, stage_index, progress, stage_errors, created_at)
		 VALUES ($1, $2, $3, 0, 0, '[]', $4)`,
		job.ID, job.CustomerID, string(job.Status), job.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert job for customer %s", customerID)
	}
	return &job, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.AuditJob, error) {
	return scanPgJob(s.pool.QueryRow(ctx, pgJobSelect+` WHERE id = $1`, id))
}

func (s *PostgresStore) GetActiveJob(ctx context.Context, customerID string) (*model.AuditJob, error) {
	return scanPgJob(s.pool.QueryRow(ctx,
		pgJobSelect+` WHERE customer_id = $1 AND status IN ('queued', 'processing') LIMIT 1`,
		customerID,
	))
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *model.AuditJob) error {
	errorsJSON, err := json.Marshal(job.StageErrors)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stage errors")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE audit_jobs SET status = $1, stage_index = $2, progress = $3, stage_errors = $4,
			started_at = $5, ended_at = $6 WHERE id = $7`,
		string(job.Status), job.StageIndex, job.Progress, errorsJSON,
		job.StartedAt, job.EndedAt, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", job.ID)
	}
	return checkTag(tag, "job", job.ID)
}

func (s *PostgresStore) SaveResult(ctx context.Context, result *model.AuditResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.GeneratedAt.IsZero() {
		result.GeneratedAt = time.Now().UTC()
	}
	data, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_results (id, customer_id, job_id, data, generated_at) VALUES ($1, $2, $3, $4, $5)`,
		result.ID, result.CustomerID, result.JobID, data, result.GeneratedAt,
	)
	return eris.Wrap(err, "postgres: insert result")
}

func (s *PostgresStore) GetResult(ctx context.Context, id string) (*model.AuditResult, error) {
	return scanPgResult(s.pool.QueryRow(ctx, `SELECT data FROM audit_results WHERE id = $1`, id))
}

func (s *PostgresStore) GetLatestResult(ctx context.Context, customerID string) (*model.AuditResult, error) {
	return scanPgResult(s.pool.QueryRow(ctx,
		`SELECT data FROM audit_results WHERE customer_id = $1 ORDER BY generated_at DESC LIMIT 1`,
		customerID,
	))
}

// helpers

func checkTag(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func scanPgCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	var competitorsJSON, keywordsJSON []byte

	err := row.Scan(&c.ID, &c.Slug, &c.CompanyName, &c.ContactName, &c.Email, &c.Phone,
		&c.Website, &c.Industry, &c.Location, &competitorsJSON, &keywordsJSON,
		&c.Status, &c.Progress, &c.StatusMessage, &c.ResultID,
		&c.CreatedAt, &c.UpdatedAt, &c.AuditStartedAt, &c.AuditEndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "customer")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan customer")
	}

	if err := json.Unmarshal(competitorsJSON, &c.Competitors); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal competitors")
	}
	if err := json.Unmarshal(keywordsJSON, &c.TargetKeywords); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal target keywords")
	}
	return &c, nil
}

func scanPgJob(row pgx.Row) (*model.AuditJob, error) {
	var j model.AuditJob
	var errorsJSON []byte

	err := row.Scan(&j.ID, &j.CustomerID, &j.Status, &j.StageIndex, &j.Progress,
		&errorsJSON, &j.CreatedAt, &j.StartedAt, &j.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "job")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan job")
	}

	if err := json.Unmarshal(errorsJSON, &j.StageErrors); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal stage errors")
	}
	return &j, nil
}

func scanPgResult(row pgx.Row) (*model.AuditResult, error) {
	var data []byte
	err := row.Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "result")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan result")
	}
	var r model.AuditResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &r, nil
}
