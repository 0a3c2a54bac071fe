package cronstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// SQLStore is a relational Store backing SQLite (modernc.org/sqlite) or
// Postgres (pgx stdlib driver), selected by dialect. Job and execution
// records are stored as JSON blobs alongside indexed id/name columns,
// mirroring the teacher's internal/history SQLSink's dialect-switch idiom
// while keeping the full CronJob/JobExecution round-trip exact (see spec §8
// round-trip property) instead of exploding into per-field columns.
type SQLStore struct {
	db           *sql.DB
	dialect      string // "sqlite" or "postgres"
	historyLimit int
}

// NewSQLiteStore opens (and migrates) a SQLite-backed store at path
// (":memory:" or a file path).
func NewSQLiteStore(path string, historyLimit int) (*SQLStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %s", cronmodel.ErrStorageError, err)
	}
	db.SetMaxOpenConns(1)
	return newSQLStore(db, "sqlite", historyLimit)
}

// NewPostgresStore opens (and migrates) a Postgres-backed store from dsn.
func NewPostgresStore(dsn string, historyLimit int) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %s", cronmodel.ErrStorageError, err)
	}
	return newSQLStore(db, "postgres", historyLimit)
}

func newSQLStore(db *sql.DB, dialect string, historyLimit int) (*SQLStore, error) {
	if historyLimit <= 0 {
		historyLimit = cronmodel.DefaultHistoryLimit
	}
	s := &SQLStore{db: db, dialect: dialect, historyLimit: historyLimit}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %s", cronmodel.ErrStorageError, dialect, err)
	}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	var stmts []string
	if s.dialect == "sqlite" {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS cron_jobs(
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				data TEXT NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS cron_executions(
				id TEXT PRIMARY KEY,
				job_id TEXT NOT NULL,
				started_at TIMESTAMP NOT NULL,
				data TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_cron_executions_job ON cron_executions(job_id, started_at);`,
		}
	} else {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS cron_jobs(
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				data JSONB NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS cron_executions(
				id TEXT PRIMARY KEY,
				job_id TEXT NOT NULL,
				started_at TIMESTAMPTZ NOT NULL,
				data JSONB NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_cron_executions_job ON cron_executions(job_id, started_at);`,
		}
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("%w: ensure schema: %s", cronmodel.ErrStorageError, err)
		}
	}
	return nil
}

// placeholder returns the dialect-appropriate positional placeholder.
func (s *SQLStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) SaveJob(ctx context.Context, job *cronmodel.CronJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: marshal job: %s", cronmodel.ErrStorageError, err)
	}
	var q string
	if s.dialect == "sqlite" {
		q = `INSERT INTO cron_jobs(id, name, data) VALUES(?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name=excluded.name, data=excluded.data`
	} else {
		q = `INSERT INTO cron_jobs(id, name, data) VALUES($1, $2, $3)
			ON CONFLICT(id) DO UPDATE SET name=excluded.name, data=excluded.data`
	}
	if _, err := s.db.ExecContext(ctx, q, job.ID, job.Name, string(b)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: name %q", cronmodel.ErrJobExists, job.Name)
		}
		return fmt.Errorf("%w: save job: %s", cronmodel.ErrStorageError, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func (s *SQLStore) scanJob(row interface {
	Scan(dest ...any) error
}) (*cronmodel.CronJob, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load job: %s", cronmodel.ErrStorageError, err)
	}
	var job cronmodel.CronJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("%w: unmarshal job: %s", cronmodel.ErrStorageError, err)
	}
	return &job, nil
}

func (s *SQLStore) LoadJob(ctx context.Context, id string) (*cronmodel.CronJob, error) {
	q := fmt.Sprintf("SELECT data FROM cron_jobs WHERE id = %s", s.placeholder(1))
	return s.scanJob(s.db.QueryRowContext(ctx, q, id))
}

func (s *SQLStore) FindJobByName(ctx context.Context, name string) (*cronmodel.CronJob, error) {
	q := fmt.Sprintf("SELECT data FROM cron_jobs WHERE name = %s", s.placeholder(1))
	return s.scanJob(s.db.QueryRowContext(ctx, q, name))
}

func (s *SQLStore) ListJobs(ctx context.Context) ([]*cronmodel.CronJob, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM cron_jobs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: list jobs: %s", cronmodel.ErrStorageError, err)
	}
	defer func() { _ = rows.Close() }()
	var out []*cronmodel.CronJob
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%w: scan job: %s", cronmodel.ErrStorageError, err)
		}
		var job cronmodel.CronJob
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return nil, fmt.Errorf("%w: unmarshal job: %s", cronmodel.ErrStorageError, err)
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteJob(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM cron_jobs WHERE id = %s", s.placeholder(1))
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("%w: delete job: %s", cronmodel.ErrStorageError, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", cronmodel.ErrJobNotFound, id)
	}
	qe := fmt.Sprintf("DELETE FROM cron_executions WHERE job_id = %s", s.placeholder(1))
	if _, err := s.db.ExecContext(ctx, qe, id); err != nil {
		return fmt.Errorf("%w: delete executions: %s", cronmodel.ErrStorageError, err)
	}
	return nil
}

func (s *SQLStore) SaveExecution(ctx context.Context, exec *cronmodel.JobExecution) error {
	b, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("%w: marshal execution: %s", cronmodel.ErrStorageError, err)
	}
	var q string
	if s.dialect == "sqlite" {
		q = `INSERT INTO cron_executions(id, job_id, started_at, data) VALUES(?, ?, ?, ?)`
	} else {
		q = `INSERT INTO cron_executions(id, job_id, started_at, data) VALUES($1, $2, $3, $4)`
	}
	if _, err := s.db.ExecContext(ctx, q, exec.ID, exec.JobID, exec.StartedAt.UTC(), string(b)); err != nil {
		return fmt.Errorf("%w: save execution: %s", cronmodel.ErrStorageError, err)
	}
	return s.trimExecutions(ctx, exec.JobID)
}

// trimExecutions deletes the oldest rows beyond historyLimit for a job.
func (s *SQLStore) trimExecutions(ctx context.Context, jobID string) error {
	var q string
	if s.dialect == "sqlite" {
		q = `DELETE FROM cron_executions WHERE job_id = ? AND id NOT IN (
			SELECT id FROM cron_executions WHERE job_id = ? ORDER BY started_at DESC LIMIT ?)`
		if _, err := s.db.ExecContext(ctx, q, jobID, jobID, s.historyLimit); err != nil {
			return fmt.Errorf("%w: trim executions: %s", cronmodel.ErrStorageError, err)
		}
		return nil
	}
	q = `DELETE FROM cron_executions WHERE job_id = $1 AND id NOT IN (
		SELECT id FROM cron_executions WHERE job_id = $1 ORDER BY started_at DESC LIMIT $2)`
	if _, err := s.db.ExecContext(ctx, q, jobID, s.historyLimit); err != nil {
		return fmt.Errorf("%w: trim executions: %s", cronmodel.ErrStorageError, err)
	}
	return nil
}

func (s *SQLStore) LoadExecutions(ctx context.Context, jobID string, limit int) ([]*cronmodel.JobExecution, error) {
	q := fmt.Sprintf("SELECT data FROM cron_executions WHERE job_id = %s ORDER BY started_at DESC LIMIT %s",
		s.placeholder(1), s.placeholder(2))
	rows, err := s.db.QueryContext(ctx, q, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: load executions: %s", cronmodel.ErrStorageError, err)
	}
	defer func() { _ = rows.Close() }()
	var out []*cronmodel.JobExecution
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%w: scan execution: %s", cronmodel.ErrStorageError, err)
		}
		var exec cronmodel.JobExecution
		if err := json.Unmarshal([]byte(data), &exec); err != nil {
			return nil, fmt.Errorf("%w: unmarshal execution: %s", cronmodel.ErrStorageError, err)
		}
		out = append(out, &exec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error { return s.db.Close() }
