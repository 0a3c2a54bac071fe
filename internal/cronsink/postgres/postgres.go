// Package postgres implements a cronsink.Sink backed by PostgreSQL via
// pgx/v5's stdlib driver, adapted from the teacher's internal/history/sqlsink.go.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// Sink appends completed executions to a cron_execution_history table.
type Sink struct {
	db *sql.DB
}

// New opens (and migrates) a sink against the given Postgres DSN.
func New(dsn string) (*Sink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &Sink{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cron_execution_history(
			id BIGSERIAL PRIMARY KEY,
			job_id TEXT NOT NULL,
			job_name TEXT NOT NULL,
			execution_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			data JSONB NOT NULL
		);`)
	return err
}

func (s *Sink) Send(ctx context.Context, job *cronmodel.CronJob, exec *cronmodel.JobExecution) error {
	if job == nil || exec == nil {
		return errors.New("nil job or execution")
	}
	b, err := json.Marshal(exec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cron_execution_history(job_id, job_name, execution_id, status, started_at, finished_at, data)
		VALUES($1,$2,$3,$4,$5,$6,$7);`,
		job.ID, job.Name, exec.ID, string(exec.Status), exec.StartedAt.UTC(), exec.FinishedAt.UTC(), string(b))
	return err
}

func (s *Sink) Close() error { return s.db.Close() }
