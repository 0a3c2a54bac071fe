// Package sqlite implements a cronsink.Sink backed by an on-disk SQLite
// database, adapted from the teacher's internal/history/sqlsink.go.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// Sink appends completed executions to a cron_execution_history table.
type Sink struct {
	db *sql.DB
}

// New opens (and migrates) a sink at dsn, which may be "sqlite://<path>" or
// a bare file path ("" / ":memory:" default to in-memory).
func New(dsn string) (*Sink, error) {
	path := strings.TrimPrefix(strings.TrimSpace(dsn), "sqlite://")
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
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
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL,
			job_name TEXT NOT NULL,
			execution_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			data TEXT NOT NULL
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
		VALUES(?, ?, ?, ?, ?, ?, ?);`,
		job.ID, job.Name, exec.ID, string(exec.Status), exec.StartedAt.UTC(), exec.FinishedAt.UTC(), string(b))
	return err
}

func (s *Sink) Close() error { return s.db.Close() }
