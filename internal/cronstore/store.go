// Package cronstore defines the pluggable persistence contract for cron jobs
// and their executions, plus in-memory, file, SQLite, and Postgres backends
// selected through a DSN-based factory.
package cronstore

import (
	"context"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// Store is a pluggable persistence interface for CronJobs and their
// JobExecutions. Implementations must be safe for concurrent use by
// multiple goroutines and must maintain a name -> id secondary index for
// jobs.
type Store interface {
	SaveJob(ctx context.Context, job *cronmodel.CronJob) error
	LoadJob(ctx context.Context, id string) (*cronmodel.CronJob, error)
	FindJobByName(ctx context.Context, name string) (*cronmodel.CronJob, error)
	ListJobs(ctx context.Context) ([]*cronmodel.CronJob, error)
	DeleteJob(ctx context.Context, id string) error

	SaveExecution(ctx context.Context, exec *cronmodel.JobExecution) error
	LoadExecutions(ctx context.Context, jobID string, limit int) ([]*cronmodel.JobExecution, error)

	Close() error
}
