// Package cronsink fans completed JobExecutions out to external analytics
// stores, adapted from the teacher's internal/history lifecycle-event sinks.
// Sinks are a side channel: the manager's own Store write is the durable
// record; a Sink failure is logged and never fails run_job.
package cronsink

import (
	"context"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// Sink is a destination for completed executions. Implementations must be
// safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, job *cronmodel.CronJob, exec *cronmodel.JobExecution) error
	Close() error
}
