// Package cronmgr implements the scheduler engine: the Manager public API,
// the event bus, the tick loop, and the execute_job pipeline. Grounded on
// the teacher's internal/cronjob package (Manager aggregating named jobs)
// generalized from robfig/cron-per-job scheduling to a single shared
// cronexpr-driven tick loop, as required by spec §4.4-§4.6.
package cronmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/cronsched/internal/cronexec"
	"github.com/loykin/cronsched/internal/cronexpr"
	"github.com/loykin/cronsched/internal/cronlog"
	"github.com/loykin/cronsched/internal/cronmodel"
	"github.com/loykin/cronsched/internal/cronsink"
	"github.com/loykin/cronsched/internal/cronstore"
	"github.com/loykin/cronsched/internal/crontelemetry"
)

// tickInterval is the scheduler's polling period (spec §4.6: every 60s).
const tickInterval = 60 * time.Second

// Manager is the scheduler engine. It is safe for concurrent use by
// multiple goroutines: API callers, the tick loop, and spawned executions
// all hold the same *Manager.
type Manager struct {
	store     cronstore.Store
	workspace string

	running atomic.Bool
	quit    chan struct{}
	done    chan struct{}

	hub *eventHub

	execMu        sync.RWMutex
	agentExecutor cronexec.AgentExecutor

	sinkMu sync.RWMutex
	sink   cronsink.Sink

	captureMu sync.RWMutex
	capture   *cronlog.Config
}

// New builds a Manager backed by store, rooted at workspace (used as the
// default working directory for jobs; it is not passed to the store, so a
// file-backed store keeps the root it was built with). The agent executor defaults to
// cronexec.NoopExecutor until SetAgentExecutor is called, matching scenario
// 5 (agent job with no executor registered fails with ErrNoExecutor).
func New(store cronstore.Store, workspace string) *Manager {
	return &Manager{
		store:         store,
		workspace:     workspace,
		hub:           newEventHub(),
		agentExecutor: cronexec.NoopExecutor{},
	}
}

// SetAgentExecutor registers the agent-mode executor. Per spec §5/§9, this
// must be called before Start(); the engine does not expect it to change
// once the manager is shared. A nil e restores the NoopExecutor default.
func (m *Manager) SetAgentExecutor(e cronexec.AgentExecutor) {
	m.execMu.Lock()
	defer m.execMu.Unlock()
	if e == nil {
		e = cronexec.NoopExecutor{}
	}
	m.agentExecutor = e
}

func (m *Manager) getAgentExecutor() cronexec.AgentExecutor {
	m.execMu.RLock()
	defer m.execMu.RUnlock()
	return m.agentExecutor
}

// SetSink registers an optional execution export sink. See SPEC_FULL.md §4.4.
func (m *Manager) SetSink(s cronsink.Sink) {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()
	m.sink = s
}

func (m *Manager) getSink() cronsink.Sink {
	m.sinkMu.RLock()
	defer m.sinkMu.RUnlock()
	return m.sink
}

// SetCapture registers an optional rotating stdout/stderr capture config.
func (m *Manager) SetCapture(c *cronlog.Config) {
	m.captureMu.Lock()
	defer m.captureMu.Unlock()
	m.capture = c
}

func (m *Manager) getCapture() *cronlog.Config {
	m.captureMu.RLock()
	defer m.captureMu.RUnlock()
	return m.capture
}

// AddJob creates a Shell-mode job. See spec §4.4.
func (m *Manager) AddJob(ctx context.Context, name, schedule, command string) (*cronmodel.CronJob, error) {
	return m.addJob(ctx, name, schedule, cronmodel.JobTypeShell, command, nil)
}

// AddAgentJob creates an Agent-mode job. prompt is stored as Command; the
// engine does not require an executor to be registered yet (absence is
// detected at execution, spec §4.4).
func (m *Manager) AddAgentJob(ctx context.Context, name, schedule, prompt string, agentConfig *cronmodel.AgentConfig) (*cronmodel.CronJob, error) {
	return m.addJob(ctx, name, schedule, cronmodel.JobTypeAgent, prompt, agentConfig)
}

func (m *Manager) addJob(ctx context.Context, name, schedule string, jobType cronmodel.JobType, command string, agentConfig *cronmodel.AgentConfig) (*cronmodel.CronJob, error) {
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrInvalidSchedule, err)
	}

	existing, err := m.store.FindJobByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrJobExists, name)
	}

	now := time.Now().UTC()
	next, _ := expr.NextAfter(now)

	job := &cronmodel.CronJob{
		ID:          uuid.NewString(),
		Name:        name,
		Schedule:    schedule,
		JobType:     jobType,
		Command:     command,
		AgentConfig: agentConfig,
		WorkingDir:  m.workspace,
		TimeoutMS:   cronmodel.DefaultTimeoutMS,
		Status:      cronmodel.JobStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !next.IsZero() {
		job.NextRun = &next
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	slog.Info("cron job added", "name", job.Name, "id", job.ID, "job_type", job.JobType)
	return job, nil
}

// UpdateJob mutates schedule/command/timeout_ms on an existing job. See spec §4.4.
func (m *Manager) UpdateJob(ctx context.Context, id string, schedule, command *string, timeoutMS *int64) (*cronmodel.CronJob, error) {
	job, err := m.store.LoadJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrJobNotFound, id)
	}

	if schedule != nil {
		expr, err := cronexpr.Parse(*schedule)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", cronmodel.ErrInvalidSchedule, err)
		}
		job.Schedule = *schedule
		next, ok := expr.NextAfter(time.Now().UTC())
		if ok {
			job.NextRun = &next
		} else {
			job.NextRun = nil
		}
	}
	if command != nil {
		job.Command = *command
	}
	if timeoutMS != nil {
		job.TimeoutMS = *timeoutMS
	}
	job.UpdatedAt = time.Now().UTC()

	if err := m.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	return job, nil
}

// PauseJob moves a job to Paused. Idempotent apart from updated_at. See spec §4.4.
func (m *Manager) PauseJob(ctx context.Context, id string) error {
	job, err := m.store.LoadJob(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	if job == nil {
		return fmt.Errorf("%w: %s", cronmodel.ErrJobNotFound, id)
	}
	job.Status = cronmodel.JobStatusPaused
	job.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	return nil
}

// ResumeJob moves a job to Active and recomputes next_run from now. See spec §4.4.
func (m *Manager) ResumeJob(ctx context.Context, id string) error {
	job, err := m.store.LoadJob(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	if job == nil {
		return fmt.Errorf("%w: %s", cronmodel.ErrJobNotFound, id)
	}
	job.Status = cronmodel.JobStatusActive
	if expr, err := cronexpr.Parse(job.Schedule); err == nil {
		if next, ok := expr.NextAfter(time.Now().UTC()); ok {
			job.NextRun = &next
		}
	}
	job.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	return nil
}

// RemoveJob deletes a job and its history. See spec §4.4.
func (m *Manager) RemoveJob(ctx context.Context, id string) error {
	if err := m.store.DeleteJob(ctx, id); err != nil {
		return err
	}
	return nil
}

// GetJob loads a single job by id.
func (m *Manager) GetJob(ctx context.Context, id string) (*cronmodel.CronJob, error) {
	job, err := m.store.LoadJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrJobNotFound, id)
	}
	return job, nil
}

// GetJobByName loads a single job by its unique name.
func (m *Manager) GetJobByName(ctx context.Context, name string) (*cronmodel.CronJob, error) {
	job, err := m.store.FindJobByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrJobNotFound, name)
	}
	return job, nil
}

// ListJobs returns every stored job.
func (m *Manager) ListJobs(ctx context.Context) ([]*cronmodel.CronJob, error) {
	jobs, err := m.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	return jobs, nil
}

// GetHistory returns up to limit executions for jobID, newest first.
func (m *Manager) GetHistory(ctx context.Context, jobID string, limit int) ([]*cronmodel.JobExecution, error) {
	execs, err := m.store.LoadExecutions(ctx, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	return execs, nil
}

// RunJob runs execute_job synchronously regardless of status or next_run.
// It never converts an execution failure into an error: the failure is
// captured in the returned JobExecution. See spec §4.4 and §7.
func (m *Manager) RunJob(ctx context.Context, id string) (*cronmodel.JobExecution, error) {
	job, err := m.store.LoadJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrJobNotFound, id)
	}
	return m.executeJob(ctx, job), nil
}

// Subscribe returns a receive-only channel observing lifecycle events
// (capacity 100, lossy for slow subscribers). See spec §4.4/§5.
func (m *Manager) Subscribe() <-chan cronmodel.Event {
	return m.hub.subscribe()
}
