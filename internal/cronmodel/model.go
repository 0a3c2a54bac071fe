// Package cronmodel defines the scheduler's entities: CronJob, JobExecution,
// and their status/type enumerations.
package cronmodel

import (
	"fmt"
	"time"
)

// JobType selects how a CronJob's command field is interpreted.
type JobType string

const (
	JobTypeShell JobType = "shell"
	JobTypeAgent JobType = "agent"
)

// JobStatus is the current lifecycle state of a CronJob.
type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusPaused   JobStatus = "paused"
	JobStatusRunning  JobStatus = "running"
	JobStatusDisabled JobStatus = "disabled"
)

// ExecutionStatus is the terminal (or transient, while Running) outcome of a
// JobExecution.
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionTimeout ExecutionStatus = "timeout"
)

// AgentConfig carries the configuration an AgentExecutor needs to run an
// Agent-mode job. It is opaque to the engine beyond presence.
type AgentConfig struct {
	Model             string `json:"model"`
	APIKey            string `json:"api_key,omitempty"`
	BaseURL           string `json:"base_url,omitempty"`
	SystemPrompt      string `json:"system_prompt,omitempty"`
	WorkspaceOverride string `json:"workspace_override,omitempty"`
}

// CronJob is a named recurring schedule entry.
type CronJob struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Schedule    string            `json:"schedule"`
	JobType     JobType           `json:"job_type"`
	Command     string            `json:"command"`
	AgentConfig *AgentConfig      `json:"agent_config,omitempty"`
	WorkingDir  string            `json:"working_dir,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	TimeoutMS   int64             `json:"timeout_ms"`
	Status      JobStatus         `json:"status"`
	NextRun     *time.Time        `json:"next_run,omitempty"`
	LastRun     *time.Time        `json:"last_run,omitempty"`
	RunCount    int64             `json:"run_count"`
	FailCount   int64             `json:"fail_count"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Validate enforces the data-model invariants from spec §3 that are the
// job's own responsibility (schedule parseability and name uniqueness are
// enforced by the caller/store, not here).
func (j *CronJob) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("%w: job name is required", ErrInternal)
	}
	if j.Schedule == "" {
		return fmt.Errorf("%w: job schedule is required", ErrInternal)
	}
	if j.TimeoutMS <= 0 {
		return fmt.Errorf("%w: timeout_ms must be positive", ErrInternal)
	}
	if j.JobType == JobTypeAgent && j.AgentConfig == nil {
		return fmt.Errorf("%w: agent job requires agent_config", ErrInternal)
	}
	return nil
}

// Clone returns a deep-enough copy safe for a caller to mutate without
// affecting the store's or manager's copy.
func (j *CronJob) Clone() *CronJob {
	cp := *j
	if j.AgentConfig != nil {
		ac := *j.AgentConfig
		cp.AgentConfig = &ac
	}
	if j.Env != nil {
		cp.Env = make(map[string]string, len(j.Env))
		for k, v := range j.Env {
			cp.Env[k] = v
		}
	}
	if j.NextRun != nil {
		nr := *j.NextRun
		cp.NextRun = &nr
	}
	if j.LastRun != nil {
		lr := *j.LastRun
		cp.LastRun = &lr
	}
	return &cp
}

// JobExecution is a single attempted run of a CronJob.
type JobExecution struct {
	ID         string          `json:"id"`
	JobID      string          `json:"job_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Status     ExecutionStatus `json:"status"`
	ExitCode   int             `json:"exit_code"`
	Stdout     string          `json:"stdout"`
	Stderr     string          `json:"stderr"`
	Error      string          `json:"error,omitempty"`
}

// DefaultTimeoutMS is applied when a caller does not specify timeout_ms.
const DefaultTimeoutMS = 5 * 60 * 1000

// DefaultHistoryLimit bounds per-job execution retention. See DESIGN.md
// Open Question #2.
const DefaultHistoryLimit = 200
