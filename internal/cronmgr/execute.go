package cronmgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/cronsched/internal/cronexec"
	"github.com/loykin/cronsched/internal/cronexpr"
	"github.com/loykin/cronsched/internal/cronmodel"
	"github.com/loykin/cronsched/internal/crontelemetry"
)

// shellResult is the outcome of a Shell-mode body, mirroring the original
// scheduler's "(exit_code, stdout, stderr) or I/O error" shape (spec §4.5).
type shellResult struct {
	exitCode int
	stdout   string
	stderr   string
}

// executeJob runs the ten-step pipeline from spec §4.5 for a single job and
// returns the resulting JobExecution. It never panics and never leaves the
// job's persisted status stuck at Running: every exit path clears it.
func (m *Manager) executeJob(ctx context.Context, job *cronmodel.CronJob) *cronmodel.JobExecution {
	started := time.Now().UTC()
	execution := &cronmodel.JobExecution{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		StartedAt: started,
		Status:    cronmodel.ExecutionRunning,
	}
	m.hub.publish(cronmodel.Event{Type: cronmodel.EventJobStarted, JobID: job.ID, ExecutionID: execution.ID})

	running := job.Clone()
	running.Status = cronmodel.JobStatusRunning
	if err := m.store.SaveJob(ctx, running); err != nil {
		slog.Warn("cron: failed to persist running marker", "job", job.Name, "error", err)
	}

	timeout := time.Duration(job.TimeoutMS) * time.Millisecond
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type bodyOutcome struct {
		res shellResult
		err error
	}
	resultCh := make(chan bodyOutcome, 1)

	go func() {
		res, err := m.runJobBody(runCtx, job)
		resultCh <- bodyOutcome{res: res, err: err}
	}()

	var timedOut bool
	var outcome bodyOutcome
	select {
	case outcome = <-resultCh:
	case <-runCtx.Done():
		timedOut = true
	}

	finished := time.Now().UTC()
	execution.FinishedAt = finished

	switch {
	case timedOut:
		execution.Status = cronmodel.ExecutionTimeout
		execution.ExitCode = -1
		execution.Error = fmt.Sprintf("execution timed out after %dms", job.TimeoutMS)
		m.hub.publish(cronmodel.Event{Type: cronmodel.EventJobTimeout, JobID: job.ID, ExecutionID: execution.ID})
	case outcome.err != nil:
		execution.Status = cronmodel.ExecutionFailed
		execution.ExitCode = 1
		execution.Error = fmt.Sprintf("Failed to execute command: %s", outcome.err)
	default:
		execution.ExitCode = outcome.res.exitCode
		execution.Stdout = outcome.res.stdout
		execution.Stderr = outcome.res.stderr
		if outcome.res.exitCode == 0 {
			execution.Status = cronmodel.ExecutionSuccess
		} else {
			execution.Status = cronmodel.ExecutionFailed
		}
	}

	if err := m.store.SaveExecution(ctx, execution); err != nil {
		slog.Error("cron: failed to persist execution", "job", job.Name, "error", err)
	}
	if sink := m.getSink(); sink != nil {
		if err := sink.Send(ctx, job, execution); err != nil {
			slog.Warn("cron: execution sink failed", "job", job.Name, "error", err)
		}
	}

	m.finishJob(ctx, job, execution, started)

	if execution.Status == cronmodel.ExecutionSuccess {
		m.hub.publish(cronmodel.Event{Type: cronmodel.EventJobCompleted, JobID: job.ID, ExecutionID: execution.ID})
	} else if !timedOut {
		m.hub.publish(cronmodel.Event{Type: cronmodel.EventJobFailed, JobID: job.ID, ExecutionID: execution.ID, Error: execution.Error})
	}

	statusLabel := string(execution.Status)
	crontelemetry.IncJobExecuted(job.Name, statusLabel)
	crontelemetry.ObserveJobDuration(job.Name, finished.Sub(started).Seconds())

	return execution
}

// finishJob reloads-or-mutates the job's working copy per step 7-8 of
// spec §4.5: clear Running, bump counters, recompute next_run, persist.
func (m *Manager) finishJob(ctx context.Context, job *cronmodel.CronJob, execution *cronmodel.JobExecution, started time.Time) {
	final := job.Clone()
	final.Status = cronmodel.JobStatusActive
	final.LastRun = &started
	final.UpdatedAt = time.Now().UTC()
	if execution.Status == cronmodel.ExecutionSuccess {
		final.RunCount++
	} else {
		final.FailCount++
	}
	if expr, err := cronexpr.Parse(final.Schedule); err == nil {
		if next, ok := expr.NextAfter(time.Now().UTC()); ok {
			final.NextRun = &next
		} else {
			final.NextRun = nil
		}
	}
	if err := m.store.SaveJob(ctx, final); err != nil {
		slog.Error("cron: failed to persist job after execution", "job", job.Name, "error", err)
	}
}

// runJobBody dispatches to the Shell or Agent body per spec §4.5 step 4.
func (m *Manager) runJobBody(ctx context.Context, job *cronmodel.CronJob) (shellResult, error) {
	switch job.JobType {
	case cronmodel.JobTypeAgent:
		return m.runAgentBody(ctx, job)
	default:
		return m.runShellBody(ctx, job)
	}
}

func (m *Manager) runShellBody(ctx context.Context, job *cronmodel.CronJob) (shellResult, error) {
	workdir := job.WorkingDir
	if workdir == "" {
		workdir = m.workspace
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", job.Command)
	cmd.Dir = workdir
	cmd.Env = mergeEnv(job.Env)

	var stdout, stderr bytes.Buffer
	if capture := m.getCapture(); capture != nil {
		outW, errW := capture.Writers(job.Name)
		if outW != nil {
			defer func() { _ = outW.Close() }()
			cmd.Stdout = newMultiWriteCloser(&stdout, outW)
		} else {
			cmd.Stdout = &stdout
		}
		if errW != nil {
			defer func() { _ = errW.Close() }()
			cmd.Stderr = newMultiWriteCloser(&stderr, errW)
		} else {
			cmd.Stderr = &stderr
		}
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if exitErr.ExitCode() >= 0 {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		} else {
			return shellResult{}, err
		}
	}
	return shellResult{exitCode: exitCode, stdout: stdout.String(), stderr: stderr.String()}, nil
}

func (m *Manager) runAgentBody(ctx context.Context, job *cronmodel.CronJob) (shellResult, error) {
	executor := m.getAgentExecutor()
	if job.AgentConfig == nil {
		return shellResult{}, fmt.Errorf("Agent job missing agent_config")
	}
	workdir := job.WorkingDir
	if workdir == "" {
		workdir = m.workspace
	}
	text, err := executor.Execute(ctx, job.AgentConfig, job.Command, workdir)
	if err != nil {
		// Absence of a registered executor is a pipeline-level configuration
		// failure, surfaced the same way a shell I/O error would be (wrapped
		// as "Failed to execute command: ..." by executeJob); an executor
		// that ran and reported its own failure maps to a failed result
		// instead, exactly as original_source/scheduler.rs distinguishes
		// the two via its `?`-propagated io::Error vs. Ok((1, "", err)).
		if errors.Is(err, cronexec.ErrNoExecutor) {
			return shellResult{}, err
		}
		return shellResult{exitCode: 1, stderr: err.Error()}, nil
	}
	return shellResult{exitCode: 0, stdout: text}, nil
}
