package cronmgr

import (
	"context"
	"log/slog"
	"time"

	"github.com/loykin/cronsched/internal/cronmodel"
	"github.com/loykin/cronsched/internal/crontelemetry"
)

// Start begins the background tick loop if not already running. Idempotent.
// See spec §4.4/§4.6.
func (m *Manager) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.quit = make(chan struct{})
	m.done = make(chan struct{})
	m.hub.publish(cronmodel.Event{Type: cronmodel.EventStarted})
	go m.tickLoop()
	slog.Info("cron scheduler started")
}

// Stop halts the tick loop. In-flight executions complete naturally (no
// forced abort), per spec §5. Idempotent.
func (m *Manager) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.quit)
	<-m.done
	m.hub.publish(cronmodel.Event{Type: cronmodel.EventStopped})
	slog.Info("cron scheduler stopped")
}

// IsRunning reports whether the tick loop is active.
func (m *Manager) IsRunning() bool {
	return m.running.Load()
}

// tickLoop fires every tickInterval, starting one tick after Start(). See
// spec §4.6.
func (m *Manager) tickLoop() {
	defer close(m.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			if !m.running.Load() {
				return
			}
			m.runTick()
		}
	}
}

// runTick lists active, due jobs and dispatches execute_job concurrently for
// each, never serializing across jobs and never aborting the tick on a
// per-job error. See spec §4.6.
func (m *Manager) runTick() {
	crontelemetry.IncSchedulerTick()

	ctx := context.Background()
	jobs, err := m.store.ListJobs(ctx)
	if err != nil {
		slog.Error("cron: tick failed to list jobs", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if job.Status != cronmodel.JobStatusActive {
			continue
		}
		if job.NextRun == nil || job.NextRun.After(now) {
			continue
		}
		go func(j *cronmodel.CronJob) {
			m.executeJob(context.Background(), j)
		}(job)
	}
}
