// Package cronsched is the public facade for embedding the scheduler engine.
// Types are aliased from internal packages so conversions are zero-cost,
// mirroring the teacher's provisr.go re-export pattern.
package cronsched

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/cronsched/internal/cronconfig"
	"github.com/loykin/cronsched/internal/cronexec"
	"github.com/loykin/cronsched/internal/cronlog"
	"github.com/loykin/cronsched/internal/cronmgr"
	"github.com/loykin/cronsched/internal/cronmodel"
	"github.com/loykin/cronsched/internal/cronsink"
	"github.com/loykin/cronsched/internal/cronstore"
	"github.com/loykin/cronsched/internal/crontelemetry"
)

// Re-export core types for external consumers.

type Job = cronmodel.CronJob
type AgentConfig = cronmodel.AgentConfig
type Execution = cronmodel.JobExecution
type Event = cronmodel.Event
type JobStatus = cronmodel.JobStatus
type ExecutionStatus = cronmodel.ExecutionStatus

type AgentExecutor = cronexec.AgentExecutor
type Sink = cronsink.Sink
type CaptureConfig = cronlog.Config
type Config = cronconfig.Config

// Manager is a thin facade over internal/cronmgr.Manager.
type Manager struct{ inner *cronmgr.Manager }

// New builds a Manager backed by a store resolved from dsn (see
// cronstore.NewFromDSN for supported schemes: memory://, file://,
// sqlite://, postgres://), rooted at workspace for Shell jobs' default
// working directory.
func New(dsn, workspace string, historyLimit int) (*Manager, error) {
	store, err := cronstore.NewFromDSN(dsn, historyLimit)
	if err != nil {
		return nil, err
	}
	return &Manager{inner: cronmgr.New(store, workspace)}, nil
}

// NewWithStore builds a Manager over an already-constructed store, useful
// for embedders that need a custom cronstore.Store implementation.
func NewWithStore(store cronstore.Store, workspace string) *Manager {
	return &Manager{inner: cronmgr.New(store, workspace)}
}

func (m *Manager) SetAgentExecutor(e AgentExecutor) { m.inner.SetAgentExecutor(e) }
func (m *Manager) SetSink(s Sink)                   { m.inner.SetSink(s) }
func (m *Manager) SetCapture(c *CaptureConfig)      { m.inner.SetCapture(c) }

func (m *Manager) Start()           { m.inner.Start() }
func (m *Manager) Stop()            { m.inner.Stop() }
func (m *Manager) IsRunning() bool  { return m.inner.IsRunning() }
func (m *Manager) Subscribe() <-chan Event {
	return m.inner.Subscribe()
}

func (m *Manager) AddJob(name, schedule, command string) (*Job, error) {
	return m.inner.AddJob(bgCtx(), name, schedule, command)
}

func (m *Manager) AddAgentJob(name, schedule, prompt string, cfg *AgentConfig) (*Job, error) {
	return m.inner.AddAgentJob(bgCtx(), name, schedule, prompt, cfg)
}

func (m *Manager) UpdateJob(id string, schedule, command *string, timeoutMS *int64) (*Job, error) {
	return m.inner.UpdateJob(bgCtx(), id, schedule, command, timeoutMS)
}

func (m *Manager) PauseJob(id string) error  { return m.inner.PauseJob(bgCtx(), id) }
func (m *Manager) ResumeJob(id string) error { return m.inner.ResumeJob(bgCtx(), id) }
func (m *Manager) RemoveJob(id string) error { return m.inner.RemoveJob(bgCtx(), id) }

func (m *Manager) GetJob(id string) (*Job, error)             { return m.inner.GetJob(bgCtx(), id) }
func (m *Manager) GetJobByName(name string) (*Job, error)     { return m.inner.GetJobByName(bgCtx(), name) }
func (m *Manager) ListJobs() ([]*Job, error)                  { return m.inner.ListJobs(bgCtx()) }
func (m *Manager) GetHistory(jobID string, limit int) ([]*Execution, error) {
	return m.inner.GetHistory(bgCtx(), jobID, limit)
}
func (m *Manager) RunJob(id string) (*Execution, error) { return m.inner.RunJob(bgCtx(), id) }

func bgCtx() context.Context { return context.Background() }

// LoadConfig reads a cmd/cronsched-style config document from path.
func LoadConfig(path string) (*Config, error) { return cronconfig.Load(path) }

// NewOpenAIExecutor builds an AgentExecutor backed by the OpenAI API.
func NewOpenAIExecutor(apiKey string) AgentExecutor { return cronexec.NewOpenAIExecutor(apiKey) }

// NewSinkFromDSN builds an execution export Sink from dsn (see
// cronsink.NewFromDSN for supported schemes).
func NewSinkFromDSN(dsn string) (Sink, error) { return cronsink.NewFromDSN(dsn) }

// RegisterMetrics registers the scheduler's Prometheus instruments.
func RegisterMetrics(r prometheus.Registerer) error { return crontelemetry.Register(r) }

// ServeMetrics starts a blocking HTTP server on addr exposing /metrics.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", crontelemetry.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
