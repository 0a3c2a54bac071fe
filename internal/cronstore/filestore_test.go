package cronstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loykin/cronsched/internal/cronmodel"
)

func newFullTestJob(id, name string) *cronmodel.CronJob {
	now := time.Now().UTC()
	next := now.Add(time.Minute)
	last := now.Add(-time.Minute)
	return &cronmodel.CronJob{
		ID:       id,
		Name:     name,
		Schedule: "*/5 * * * *",
		JobType:  cronmodel.JobTypeAgent,
		Command:  "refactor the auth package",
		AgentConfig: &cronmodel.AgentConfig{
			Model:             "gpt-4o",
			APIKey:            "sk-test",
			BaseURL:           "https://api.example.com/v1",
			SystemPrompt:      "you are a careful refactoring agent",
			WorkspaceOverride: "/srv/app",
		},
		WorkingDir: "/srv/app",
		Env:        map[string]string{"FOO": "bar", "BAZ": "qux"},
		TimeoutMS:  30000,
		Status:     cronmodel.JobStatusActive,
		NextRun:    &next,
		LastRun:    &last,
		RunCount:   7,
		FailCount:  2,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newFullTestExecution(id, jobID string) *cronmodel.JobExecution {
	now := time.Now().UTC()
	return &cronmodel.JobExecution{
		ID:         id,
		JobID:      jobID,
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
		Status:     cronmodel.ExecutionFailed,
		ExitCode:   1,
		Stdout:     "partial output",
		Stderr:     "boom",
		Error:      "Failed to execute command: boom",
	}
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	job := newFullTestJob("id-1", "full-job")

	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("save job: %v", err)
	}
	loaded, err := s.LoadJob(ctx, "id-1")
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected job, got nil")
	}

	if loaded.Name != job.Name || loaded.Schedule != job.Schedule || loaded.Command != job.Command ||
		loaded.JobType != job.JobType || loaded.WorkingDir != job.WorkingDir ||
		loaded.TimeoutMS != job.TimeoutMS || loaded.Status != job.Status ||
		loaded.RunCount != job.RunCount || loaded.FailCount != job.FailCount {
		t.Fatalf("round-trip mismatch: %+v vs %+v", loaded, job)
	}
	if loaded.AgentConfig == nil || *loaded.AgentConfig != *job.AgentConfig {
		t.Fatalf("agent_config round-trip mismatch: %+v vs %+v", loaded.AgentConfig, job.AgentConfig)
	}
	if len(loaded.Env) != len(job.Env) || loaded.Env["FOO"] != "bar" || loaded.Env["BAZ"] != "qux" {
		t.Fatalf("env round-trip mismatch: %+v vs %+v", loaded.Env, job.Env)
	}
	if loaded.NextRun == nil || !loaded.NextRun.Equal(*job.NextRun) {
		t.Fatalf("next_run round-trip mismatch: %v vs %v", loaded.NextRun, job.NextRun)
	}
	if loaded.LastRun == nil || !loaded.LastRun.Equal(*job.LastRun) {
		t.Fatalf("last_run round-trip mismatch: %v vs %v", loaded.LastRun, job.LastRun)
	}
	if !loaded.CreatedAt.Equal(job.CreatedAt) || !loaded.UpdatedAt.Equal(job.UpdatedAt) {
		t.Fatalf("timestamp round-trip mismatch: %+v vs %+v", loaded, job)
	}
}

func TestFileStoreDuplicateNameRejected(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := s.SaveJob(ctx, newFullTestJob("id-1", "unique")); err != nil {
		t.Fatalf("first save: %v", err)
	}
	err = s.SaveJob(ctx, newFullTestJob("id-2", "unique"))
	if !errors.Is(err, cronmodel.ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got %v", err)
	}
}

func TestFileStoreFindJobByName(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	_ = s.SaveJob(ctx, newFullTestJob("id-1", "findme"))

	found, err := s.FindJobByName(ctx, "findme")
	if err != nil {
		t.Fatalf("find by name: %v", err)
	}
	if found == nil || found.ID != "id-1" {
		t.Fatalf("expected id-1, got %+v", found)
	}

	missing, err := s.FindJobByName(ctx, "nope")
	if err != nil {
		t.Fatalf("find by name (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing name, got %+v", missing)
	}
}

func TestFileStoreListJobsSorted(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	_ = s.SaveJob(ctx, newFullTestJob("id-2", "b"))
	_ = s.SaveJob(ctx, newFullTestJob("id-1", "a"))
	_ = s.SaveJob(ctx, newFullTestJob("id-3", "c"))

	list, err := s.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(list))
	}
	if list[0].ID != "id-1" || list[1].ID != "id-2" || list[2].ID != "id-3" {
		t.Fatalf("expected sorted by id, got %+v", list)
	}
}

func TestFileStoreDeleteJob(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	job := newFullTestJob("id-1", "to-delete")
	_ = s.SaveJob(ctx, job)
	_ = s.SaveExecution(ctx, newFullTestExecution("exec-1", job.ID))

	if err := s.DeleteJob(ctx, "id-1"); err != nil {
		t.Fatalf("delete job: %v", err)
	}

	loaded, err := s.LoadJob(ctx, "id-1")
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected job gone after delete, got %+v", loaded)
	}

	execs, err := s.LoadExecutions(ctx, "id-1", 10)
	if err != nil {
		t.Fatalf("load executions after delete: %v", err)
	}
	if len(execs) != 0 {
		t.Fatalf("expected executions gone after delete, got %d", len(execs))
	}
}

func TestFileStoreDeleteJobNotFound(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := s.DeleteJob(ctx, "missing"); !errors.Is(err, cronmodel.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestFileStoreSaveLoadExecutionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	job := newFullTestJob("id-1", "job")
	_ = s.SaveJob(ctx, job)
	exec := newFullTestExecution("exec-1", job.ID)

	if err := s.SaveExecution(ctx, exec); err != nil {
		t.Fatalf("save execution: %v", err)
	}

	history, err := s.LoadExecutions(ctx, job.ID, 10)
	if err != nil {
		t.Fatalf("load executions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(history))
	}
	loaded := history[0]
	if loaded.ID != exec.ID || loaded.JobID != exec.JobID || loaded.Status != exec.Status ||
		loaded.ExitCode != exec.ExitCode || loaded.Stdout != exec.Stdout ||
		loaded.Stderr != exec.Stderr || loaded.Error != exec.Error {
		t.Fatalf("execution round-trip mismatch: %+v vs %+v", loaded, exec)
	}
	if !loaded.StartedAt.Equal(exec.StartedAt) || !loaded.FinishedAt.Equal(exec.FinishedAt) {
		t.Fatalf("execution timestamp mismatch: %+v vs %+v", loaded, exec)
	}
}

func TestFileStoreExecutionHistoryNewestFirstAndTrimmed(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 2)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	job := newFullTestJob("id-1", "job")
	_ = s.SaveJob(ctx, job)

	for i := 0; i < 3; i++ {
		exec := &cronmodel.JobExecution{
			ID:        string(rune('a' + i)),
			JobID:     job.ID,
			StartedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
			Status:    cronmodel.ExecutionSuccess,
		}
		if err := s.SaveExecution(ctx, exec); err != nil {
			t.Fatalf("save execution %d: %v", i, err)
		}
	}

	history, err := s.LoadExecutions(ctx, job.ID, 10)
	if err != nil {
		t.Fatalf("load executions: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected history trimmed to 2, got %d", len(history))
	}
	if history[0].ID != "c" || history[1].ID != "b" {
		t.Fatalf("expected newest-first order [c,b], got %+v", history)
	}
}
