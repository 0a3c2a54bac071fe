package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/cronsched/internal/cronmodel"
)

func newTestExecutionPair(jobID, execID string) (*cronmodel.CronJob, *cronmodel.JobExecution) {
	now := time.Now().UTC()
	job := &cronmodel.CronJob{ID: jobID, Name: "job-" + jobID, Schedule: "* * * * *"}
	exec := &cronmodel.JobExecution{
		ID:         execID,
		JobID:      jobID,
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
		Status:     cronmodel.ExecutionSuccess,
		ExitCode:   0,
		Stdout:     "ok",
	}
	return job, exec
}

func TestNewCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sink.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer func() { _ = s.Close() }()

	var name string
	row := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='cron_execution_history'`)
	if err := row.Scan(&name); err != nil {
		t.Fatalf("expected cron_execution_history table to exist: %v", err)
	}
}

func TestSendInsertsRow(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer func() { _ = s.Close() }()

	job, exec := newTestExecutionPair("job-1", "exec-1")
	if err := s.Send(context.Background(), job, exec); err != nil {
		t.Fatalf("send: %v", err)
	}

	var jobID, jobName, execID, status string
	row := s.db.QueryRow(`SELECT job_id, job_name, execution_id, status FROM cron_execution_history WHERE execution_id = ?`, exec.ID)
	if err := row.Scan(&jobID, &jobName, &execID, &status); err != nil {
		t.Fatalf("scan inserted row: %v", err)
	}
	if jobID != job.ID || jobName != job.Name || execID != exec.ID || status != string(exec.Status) {
		t.Fatalf("unexpected row: job_id=%s job_name=%s execution_id=%s status=%s", jobID, jobName, execID, status)
	}
}

func TestSendTwiceInsertsTwoRows(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer func() { _ = s.Close() }()

	job, exec1 := newTestExecutionPair("job-1", "exec-1")
	_, exec2 := newTestExecutionPair("job-1", "exec-2")
	if err := s.Send(context.Background(), job, exec1); err != nil {
		t.Fatalf("send 1: %v", err)
	}
	if err := s.Send(context.Background(), job, exec2); err != nil {
		t.Fatalf("send 2: %v", err)
	}

	var count int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM cron_execution_history WHERE job_id = ?`, job.ID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestSendRejectsNilArgs(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer func() { _ = s.Close() }()

	job, exec := newTestExecutionPair("job-1", "exec-1")
	if err := s.Send(context.Background(), nil, exec); err == nil {
		t.Fatal("expected error for nil job")
	}
	if err := s.Send(context.Background(), job, nil); err == nil {
		t.Fatal("expected error for nil execution")
	}
}
