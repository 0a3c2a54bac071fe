package cronmgr

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/cronsched/internal/cronmodel"
	"github.com/loykin/cronsched/internal/cronstore"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store := cronstore.NewMemStore(0)
	return New(store, t.TempDir())
}

func TestAddJob(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "backup", "0 2 * * *", "tar -czf backup.tar.gz /data")
	require.NoError(t, err)
	assert.Equal(t, "backup", job.Name)
	assert.Equal(t, "0 2 * * *", job.Schedule)
	assert.Equal(t, "tar -czf backup.tar.gz /data", job.Command)
	assert.NotNil(t, job.NextRun)
}

func TestAddDuplicateName(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.AddJob(ctx, "unique", "* * * * *", "echo one")
	require.NoError(t, err)

	_, err = m.AddJob(ctx, "unique", "* * * * *", "echo two")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cronmodel.ErrJobExists))
}

func TestAddInvalidSchedule(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.AddJob(ctx, "bad", "not a schedule", "echo hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cronmodel.ErrInvalidSchedule))
}

func TestGetJob(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.AddJob(ctx, "lookup", "* * * * *", "echo hi")
	require.NoError(t, err)

	fetched, err := m.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Name, fetched.Name)
}

func TestGetJobNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.GetJob(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cronmodel.ErrJobNotFound))
}

func TestListJobs(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, name := range []string{"job-a", "job-b", "job-c"} {
		_, err := m.AddJob(ctx, name, "* * * * *", "echo "+name)
		require.NoError(t, err)
	}

	jobs, err := m.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestUpdateJob(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "updatable", "* * * * *", "echo before")
	require.NoError(t, err)

	newSchedule := "0 * * * *"
	newCommand := "echo after"
	var newTimeout int64 = 15000

	updated, err := m.UpdateJob(ctx, job.ID, &newSchedule, &newCommand, &newTimeout)
	require.NoError(t, err)
	assert.Equal(t, newSchedule, updated.Schedule)
	assert.Equal(t, newCommand, updated.Command)
	assert.Equal(t, newTimeout, updated.TimeoutMS)
}

func TestPauseResume(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "pausable", "* * * * *", "echo hi")
	require.NoError(t, err)

	require.NoError(t, m.PauseJob(ctx, job.ID))
	paused, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, cronmodel.JobStatusPaused, paused.Status)

	require.NoError(t, m.ResumeJob(ctx, job.ID))
	resumed, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, cronmodel.JobStatusActive, resumed.Status)
	assert.NotNil(t, resumed.NextRun)
}

func TestRemoveJob(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "removable", "* * * * *", "echo hi")
	require.NoError(t, err)

	require.NoError(t, m.RemoveJob(ctx, job.ID))

	_, err = m.GetJob(ctx, job.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cronmodel.ErrJobNotFound))
}

func TestRunJobSuccess(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "greeter", "* * * * *", "echo hello")
	require.NoError(t, err)

	execution, err := m.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, cronmodel.ExecutionSuccess, execution.Status)
	assert.Contains(t, execution.Stdout, "hello")

	updated, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.RunCount)
	assert.NotNil(t, updated.LastRun)
}

func TestRunJobFailure(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "failer", "* * * * *", "exit 1")
	require.NoError(t, err)

	execution, err := m.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, cronmodel.ExecutionFailed, execution.Status)

	updated, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.FailCount)
}

func TestGetHistory(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "repeater", "* * * * *", "echo again")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := m.RunJob(ctx, job.ID)
		require.NoError(t, err)
	}

	history, err := m.GetHistory(ctx, job.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)

	seen := make(map[string]bool, 3)
	for _, e := range history {
		seen[e.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestEventSubscriptionOrdering(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "observed", "* * * * *", "echo hi")
	require.NoError(t, err)

	events := m.Subscribe()

	_, err = m.RunJob(ctx, job.ID)
	require.NoError(t, err)

	select {
	case first := <-events:
		assert.Equal(t, cronmodel.EventJobStarted, first.Type)
		assert.Equal(t, job.ID, first.JobID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job_started event")
	}

	select {
	case second := <-events:
		assert.Equal(t, cronmodel.EventJobCompleted, second.Type)
		assert.Equal(t, job.ID, second.JobID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job_completed event")
	}
}

func TestShellJobTypeDefault(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "shell-default", "* * * * *", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, cronmodel.JobTypeShell, job.JobType)
	assert.Nil(t, job.AgentConfig)
}

func TestJobEnvOverridesProcessEnv(t *testing.T) {
	t.Setenv("GREETING", "from-process")
	m := newTestManager(t)
	ctx := context.Background()

	job, err := m.AddJob(ctx, "env-check", "* * * * *", `echo "value=$GREETING"`)
	require.NoError(t, err)

	loaded, err := m.store.LoadJob(ctx, job.ID)
	require.NoError(t, err)
	loaded.Env = map[string]string{"GREETING": "hi-there"}
	require.NoError(t, m.store.SaveJob(ctx, loaded))

	execution, err := m.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, cronmodel.ExecutionSuccess, execution.Status)
	assert.True(t, strings.Contains(execution.Stdout, "value=hi-there"))
}
