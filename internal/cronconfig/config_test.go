package cronconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Workspace)
	assert.Equal(t, "memory://", cfg.StoreDSN)
	assert.Equal(t, 200, cfg.HistoryLimit)
	assert.Equal(t, AgentExecutorNone, cfg.Agent.Executor)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cronsched.yaml")
	content := []byte(`
workspace: /srv/cronsched
store_dsn: "sqlite:///var/lib/cronsched/jobs.db"
history_limit: 50
telemetry:
  enabled: true
  listen: ":9100"
agent:
  executor: openai
  api_key: test-key
  default_model: gpt-4o-mini
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/cronsched", cfg.Workspace)
	assert.Equal(t, "sqlite:///var/lib/cronsched/jobs.db", cfg.StoreDSN)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, ":9100", cfg.Telemetry.Listen)
	assert.Equal(t, AgentExecutorOpenAI, cfg.Agent.Executor)
	assert.Equal(t, "test-key", cfg.Agent.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.DefaultModel)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
