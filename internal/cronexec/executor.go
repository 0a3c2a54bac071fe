// Package cronexec defines the pluggable "agent mode" executor contract and
// two implementations: a Noop executor (the default, always reports absence)
// and an OpenAI-backed executor.
package cronexec

import (
	"context"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// AgentExecutor is the single-method contract an agent-mode CronJob is
// dispatched through. Implementations may run arbitrarily long; the engine
// always races the call against the job's timeout.
type AgentExecutor interface {
	Execute(ctx context.Context, cfg *cronmodel.AgentConfig, prompt, workingDir string) (string, error)
}
