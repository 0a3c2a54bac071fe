package cronexec

import (
	"context"
	"errors"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// ErrNoExecutor is returned by NoopExecutor.Execute. The manager's
// runAgentBody special-cases it to propagate as an outer pipeline error
// rather than a failed shellResult, matching scenario 5 (spec §8).
var ErrNoExecutor = errors.New("No agent executor configured for agent-mode cron job")

// NoopExecutor is the manager's default agent executor until
// SetAgentExecutor registers a real one; it always fails with ErrNoExecutor.
type NoopExecutor struct{}

func (NoopExecutor) Execute(context.Context, *cronmodel.AgentConfig, string, string) (string, error) {
	return "", ErrNoExecutor
}
