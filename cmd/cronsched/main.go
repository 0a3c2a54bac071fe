// Command cronsched is the CLI for the persistent cron-style job scheduler,
// mirroring cmd/provisr's cobra command-tree layout (simplified: one process,
// no daemon/client split).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loykin/cronsched"
	"github.com/loykin/cronsched/internal/cronlog"
)

func printJSON(v any) {
	b, err := jsonMarshalIndent(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal error:", err)
		return
	}
	fmt.Println(string(b))
}

func buildManager(configPath string) (*cronsched.Manager, *cronsched.Config, error) {
	cfg, err := cronsched.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	mgr, err := cronsched.New(cfg.StoreDSN, cfg.Workspace, cfg.HistoryLimit)
	if err != nil {
		return nil, nil, err
	}

	if cfg.SinkDSN != "" {
		sink, err := cronsched.NewSinkFromDSN(cfg.SinkDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build execution sink: %w", err)
		}
		mgr.SetSink(sink)
	}

	if cfg.Capture.Dir != "" {
		mgr.SetCapture(&cronlog.Config{
			Dir:        cfg.Capture.Dir,
			MaxSizeMB:  cfg.Capture.MaxSizeMB,
			MaxBackups: cfg.Capture.MaxBackups,
			MaxAgeDays: cfg.Capture.MaxAgeDays,
			Compress:   cfg.Capture.Compress,
		})
	}

	if cfg.Agent.Executor == "openai" {
		mgr.SetAgentExecutor(cronsched.NewOpenAIExecutor(cfg.Agent.APIKey))
	}

	if cfg.Telemetry.Enabled {
		if err := cronsched.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			slog.Warn("cronsched: metrics registration failed", "error", err)
		}
	}

	return mgr, cfg, nil
}

func main() {
	var configPath string

	root := &cobra.Command{Use: "cronsched"}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML/TOML/JSON)")

	root.AddCommand(
		newAddCommand(&configPath),
		newAddAgentCommand(&configPath),
		newListCommand(&configPath),
		newShowCommand(&configPath),
		newPauseCommand(&configPath),
		newResumeCommand(&configPath),
		newRemoveCommand(&configPath),
		newRunCommand(&configPath),
		newHistoryCommand(&configPath),
		newServeCommand(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// waitForSignal blocks until SIGINT/SIGTERM is received.
func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
}
