package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loykin/cronsched"
)

// resolveJob finds a job by --name if given, else treats args[0] as an id.
func resolveJob(mgr *cronsched.Manager, name string, args []string) (*cronsched.Job, error) {
	if name != "" {
		return mgr.GetJobByName(name)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("job id or --name is required")
	}
	return mgr.GetJob(args[0])
}

func newAddCommand(configPath *string) *cobra.Command {
	var schedule, command string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a shell-mode cron job",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mgr, _, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			job, err := mgr.AddJob(args[0], schedule, command)
			if err != nil {
				return err
			}
			printJSON(job)
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "5-field cron expression")
	cmd.Flags().StringVar(&command, "command", "", "shell command to run")
	return cmd
}

func newAddAgentCommand(configPath *string) *cobra.Command {
	var schedule, prompt, model, apiKey, baseURL, systemPrompt string
	cmd := &cobra.Command{
		Use:   "add-agent NAME",
		Short: "Add an agent-mode cron job",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mgr, _, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			job, err := mgr.AddAgentJob(args[0], schedule, prompt, &cronsched.AgentConfig{
				Model:        model,
				APIKey:       apiKey,
				BaseURL:      baseURL,
				SystemPrompt: systemPrompt,
			})
			if err != nil {
				return err
			}
			printJSON(job)
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "5-field cron expression")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt sent to the agent executor")
	cmd.Flags().StringVar(&model, "model", "", "agent model name")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "agent API key override")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "agent API base URL override")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "agent system prompt")
	return cmd
}

func newListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all cron jobs",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			mgr, _, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			jobs, err := mgr.ListJobs()
			if err != nil {
				return err
			}
			printJSON(jobs)
			return nil
		},
	}
}

func newShowCommand(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "show [ID]",
		Short: "Show a single job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mgr, _, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			job, err := resolveJob(mgr, name, args)
			if err != nil {
				return err
			}
			printJSON(job)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "job name (alternative to positional id)")
	return cmd
}

func newPauseCommand(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "pause [ID]",
		Short: "Pause a job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mgr, _, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			job, err := resolveJob(mgr, name, args)
			if err != nil {
				return err
			}
			return mgr.PauseJob(job.ID)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "job name (alternative to positional id)")
	return cmd
}

func newResumeCommand(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "resume [ID]",
		Short: "Resume a paused job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mgr, _, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			job, err := resolveJob(mgr, name, args)
			if err != nil {
				return err
			}
			return mgr.ResumeJob(job.ID)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "job name (alternative to positional id)")
	return cmd
}

func newRemoveCommand(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "remove [ID]",
		Short: "Remove a job and its history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mgr, _, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			job, err := resolveJob(mgr, name, args)
			if err != nil {
				return err
			}
			return mgr.RemoveJob(job.ID)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "job name (alternative to positional id)")
	return cmd
}

func newRunCommand(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "run [ID]",
		Short: "Run a job immediately, regardless of schedule or status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mgr, _, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			job, err := resolveJob(mgr, name, args)
			if err != nil {
				return err
			}
			execution, err := mgr.RunJob(job.ID)
			if err != nil {
				return err
			}
			printJSON(execution)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "job name (alternative to positional id)")
	return cmd
}

func newHistoryCommand(configPath *string) *cobra.Command {
	var name string
	var limit int
	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "Show recent executions for a job, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mgr, _, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			job, err := resolveJob(mgr, name, args)
			if err != nil {
				return err
			}
			history, err := mgr.GetHistory(job.ID, limit)
			if err != nil {
				return err
			}
			printJSON(history)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "job name (alternative to positional id)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of executions to return")
	return cmd
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the tick loop and block until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			mgr, cfg, err := buildManager(*configPath)
			if err != nil {
				return err
			}
			mgr.Start()
			defer mgr.Stop()

			if cfg.Telemetry.Enabled && cfg.Telemetry.Listen != "" {
				go func() {
					if err := cronsched.ServeMetrics(cfg.Telemetry.Listen); err != nil {
						fmt.Println("metrics server stopped:", err)
					}
				}()
			}

			waitForSignal()
			return nil
		},
	}
}
