package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hession/taskmate/internal/agent"
	"github.com/hession/taskmate/internal/cli"
	"github.com/hession/taskmate/internal/config"
	"github.com/hession/taskmate/internal/logger"
	"github.com/hession/taskmate/internal/planner"
	"github.com/hession/taskmate/internal/tools"
)

var (
	version   = cli.Version
	configDir string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskmate",
		Short: "TaskMate - Rule-based task runner",
		Long: `TaskMate breaks goals into steps and runs each step with the right tool.

It can:
  • Fetch web pages and search the web
  • Read, write and search files
  • Calculate and transform data
  • Run shell commands
  • Fall back to a language model when no tool applies`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configDir != "" {
				config.SetConfigDir(configDir)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Close()

			return cli.Run(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ./config)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newTaskCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig loads configuration and initializes logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		LogDir:     cfg.LogDir(),
		Level:      logger.ParseLevel(cfg.Log.Level),
		MaxDays:    cfg.Log.MaxDays,
		ConsoleOut: cfg.Log.Console,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	logConfigInfo(cfg)
	return cfg, nil
}

// logConfigInfo logs the effective configuration without secrets
func logConfigInfo(cfg *config.Config) {
	logger.Info("Config loaded: provider=%s model=%s api_key_configured=%v",
		cfg.Model.Provider, cfg.Model.Model, cfg.IsAPIKeyConfigured())
	logger.Info("Memory: persist=%v db=%s", cfg.Memory.Persist, cfg.Memory.DBPath)
	logger.Info("Tools: call_timeout=%ds command_timeout=%ds confirm_dangerous_ops=%v",
		cfg.Tools.CallTimeoutSeconds, cfg.Tools.CommandTimeoutSeconds, cfg.Tools.ConfirmDangerousOps)
}

// withAgent builds the agent, runs fn and releases resources
func withAgent(fn func(ctx context.Context, ag *agent.Agent) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Close()

	ag, cleanup, err := cli.Build(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, ag)
}

func newRunCmd() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Plan a goal and run every step",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.ParseParams(params)
			if err != nil {
				return err
			}
			goal := strings.Join(args, " ")

			return withAgent(func(ctx context.Context, ag *agent.Agent) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatPlan(ag.Planner().Plan(goal)))

				report, err := ag.Run(ctx, goal, p)
				if report != nil {
					for _, step := range report.Steps {
						fmt.Fprint(out, cli.FormatStep(step))
					}
					fmt.Fprint(out, cli.FormatReport(report))
				}
				if err != nil {
					return err
				}
				if !report.Succeeded() {
					return fmt.Errorf("%d of %d steps failed", report.Failed(), len(report.Steps))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "tool parameter as key=value (repeatable)")
	return cmd
}

func newTaskCmd() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "task <description>",
		Short: "Run a single task with the matching tool",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.ParseParams(params)
			if err != nil {
				return err
			}
			task := strings.Join(args, " ")

			return withAgent(func(ctx context.Context, ag *agent.Agent) error {
				step := ag.RunTask(ctx, task, p)
				fmt.Fprint(cmd.OutOrStdout(), cli.FormatStep(step))
				if step.Error != "" {
					return fmt.Errorf("task failed: %s", step.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "tool parameter as key=value (repeatable)")
	return cmd
}

func newToolsCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter []tools.Category
			if category != "" {
				c, err := tools.ParseCategory(category)
				if err != nil {
					return err
				}
				filter = append(filter, c)
			}

			registry := tools.NewDefaultRegistry(nil, nil)
			fmt.Fprint(cmd.OutOrStdout(), cli.FormatTools(registry.ListTools(filter...)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only list tools in this category")
	return cmd
}

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <goal>",
		Short: "Show the plan for a goal without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), cli.FormatPlan(planner.New().Plan(strings.Join(args, " "))))
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.String())

			path, _ := config.ConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "\nConfig file path: %s\n", path)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "TaskMate v%s\n", version)
		},
	}
}
