package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/c-bata/go-prompt"

	"github.com/hession/taskmate/internal/agent"
	"github.com/hession/taskmate/internal/config"
	"github.com/hession/taskmate/internal/llm"
	"github.com/hession/taskmate/internal/logger"
	"github.com/hession/taskmate/internal/memory"
	"github.com/hession/taskmate/internal/tools"
)

const (
	Version = "0.1.0"

	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// Build wires the agent from configuration. The returned cleanup closes
// the memory store, if any.
func Build(cfg *config.Config, opts ...agent.Option) (*agent.Agent, func(), error) {
	cleanup := func() {}

	var store memory.Store
	if cfg.Memory.Persist {
		sqliteStore, err := memory.NewSQLiteStore(cfg.Memory.DBPath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to initialize memory store: %w", err)
		}
		store = sqliteStore
		cleanup = func() { sqliteStore.Close() }
	}

	mem := memory.NewLog(store)
	if store != nil {
		n, err := mem.Load(0)
		if err != nil {
			logger.Warn("Failed to load task history: %v", err)
		} else {
			logger.Info("Loaded %d task history entries", n)
		}
	}

	registry := tools.NewDefaultRegistry(confirmDangerousOp, cfg, tools.WithUsageHook(agent.LogUsage))

	promptCfg, err := config.LoadPromptConfig()
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("failed to load prompt config: %w", err)
	}

	agentOpts := []agent.Option{
		agent.WithPromptConfig(promptCfg),
		agent.WithMaxRetries(cfg.Model.MaxRetries),
	}

	llmClient, err := llm.New(cfg.Model)
	if err != nil {
		// Tools still work without a model
		logger.Warn("LLM fallback disabled: %v", err)
		fmt.Printf("%s⚠️  LLM fallback disabled: %v%s\n", colorYellow, err, colorReset)
	} else {
		agentOpts = append(agentOpts, agent.WithLLM(llmClient))
		logger.Info("LLM fallback: %s (%s)", llmClient.Provider(), llmClient.Model())
	}

	return agent.New(registry, mem, append(agentOpts, opts...)...), cleanup, nil
}

// Run starts the interactive shell
func Run(cfg *config.Config) error {
	printWelcome()

	ag, cleanup, err := Build(cfg, agent.WithStepHandler(printStep))
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	runREPL(ctx, ag, cfg.Memory.ExportPath)
	return nil
}

// printWelcome prints welcome message
func printWelcome() {
	fmt.Printf("\n%s🤖 TaskMate v%s%s - Rule-based task runner\n", colorCyan, Version, colorReset)
	fmt.Printf("%sType a goal to run it, /help for help, /exit to quit%s\n\n", colorGray, colorReset)
}

// runREPL reads goals and commands until /exit or Ctrl+D
func runREPL(ctx context.Context, ag *agent.Agent, exportPath string) {
	commands := NewCommands(ag, exportPath)
	exitRequested := false

	executor := func(line string) {
		input := strings.TrimSpace(line)
		if input == "" {
			return
		}

		if strings.HasPrefix(input, "/") {
			output, exit := commands.Handle(ctx, input)
			if output != "" {
				fmt.Println(output)
			}
			exitRequested = exit
			return
		}

		processInput(ctx, ag, input)
	}

	p := prompt.New(
		executor,
		completer,
		prompt.OptionPrefix("taskmate> "),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionTitle("TaskMate"),
		prompt.OptionSetExitCheckerOnInput(func(_ string, breakline bool) bool {
			return breakline && exitRequested
		}),
	)
	p.Run()
}

// processInput plans and runs a goal
func processInput(ctx context.Context, ag *agent.Agent, goal string) {
	fmt.Println(FormatPlan(ag.Planner().Plan(goal)))

	report, err := ag.Run(ctx, goal, nil)
	if err != nil {
		fmt.Printf("%s❌ Error: %v%s\n", colorRed, err, colorReset)
	}
	if report != nil {
		fmt.Print(FormatReport(report))
	}
	fmt.Println()
}

// printStep prints each finished step
func printStep(s agent.StepResult) {
	color := colorGreen
	if s.Status == memory.StatusFailed {
		color = colorRed
	}
	fmt.Printf("%s%s%s", color, FormatStep(s), colorReset)
}

// confirmDangerousOp confirms dangerous operation
func confirmDangerousOp(command string) bool {
	fmt.Printf("\n%s⚠️  Dangerous Operation Warning%s\n", colorRed, colorReset)
	fmt.Printf("About to execute: %s\n", command)

	input := prompt.Input("Confirm execution? (y/N): ", func(prompt.Document) []prompt.Suggest {
		return nil
	})

	input = strings.ToLower(strings.TrimSpace(input))
	confirmed := input == "y" || input == "yes"
	if !confirmed {
		logger.Info("Dangerous command declined: %s", command)
	}
	return confirmed
}
