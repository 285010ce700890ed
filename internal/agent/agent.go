// Package agent runs goals and single tasks through the tool registry,
// falling back to an LLM when no tool applies.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hession/taskmate/internal/config"
	"github.com/hession/taskmate/internal/llm"
	"github.com/hession/taskmate/internal/logger"
	"github.com/hession/taskmate/internal/memory"
	"github.com/hession/taskmate/internal/planner"
	"github.com/hession/taskmate/internal/tools"
)

// Step sources
const (
	SourceTool = "tool"
	SourceLLM  = "llm"
	SourceNone = "none"
)

// StepResult outcome of a single task
type StepResult struct {
	Task     string        `json:"task"`
	Source   string        `json:"source"`
	Tool     string        `json:"tool,omitempty"`
	Status   memory.Status `json:"status"`
	Output   any           `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report outcome of a goal run
type Report struct {
	Goal     string        `json:"goal"`
	Template string        `json:"template"`
	Steps    []StepResult  `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// Failed returns the number of failed steps
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == memory.StatusFailed {
			n++
		}
	}
	return n
}

// Succeeded reports whether every step completed
func (r *Report) Succeeded() bool {
	return r.Failed() == 0
}

// Agent task runner
type Agent struct {
	registry      *tools.Registry
	memory        *memory.Log
	planner       *planner.Planner
	llm           llm.Client
	prompts       *config.PromptConfig
	maxRetries    int
	stepHandler   func(StepResult)
	streamHandler func(chunk string)
}

// Option agent configuration option
type Option func(*Agent)

// WithLLM sets the fallback client used when no tool matches
func WithLLM(client llm.Client) Option {
	return func(a *Agent) {
		a.llm = client
	}
}

// WithPlanner replaces the default planner
func WithPlanner(p *planner.Planner) Option {
	return func(a *Agent) {
		a.planner = p
	}
}

// WithPromptConfig sets the prompts used for LLM fallback
func WithPromptConfig(p *config.PromptConfig) Option {
	return func(a *Agent) {
		a.prompts = p
	}
}

// WithMaxRetries sets LLM attempts per step
func WithMaxRetries(n int) Option {
	return func(a *Agent) {
		a.maxRetries = n
	}
}

// WithStepHandler is called after every finished step
func WithStepHandler(handler func(StepResult)) Option {
	return func(a *Agent) {
		a.stepHandler = handler
	}
}

// WithStreamHandler streams LLM output instead of waiting for the full answer
func WithStreamHandler(handler func(chunk string)) Option {
	return func(a *Agent) {
		a.streamHandler = handler
	}
}

// New creates a new Agent instance. mem may be nil for an in-memory log.
func New(reg *tools.Registry, mem *memory.Log, opts ...Option) *Agent {
	if mem == nil {
		mem = memory.NewLog(nil)
	}
	a := &Agent{
		registry:   reg,
		memory:     mem,
		planner:    planner.New(),
		prompts:    config.DefaultPromptConfig(),
		maxRetries: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns the agent's tool registry
func (a *Agent) Registry() *tools.Registry {
	return a.registry
}

// Memory returns the agent's execution log
func (a *Agent) Memory() *memory.Log {
	return a.memory
}

// Planner returns the agent's planner
func (a *Agent) Planner() *planner.Planner {
	return a.planner
}

// Run plans goal and executes each step in order. Step failures are
// recorded and do not stop the run; only cancellation of ctx does.
func (a *Agent) Run(ctx context.Context, goal string, params map[string]any) (*Report, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("goal cannot be empty")
	}

	start := time.Now()
	template := a.planner.Match(goal)
	steps := a.planner.Plan(goal)
	logger.Info("Planning goal %q with template %s (%d steps)", goal, template, len(steps))

	a.memory.Record(goal, memory.StatusStarted, nil, "", map[string]any{"kind": "goal", "template": template})

	report := &Report{Goal: goal, Template: template}
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			a.memory.Record(goal, memory.StatusFailed, nil, err.Error(), map[string]any{"kind": "goal"})
			return report, err
		}
		logger.Debug("Step %d/%d: %s", i+1, len(steps), step)
		report.Steps = append(report.Steps, a.runStep(ctx, goal, step, params))
	}
	report.Duration = time.Since(start)

	status, errMsg := memory.StatusCompleted, ""
	if failed := report.Failed(); failed > 0 {
		status, errMsg = memory.StatusFailed, fmt.Sprintf("%d of %d steps failed", failed, len(steps))
	}
	a.memory.Record(goal, status, nil, errMsg, map[string]any{"kind": "goal", "steps": len(steps)})
	logger.Metric("goal_run", map[string]interface{}{
		"template":    template,
		"steps":       len(steps),
		"failed":      report.Failed(),
		"duration_ms": report.Duration.Milliseconds(),
	})

	return report, nil
}

// RunTask executes a single task without planning
func (a *Agent) RunTask(ctx context.Context, task string, params map[string]any) StepResult {
	return a.runStep(ctx, "", strings.TrimSpace(task), params)
}

func (a *Agent) runStep(ctx context.Context, goal, task string, params map[string]any) StepResult {
	started := a.memory.Record(task, memory.StatusStarted, nil, "", nil)
	label := "task " + started.ID
	logger.StartTimer(label)
	start := time.Now()

	result := StepResult{Task: task}
	metadata := map[string]any{}

	res, executed := a.registry.ExecuteIfNeeded(ctx, task, params)
	if executed && errors.Is(res.Err(), tools.ErrMissingParams) {
		// The phrase matched but the caller gave the tool nothing to work with
		logger.Debug("Skipping %s for %q: %s", res.ToolName, task, res.Error)
		metadata["skipped_tool"] = res.ToolName
		executed = false
	}

	if executed {
		result.Source = SourceTool
		result.Tool = res.ToolName
		result.Output = res.Output
		result.Error = res.Error
		result.Status = memory.StatusCompleted
		if !res.Success {
			result.Status = memory.StatusFailed
		}
		metadata["tool"] = res.ToolName
	} else if a.llm != nil {
		result.Source = SourceLLM
		resp, err := a.askLLM(ctx, goal, task)
		if err != nil {
			result.Status = memory.StatusFailed
			result.Error = err.Error()
		} else {
			result.Status = memory.StatusCompleted
			result.Output = resp.Content
			metadata["provider"] = string(resp.Provider)
			metadata["model"] = resp.Model
			metadata["tokens"] = resp.TokensUsed
		}
	} else {
		result.Source = SourceNone
		result.Status = memory.StatusCompleted
	}

	result.Duration = time.Since(start)
	logger.StopTimer(label)

	metadata["source"] = result.Source
	if goal != "" {
		metadata["goal"] = goal
	}
	a.memory.Record(task, result.Status, result.Output, result.Error, metadata)

	if result.Status == memory.StatusFailed {
		logger.Warn("Task failed (%s): %s: %s", result.Source, task, result.Error)
	}
	if a.stepHandler != nil {
		a.stepHandler(result)
	}
	return result
}

func (a *Agent) askLLM(ctx context.Context, goal, task string) (*llm.Response, error) {
	prompts := a.prompts.GetPrompts()

	var content strings.Builder
	if goal != "" {
		fmt.Fprintf(&content, "%s %s\n", prompts.GoalContext, goal)
	}
	fmt.Fprintf(&content, "%s %s", prompts.TaskPrefix, task)

	req := llm.Request{
		System:   prompts.System,
		Messages: []llm.Message{{Role: "user", Content: content.String()}},
	}

	if a.streamHandler != nil {
		return a.llm.Stream(ctx, req, a.streamHandler)
	}
	return llm.CompleteWithRetry(ctx, a.llm, req, a.maxRetries)
}

// LogUsage writes a tool usage record as a metric line.
// Pass it to tools.WithUsageHook.
func LogUsage(record tools.UsageRecord) {
	fields := map[string]interface{}{
		"tool":        record.Tool,
		"success":     record.Success,
		"duration_ms": float64(record.Duration.Microseconds()) / 1000,
	}
	if record.Error != "" {
		fields["error"] = record.Error
	}
	logger.Metric("tool_call", fields)
}
