package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hession/taskmate/internal/llm"
	"github.com/hession/taskmate/internal/memory"
	"github.com/hession/taskmate/internal/planner"
	"github.com/hession/taskmate/internal/tools"
)

type fakeLLM struct {
	err      error
	requests []llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: "answer", Provider: llm.ProviderLocal, Model: "fake", TokensUsed: 1}, nil
}

func (f *fakeLLM) Stream(ctx context.Context, req llm.Request, handler llm.StreamHandler) (*llm.Response, error) {
	resp, err := f.Complete(ctx, req)
	if err == nil && handler != nil {
		handler(resp.Content)
	}
	return resp, err
}

func (f *fakeLLM) Provider() llm.Provider { return llm.ProviderLocal }

func (f *fakeLLM) Model() string { return "fake" }

func newTestAgent(opts ...Option) *Agent {
	reg := tools.NewRegistry().
		Register(tools.NewCalculatorTool()).
		Register(tools.NewFileReaderTool())
	return New(reg, memory.NewLog(nil), opts...)
}

func TestRunTaskWithTool(t *testing.T) {
	a := newTestAgent()

	step := a.RunTask(context.Background(), "Calculate the sum of 10 and 20", map[string]any{"expression": "10 + 20"})
	assert.Equal(t, SourceTool, step.Source)
	assert.Equal(t, "calculator", step.Tool)
	assert.Equal(t, memory.StatusCompleted, step.Status)
	assert.Equal(t, 30.0, step.Output.(map[string]any)["result"])

	entries := a.Memory().All()
	require.Len(t, entries, 2)
	assert.Equal(t, memory.StatusStarted, entries[0].Status)
	assert.Equal(t, memory.StatusCompleted, entries[1].Status)
	assert.Equal(t, "calculator", entries[1].Metadata["tool"])

	assert.Equal(t, 1, a.Registry().UsageStats().Success)
}

func TestRunTaskToolFailure(t *testing.T) {
	a := newTestAgent()

	step := a.RunTask(context.Background(), "Read file please", map[string]any{"filepath": "/not/exist/file.txt"})
	assert.Equal(t, SourceTool, step.Source)
	assert.Equal(t, memory.StatusFailed, step.Status)
	assert.Contains(t, step.Error, "failed to read file")

	failed := a.Memory().FilterByStatus(memory.StatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, step.Error, failed[0].Error)
}

func TestRunTaskMissingParamsFallsThrough(t *testing.T) {
	a := newTestAgent()

	step := a.RunTask(context.Background(), "Read file please", nil)
	assert.Equal(t, SourceNone, step.Source)
	assert.Equal(t, memory.StatusCompleted, step.Status)
	assert.Empty(t, step.Tool)
	assert.Empty(t, step.Error)
	assert.Empty(t, a.Registry().UsageLog())

	last := a.Memory().All()[1]
	assert.Equal(t, "file_reader", last.Metadata["skipped_tool"])

	fake := &fakeLLM{}
	a = newTestAgent(WithLLM(fake))
	step = a.RunTask(context.Background(), "Read file please", nil)
	assert.Equal(t, SourceLLM, step.Source)
	assert.Equal(t, "answer", step.Output)
	assert.Len(t, fake.requests, 1)
}

func TestRunTaskWithoutToolOrLLM(t *testing.T) {
	a := newTestAgent()

	step := a.RunTask(context.Background(), "Just think about this", nil)
	assert.Equal(t, SourceNone, step.Source)
	assert.Equal(t, memory.StatusCompleted, step.Status)
	assert.Nil(t, step.Output)
	assert.Empty(t, a.Registry().UsageLog())
}

func TestRunTaskLLMFallback(t *testing.T) {
	fake := &fakeLLM{}
	a := newTestAgent(WithLLM(fake))

	step := a.RunTask(context.Background(), "Just think about this", nil)
	assert.Equal(t, SourceLLM, step.Source)
	assert.Equal(t, "answer", step.Output)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.NotEmpty(t, req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "Current step: Just think about this", req.Messages[0].Content)

	last := a.Memory().All()[1]
	assert.Equal(t, "llm", last.Metadata["source"])
	assert.Equal(t, "fake", last.Metadata["model"])
}

func TestRunTaskLLMError(t *testing.T) {
	a := newTestAgent(WithLLM(&fakeLLM{err: errors.New("rate limited")}))

	step := a.RunTask(context.Background(), "Just think about this", nil)
	assert.Equal(t, memory.StatusFailed, step.Status)
	assert.Contains(t, step.Error, "rate limited")
}

func TestRunTaskStreaming(t *testing.T) {
	var streamed strings.Builder
	a := newTestAgent(WithLLM(&fakeLLM{}), WithStreamHandler(func(chunk string) {
		streamed.WriteString(chunk)
	}))

	a.RunTask(context.Background(), "Just think about this", nil)
	assert.Equal(t, "answer", streamed.String())
}

func TestRun(t *testing.T) {
	fake := &fakeLLM{}
	var handled []StepResult
	a := newTestAgent(WithLLM(fake), WithStepHandler(func(s StepResult) {
		handled = append(handled, s)
	}))

	report, err := a.Run(context.Background(), "Learn Go generics", nil)
	require.NoError(t, err)
	assert.Equal(t, "learning", report.Template)
	require.Len(t, report.Steps, 4)
	assert.Equal(t, "Identify topics: Learn Go generics", report.Steps[0].Task)
	assert.True(t, report.Succeeded())
	assert.Len(t, handled, 4)

	// Goal context reaches the LLM
	assert.Equal(t, "Overall goal: Learn Go generics\nCurrent step: Identify topics: Learn Go generics",
		fake.requests[0].Messages[0].Content)

	// goal started + 4 x (started, completed) + goal completed
	summary := a.Memory().Summary()
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 5, summary.Started)
	assert.Equal(t, 5, summary.Completed)
}

func TestRunStepSelectsToolByFallbackPhrase(t *testing.T) {
	a := newTestAgent()

	// "Summarize" contains the calculation phrase "sum"
	report, err := a.Run(context.Background(), "Research market trends", map[string]any{"expression": "1 + 1"})
	require.NoError(t, err)
	require.Len(t, report.Steps, 3)
	assert.Equal(t, SourceNone, report.Steps[0].Source)
	assert.Equal(t, "calculator", report.Steps[2].Tool)
	assert.Equal(t, memory.StatusCompleted, report.Steps[2].Status)
}

func TestRunDefaultTemplateWithBuiltinTools(t *testing.T) {
	a := New(tools.NewDefaultRegistry(nil, nil), memory.NewLog(nil))

	tests := []struct {
		goal     string
		template string
	}{
		{"organize my week", "default"},
		{"Build a web scraper", "project"},
		{"Research market trends", "research"},
		{"Learn Go generics", "learning"},
	}

	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			report, err := a.Run(context.Background(), tt.goal, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.template, report.Template)
			assert.True(t, report.Succeeded(), "steps: %+v", report.Steps)
		})
	}
	assert.Empty(t, a.Registry().UsageLog())
}

func TestRunContinuesAfterFailure(t *testing.T) {
	a := newTestAgent(WithLLM(&fakeLLM{err: errors.New("offline")}))

	report, err := a.Run(context.Background(), "Learn Go generics", nil)
	require.NoError(t, err)
	assert.Len(t, report.Steps, 4)
	assert.Equal(t, 4, report.Failed())
	assert.False(t, report.Succeeded())

	goalEntries := a.Memory().FilterByTask("Learn Go generics")
	last := goalEntries[len(goalEntries)-1]
	assert.Equal(t, memory.StatusFailed, last.Status)
	assert.Equal(t, "4 of 4 steps failed", last.Error)
}

func TestRunUsesTools(t *testing.T) {
	p := planner.New()
	require.NoError(t, p.AddTemplate("math", []string{"Calculate"}, "arithmetic"))
	a := newTestAgent(WithPlanner(p))

	report, err := a.Run(context.Background(), "arithmetic check", map[string]any{"expression": "6 * 7"})
	require.NoError(t, err)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, "calculator", report.Steps[0].Tool)
	assert.Equal(t, 42.0, report.Steps[0].Output.(map[string]any)["result"])
}

func TestRunCancelled(t *testing.T) {
	a := newTestAgent()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := a.Run(ctx, "Build a web scraper", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Steps)
}

func TestRunEmptyGoal(t *testing.T) {
	_, err := newTestAgent().Run(context.Background(), "   ", nil)
	assert.Error(t, err)
}

func TestLogUsage(t *testing.T) {
	// No default logger: must not panic
	LogUsage(tools.UsageRecord{Tool: "calculator", Success: false, Error: "boom"})
}
