package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrToolNotFound the requested tool is not registered
	ErrToolNotFound = errors.New("tool not found")
	// ErrMissingParams one or more required parameters are absent
	ErrMissingParams = errors.New("missing required parameters")
)

// Registry tool registry with rule-based selection and execution.
//
// Tools are kept in registration order; selection is first-match over that
// order, so the order is part of the contract.
type Registry struct {
	mu          sync.Mutex
	tools       *orderedmap.OrderedMap[string, Descriptor]
	usage       []UsageRecord
	callTimeout time.Duration
	onUsage     func(UsageRecord)
}

// Option registry option
type Option func(*Registry)

// WithCallTimeout bounds each handler invocation. Zero disables the deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.callTimeout = d
	}
}

// WithUsageHook is called after every usage record is appended
func WithUsageHook(hook func(UsageRecord)) Option {
	return func(r *Registry) {
		r.onUsage = hook
	}
}

// NewRegistry creates a new tool registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools: orderedmap.New[string, Descriptor](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register registers a tool, replacing any tool with the same name.
// It returns the registry so calls can be chained.
func (r *Registry) Register(d Descriptor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools.Set(d.Name, d)
	return r
}

// Unregister removes a tool by name
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, present := r.tools.Delete(name)
	return present
}

// Get gets a tool by name
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tools.Get(name)
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tools.Len()
}

// NeedsTool decides whether a task needs a tool and which one.
// Keyword matches win over category fallback phrases; within each rule the
// first registered tool wins.
func (r *Registry) NeedsTool(task string) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	taskLower := strings.ToLower(task)

	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		if matchesKeyword(taskLower, pair.Value.Keywords) {
			return true, pair.Key
		}
	}

	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		if matchesCategory(taskLower, pair.Value.Category) {
			return true, pair.Key
		}
	}

	return false, ""
}

// SelectTool returns the descriptor chosen for a task
func (r *Registry) SelectTool(task string) (Descriptor, bool) {
	needed, name := r.NeedsTool(task)
	if !needed {
		return Descriptor{}, false
	}
	return r.Get(name)
}

// ExecuteTool validates parameters and runs the named tool.
//
// Failures never escape as errors: unknown tools, missing parameters and
// handler errors (including panics) all come back as a failed Result. Only
// attempts that reach the handler are recorded in the usage log.
//
// The handler runs synchronously on the caller's goroutine. A handler that
// ignores ctx stalls the caller even when a call timeout is configured.
func (r *Registry) ExecuteTool(ctx context.Context, name string, params map[string]any) *Result {
	tool, exists := r.Get(name)
	if !exists {
		return failedResult(name, fmt.Sprintf("Tool '%s' not found", name), ErrToolNotFound)
	}

	if missing := missingParams(tool.RequiredParams, params); len(missing) > 0 {
		msg := fmt.Sprintf("Missing required parameters: [%s]", strings.Join(missing, " "))
		return failedResult(name, msg, ErrMissingParams)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	start := time.Now()
	output, err := invoke(ctx, tool.Handler, params)
	if err != nil && r.callTimeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("tool execution timeout (%v): %w", r.callTimeout, err)
	}

	record := UsageRecord{
		Tool:      name,
		Params:    maps.Clone(params),
		Success:   err == nil,
		Timestamp: start,
		Duration:  time.Since(start),
	}
	if err != nil {
		record.Error = err.Error()
	}
	r.appendUsage(record)

	if err != nil {
		return &Result{ToolName: name, Success: false, Error: err.Error(), err: err}
	}
	return successResult(name, output)
}

// ExecuteIfNeeded selects a tool for the task and runs it.
// The boolean is false when no tool applies; the Result is then nil.
func (r *Registry) ExecuteIfNeeded(ctx context.Context, task string, params map[string]any) (*Result, bool) {
	tool, ok := r.SelectTool(task)
	if !ok {
		return nil, false
	}
	return r.ExecuteTool(ctx, tool.Name, params), true
}

// ListTools lists registered tools in registration order, optionally
// filtered by category
func (r *Registry) ListTools(filter ...Category) []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	tools := make([]Descriptor, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		if len(filter) > 0 && pair.Value.Category != filter[0] {
			continue
		}
		tools = append(tools, pair.Value)
	}
	return tools
}

// UsageLog returns a copy of the usage records in execution order
func (r *Registry) UsageLog() []UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := make([]UsageRecord, len(r.usage))
	copy(log, r.usage)
	return log
}

func (r *Registry) appendUsage(record UsageRecord) {
	r.mu.Lock()
	r.usage = append(r.usage, record)
	hook := r.onUsage
	r.mu.Unlock()

	if hook != nil {
		hook(record)
	}
}

// invoke calls the handler, converting a panic into an error
func invoke(ctx context.Context, handler Handler, params map[string]any) (output any, err error) {
	if handler == nil {
		return nil, fmt.Errorf("tool has no handler")
	}
	defer func() {
		if p := recover(); p != nil {
			output = nil
			err = fmt.Errorf("tool panicked: %v", p)
		}
	}()
	return handler(ctx, params)
}

func missingParams(required []string, params map[string]any) []string {
	var missing []string
	for _, name := range required {
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
