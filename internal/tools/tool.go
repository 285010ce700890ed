package tools

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Category tool category
type Category string

const (
	CategoryWeb           Category = "web"
	CategoryFile          Category = "file"
	CategoryData          Category = "data"
	CategoryCalculation   Category = "calculation"
	CategoryCommunication Category = "communication"
	CategorySystem        Category = "system"
)

// AllCategories returns all valid tool categories
func AllCategories() []Category {
	return []Category{
		CategoryWeb,
		CategoryFile,
		CategoryData,
		CategoryCalculation,
		CategoryCommunication,
		CategorySystem,
	}
}

// ParseCategory parses a category name (case-insensitive)
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range AllCategories() {
		if c == valid {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category: %s", s)
}

func (c Category) String() string {
	return string(c)
}

// Handler performs the work of a tool. It returns the output value or an error.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Descriptor tool definition
type Descriptor struct {
	Name           string
	Category       Category
	Description    string
	Keywords       []string // Trigger phrases, matched case-insensitively
	RequiredParams []string // Must be present as keys before invocation
	Handler        Handler
}

// Result outcome of one execution attempt
type Result struct {
	ToolName string `json:"tool_name"`
	Success  bool   `json:"success"`
	Output   any    `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`

	err error
}

// Err returns the failure as an error, or nil on success.
// Lookup and validation failures wrap ErrToolNotFound / ErrMissingParams.
func (r *Result) Err() error {
	if r == nil || r.Success {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return fmt.Errorf("%s", r.Error)
}

func (r *Result) String() string {
	status := "SUCCESS"
	if !r.Success {
		status = "FAILURE"
	}
	return fmt.Sprintf("ToolResult(%s: %s)", r.ToolName, status)
}

func successResult(name string, output any) *Result {
	return &Result{ToolName: name, Success: true, Output: output}
}

func failedResult(name, msg string, kind error) *Result {
	return &Result{ToolName: name, Success: false, Error: msg, err: fmt.Errorf("%s: %w", msg, kind)}
}

// UsageRecord log entry for one handler invocation
type UsageRecord struct {
	Tool      string         `json:"tool"`
	Params    map[string]any `json:"params"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
}
