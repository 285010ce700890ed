package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/hession/taskmate/internal/agent"
	"github.com/hession/taskmate/internal/memory"
	"github.com/hession/taskmate/internal/tools"
)

const defaultHistoryLimit = 10

// Commands slash command handler for the interactive shell
type Commands struct {
	agent      *agent.Agent
	exportPath string
}

// NewCommands creates a command handler. exportPath is the /export default
// and may be empty.
func NewCommands(ag *agent.Agent, exportPath string) *Commands {
	return &Commands{agent: ag, exportPath: exportPath}
}

// Handle runs a slash command and returns its output.
// exit is true when the shell should stop.
func (c *Commands) Handle(ctx context.Context, input string) (output string, exit bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "", false
	}
	args := parts[1:]

	switch strings.ToLower(parts[0]) {
	case "/help":
		return helpText(), false
	case "/exit", "/quit", "/q":
		return "Goodbye! 👋", true
	case "/tools":
		return c.tools(args), false
	case "/stats":
		return c.stats(), false
	case "/history":
		return c.history(args), false
	case "/clear":
		if err := c.agent.Memory().Clear(); err != nil {
			return fmt.Sprintf("❌ Failed to clear history: %v", err), false
		}
		return "✅ History cleared", false
	case "/export":
		return c.export(args), false
	case "/plan":
		if len(args) == 0 {
			return "❌ Usage: /plan <goal>", false
		}
		return FormatPlan(c.agent.Planner().Plan(strings.Join(args, " "))), false
	case "/task":
		return c.task(ctx, args), false
	default:
		return fmt.Sprintf("❓ Unknown command: %s\nType /help for available commands", parts[0]), false
	}
}

func (c *Commands) tools(args []string) string {
	var filter []tools.Category
	if len(args) > 0 {
		category, err := tools.ParseCategory(args[0])
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		filter = append(filter, category)
	}
	return FormatTools(c.agent.Registry().ListTools(filter...))
}

func (c *Commands) stats() string {
	var builder strings.Builder
	builder.WriteString(FormatStats(c.agent.Registry().UsageStats()))

	s := c.agent.Memory().Summary()
	builder.WriteString(fmt.Sprintf("\n📒 Task history: %d entries (%d completed, %d failed, %d started)\n",
		s.Total, s.Completed, s.Failed, s.Started))
	return builder.String()
}

func (c *Commands) history(args []string) string {
	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "❌ Usage: /history [count]"
		}
		limit = n
	}
	return FormatHistory(c.agent.Memory().Recent(limit))
}

func (c *Commands) export(args []string) string {
	path := c.exportPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return "❌ Usage: /export <path>"
	}
	if err := c.agent.Memory().ExportJSON(path); err != nil {
		return fmt.Sprintf("❌ Export failed: %v", err)
	}
	return fmt.Sprintf("✅ Exported %d entries to %s", c.agent.Memory().Len(), path)
}

// task runs "/task <description> [key=value ...]"
func (c *Commands) task(ctx context.Context, args []string) string {
	var words, pairs []string
	for _, arg := range args {
		if strings.Contains(arg, "=") {
			pairs = append(pairs, arg)
		} else {
			words = append(words, arg)
		}
	}
	if len(words) == 0 {
		return "❌ Usage: /task <description> [key=value ...]"
	}

	params, err := ParseParams(pairs)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	return FormatStep(c.agent.RunTask(ctx, strings.Join(words, " "), params))
}

// ParseParams parses key=value pairs. Values that are valid JSON (numbers,
// booleans, lists, objects) are decoded; everything else stays a string.
func ParseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}

		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil && decoded != nil {
			params[key] = decoded
		} else {
			params[key] = value
		}
	}
	return params, nil
}

// FormatTools renders a tool listing
func FormatTools(list []tools.Descriptor) string {
	if len(list) == 0 {
		return "🧰 No tools registered"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🧰 Tools (%d)\n\n", len(list)))
	for _, d := range list {
		builder.WriteString(fmt.Sprintf("  %-18s [%s] %s\n", d.Name, d.Category, d.Description))
		if len(d.RequiredParams) > 0 {
			builder.WriteString(fmt.Sprintf("  %-18s requires: %s\n", "", strings.Join(d.RequiredParams, ", ")))
		}
	}
	return builder.String()
}

// FormatStats renders usage statistics
func FormatStats(s tools.Stats) string {
	var builder strings.Builder
	builder.WriteString("📊 Tool usage\n\n")
	builder.WriteString(fmt.Sprintf("Total: %d  Success: %d  Failure: %d  Success rate: %.1f%%\n",
		s.Total, s.Success, s.Failure, s.SuccessRate()*100))

	names := make([]string, 0, len(s.ByTool))
	for name := range s.ByTool {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ts := s.ByTool[name]
		builder.WriteString(fmt.Sprintf("  %-18s %d total, %d ok, %d failed\n", name, ts.Total, ts.Success, ts.Failure))
	}
	return builder.String()
}

// FormatHistory renders memory entries, oldest first
func FormatHistory(entries []memory.Entry) string {
	if len(entries) == 0 {
		return "📋 No task history"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 Recent tasks (%d)\n\n", len(entries)))
	for _, e := range entries {
		builder.WriteString(fmt.Sprintf("%s %s %s %s\n",
			e.Timestamp.Format("15:04:05"), statusIcon(e.Status), e.Status, truncateForDisplay(e.Task, 80)))
		if e.Error != "" {
			builder.WriteString(fmt.Sprintf("         error: %s\n", truncateForDisplay(e.Error, 100)))
		}
	}
	return builder.String()
}

// FormatPlan renders planned steps as a numbered list
func FormatPlan(steps []string) string {
	var builder strings.Builder
	builder.WriteString("🗺️  Plan\n")
	for i, step := range steps {
		builder.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
	}
	return builder.String()
}

// FormatStep renders a single step outcome
func FormatStep(s agent.StepResult) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s %s", statusIcon(s.Status), s.Task))
	switch s.Source {
	case agent.SourceTool:
		builder.WriteString(fmt.Sprintf(" [tool: %s]", s.Tool))
	case agent.SourceLLM:
		builder.WriteString(" [llm]")
	}
	builder.WriteString(fmt.Sprintf(" (%dms)\n", s.Duration.Milliseconds()))

	if s.Error != "" {
		builder.WriteString(fmt.Sprintf("   error: %s\n", s.Error))
	} else if s.Output != nil {
		builder.WriteString(fmt.Sprintf("   %s\n", truncateForDisplay(formatOutput(s.Output), 300)))
	}
	return builder.String()
}

// FormatReport renders a goal run summary
func FormatReport(r *agent.Report) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("\n🏁 %s (template: %s)\n", r.Goal, r.Template))
	builder.WriteString(fmt.Sprintf("   %d steps, %d failed, %dms\n", len(r.Steps), r.Failed(), r.Duration.Milliseconds()))
	return builder.String()
}

func formatOutput(output any) string {
	if s, ok := output.(string); ok {
		return s
	}
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Sprintf("%v", output)
	}
	return string(data)
}

func statusIcon(status memory.Status) string {
	switch status {
	case memory.StatusCompleted:
		return "✅"
	case memory.StatusFailed:
		return "❌"
	default:
		return "⏳"
	}
}

// truncateForDisplay flattens newlines and truncates text for display
func truncateForDisplay(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

var commandSuggestions = []prompt.Suggest{
	{Text: "/help", Description: "Show help"},
	{Text: "/tools", Description: "List tools, optionally by category"},
	{Text: "/stats", Description: "Show tool usage statistics"},
	{Text: "/history", Description: "Show recent task history"},
	{Text: "/clear", Description: "Clear task history"},
	{Text: "/export", Description: "Export task history to JSON"},
	{Text: "/plan", Description: "Show the plan for a goal"},
	{Text: "/task", Description: "Run a single task with key=value params"},
	{Text: "/exit", Description: "Exit"},
}

// completer suggests slash commands
func completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	if !strings.HasPrefix(text, "/") || strings.Contains(text, " ") {
		return []prompt.Suggest{}
	}
	return prompt.FilterHasPrefix(commandSuggestions, d.GetWordBeforeCursor(), true)
}

func helpText() string {
	return `
📚 TaskMate Help

Type a goal to plan and run it, or use a command:
  /tools [category]        - List tools (web, file, data, calculation, communication, system)
  /stats                   - Show tool usage statistics
  /history [count]         - Show recent task history
  /clear                   - Clear task history
  /export [path]           - Export task history to JSON
  /plan <goal>             - Show the plan for a goal without running it
  /task <text> [k=v ...]   - Run a single task, e.g. /task calculate expression="2*21"
  /help                    - Show this help message
  /exit                    - Exit program

Examples:
  Calculate the sum of 10 and 20
  /task Read file filepath=/tmp/notes.txt
  /task Transform data data=[3,1,2] operation=sort
`
}
