// Package planner breaks a goal into ordered steps using keyword templates.
package planner

import (
	"fmt"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultTemplate is used when no template's triggers match the goal
const DefaultTemplate = "default"

// Template a named list of steps
type Template struct {
	Name     string   `json:"name"`
	Steps    []string `json:"steps"`
	Triggers []string `json:"triggers,omitempty"`
	custom   bool
}

// Planner keyword-driven goal decomposition
type Planner struct {
	mu        sync.RWMutex
	templates *orderedmap.OrderedMap[string, Template]
}

// New creates a planner with the built-in templates
func New() *Planner {
	p := &Planner{templates: orderedmap.New[string, Template]()}
	for _, t := range []Template{
		{Name: "research", Steps: []string{"Gather information", "Review sources", "Summarize findings"}, Triggers: []string{"research", "investigate", "study"}},
		{Name: "project", Steps: []string{"Define requirements", "Plan approach", "Execute", "Review"}, Triggers: []string{"build", "create", "develop", "project"}},
		{Name: "learning", Steps: []string{"Identify topics", "Study materials", "Practice", "Test knowledge"}, Triggers: []string{"learn", "understand", "master"}},
		{Name: DefaultTemplate, Steps: []string{"Analyze goal", "Break into steps", "Prioritize", "Execute"}},
	} {
		p.templates.Set(t.Name, t)
	}
	return p
}

// AddTemplate registers or replaces a template. Custom templates with
// triggers are matched before the built-in ones; without triggers the
// template is only reachable through PlanWith.
func (p *Planner) AddTemplate(name string, steps []string, triggers ...string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	if len(steps) == 0 {
		return fmt.Errorf("template %s needs at least one step", name)
	}

	lowered := make([]string, 0, len(triggers))
	for _, trigger := range triggers {
		if trigger = strings.ToLower(strings.TrimSpace(trigger)); trigger != "" {
			lowered = append(lowered, trigger)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.templates.Set(name, Template{
		Name:     name,
		Steps:    append([]string(nil), steps...),
		Triggers: lowered,
		custom:   true,
	})
	return nil
}

// Match returns the name of the template chosen for goal
func (p *Planner) Match(goal string) string {
	goalLower := strings.ToLower(goal)

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, custom := range []bool{true, false} {
		for pair := p.templates.Oldest(); pair != nil; pair = pair.Next() {
			t := pair.Value
			if t.custom != custom || t.Name == DefaultTemplate {
				continue
			}
			for _, trigger := range t.Triggers {
				if strings.Contains(goalLower, trigger) {
					return t.Name
				}
			}
		}
	}
	return DefaultTemplate
}

// Plan returns the steps for goal, each formatted as "<step>: <goal>"
func (p *Planner) Plan(goal string) []string {
	steps, _ := p.PlanWith(p.Match(goal), goal)
	return steps
}

// PlanWith applies the named template to goal
func (p *Planner) PlanWith(name, goal string) ([]string, error) {
	p.mu.RLock()
	t, ok := p.templates.Get(name)
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown plan template: %s", name)
	}

	out := make([]string, len(t.Steps))
	for i, step := range t.Steps {
		out[i] = fmt.Sprintf("%s: %s", step, goal)
	}
	return out, nil
}

// Templates lists templates in registration order
func (p *Planner) Templates() []Template {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Template, 0, p.templates.Len())
	for pair := p.templates.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
