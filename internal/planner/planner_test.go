package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanBuiltins(t *testing.T) {
	p := New()

	tests := []struct {
		goal     string
		template string
		first    string
	}{
		{"Research market trends for AI startups", "research", "Gather information: Research market trends for AI startups"},
		{"Build a web scraper", "project", "Define requirements: Build a web scraper"},
		{"Learn Python decorators", "learning", "Identify topics: Learn Python decorators"},
		{"Write a blog post", "default", "Analyze goal: Write a blog post"},
		// research is checked before learning
		{"Study and master Go", "research", "Gather information: Study and master Go"},
	}

	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			assert.Equal(t, tt.template, p.Match(tt.goal))
			steps := p.Plan(tt.goal)
			require.NotEmpty(t, steps)
			assert.Equal(t, tt.first, steps[0])
		})
	}

	assert.Len(t, p.Plan("Build a web scraper"), 4)
}

func TestAddTemplate(t *testing.T) {
	p := New()

	require.NoError(t, p.AddTemplate("writing", []string{"Outline", "Draft", "Edit", "Publish"}))
	// No triggers: still the default template
	assert.Equal(t, "default", p.Match("Write a blog post"))

	steps, err := p.PlanWith("writing", "Write a blog post")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Outline: Write a blog post",
		"Draft: Write a blog post",
		"Edit: Write a blog post",
		"Publish: Write a blog post",
	}, steps)

	// With triggers a custom template wins over built-ins
	require.NoError(t, p.AddTemplate("blogging", []string{"Outline", "Publish"}, " Blog "))
	assert.Equal(t, "blogging", p.Match("Build a blog"))

	assert.Error(t, p.AddTemplate("", []string{"x"}))
	assert.Error(t, p.AddTemplate("empty", nil))

	_, err = p.PlanWith("missing", "goal")
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	p := New()
	require.NoError(t, p.AddTemplate("writing", []string{"Draft"}))
	require.NoError(t, p.AddTemplate("research", []string{"Search"}, "dig"))

	var names []string
	for _, tmpl := range p.Templates() {
		names = append(names, tmpl.Name)
	}
	// Replacing keeps the original position
	assert.Equal(t, []string{"research", "project", "learning", "default", "writing"}, names)

	steps, err := p.PlanWith("research", "topic")
	require.NoError(t, err)
	assert.Equal(t, []string{"Search: topic"}, steps)
	assert.Equal(t, "research", p.Match("dig into logs"))
	assert.Equal(t, "default", p.Match("investigate logs"))
}
