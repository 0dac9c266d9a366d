package tools

import (
	"fmt"
	"strings"
)

// Registry is the fixed, name-indexed tool set. It is immutable after
// construction and safe for concurrent reads.
type Registry struct {
	defs   []ToolDefinition
	byName map[string]int
}

// NewRegistry indexes defs, rejecting empty, duplicate or handler-less entries.
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{defs: make([]ToolDefinition, 0, len(defs)), byName: make(map[string]int, len(defs))}
	for _, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("tool registry: empty tool name")
		}
		if d.Function == nil {
			return nil, fmt.Errorf("tool registry: %q has no function", d.Name)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("tool registry: duplicate tool %q", d.Name)
		}
		r.byName[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (ToolDefinition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return ToolDefinition{}, false
	}
	return r.defs[i], true
}

// List returns the tools in registration order.
func (r *Registry) List() []ToolDefinition {
	out := make([]ToolDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Name
	}
	return out
}

// Toolbox returns every tool wired for the agent.
func Toolbox(env Env) []ToolDefinition {
	return []ToolDefinition{
		AddDefinition,
		SubtractDefinition,
		MultiplyDefinition,
		DivideDefinition,
		ModulusDefinition,
		PowerDefinition,
		SquareRootDefinition,
		WebSearch(env),
		WikiSearch(env),
		ArxivSearch(env),
		AnalyzeCSV(env),
		AnalyzeExcel(env),
		ExecutePythonScript(env),
		ReverseStringDefinition,
		ScrapeWebsite(env),
		ScrapeYouTube(env),
		ListFiles(env),
		ReadFile(env),
	}
}

// Default builds the registry over Toolbox(env).
func Default(env Env) (*Registry, error) {
	return NewRegistry(Toolbox(env)...)
}
