package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/figaro/memory"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m memory.Message) int
	CountGroup(g Group, all []memory.Message) int
}

// HeuristicCounter is the default deterministic estimator.
// Rules:
//   - content: rune count plus a fixed overhead
//   - tool calls: name and argument runes plus the overhead, per call
type HeuristicCounter struct{}

// Fixed per-block overhead for deterministic counts.
const blockOverhead = 4

func (HeuristicCounter) CountMessage(m memory.Message) int {
	total := 0
	if m.Content != "" || !m.HasToolCalls() {
		total += utf8.RuneCountInString(m.Content) + blockOverhead
	}
	for _, c := range m.ToolCalls {
		total += utf8.RuneCountInString(c.Name) + utf8.RuneCount(c.Arguments) + blockOverhead
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group, all []memory.Message) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}
