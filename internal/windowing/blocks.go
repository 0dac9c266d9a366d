package windowing

import (
	"log/slog"

	"github.com/petasbytes/figaro/memory"
)

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupToolExchange
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
type Group struct {
	Kind  GroupKind
	Start int // inclusive index into msgs
	End   int // exclusive index into msgs
}

// GroupMessages splits msgs into atomic units that keep tool exchanges whole.
// A tool exchange is an assistant message with tool calls immediately followed
// by tool messages answering exactly those calls, in any order. Anything else,
// including an incomplete exchange, falls back to singletons.
func GroupMessages(msgs []memory.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if end, ok := exchangeEnd(msgs, i); ok {
			groups = append(groups, Group{Kind: GroupToolExchange, Start: i, End: end})
			i = end
			continue
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

// exchangeEnd returns the exclusive end of a complete tool exchange starting at i.
func exchangeEnd(msgs []memory.Message, i int) (int, bool) {
	m := msgs[i]
	if m.Role != memory.RoleAssistant || !m.HasToolCalls() {
		return 0, false
	}
	want := make(map[string]struct{}, len(m.ToolCalls))
	for _, c := range m.ToolCalls {
		want[c.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(want))
	j := i + 1
	for ; j < len(msgs) && msgs[j].Role == memory.RoleTool; j++ {
		id := msgs[j].ToolCallID
		if _, ok := want[id]; !ok {
			slog.Debug("windowing: exclude exchange", "reason", "extra_result", "idx", i)
			return 0, false
		}
		seen[id] = struct{}{}
	}
	if len(seen) != len(want) {
		slog.Debug("windowing: exclude exchange", "reason", "missing_results", "idx", i)
		return 0, false
	}
	return j, true
}
