package windowing

import (
	"log/slog"

	"github.com/petasbytes/figaro/memory"
)

// Stats summarizes the result of window preparation.
type Stats struct {
	Total            int // estimated tokens for included groups only
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool // newest group alone exceeds Budget
}

// PrepareSendWindow returns the messages of msgs (oldest→newest) that fit
// within budget according to c, without splitting groups.
//
// Rules:
//   - The leading run of user messages (the query and any context placed
//     before it) is always kept and counted first.
//   - The remaining groups are included whole, scanning newest→oldest while
//     total ≤ budget.
//   - A trimmed window never starts with a non-user message.
//   - If the pinned prefix plus the newest group exceed budget, return an
//     empty window and set OverBudgetNewest.
//   - If budget ≤ 0, return msgs unchanged: windowing is disabled.
func PrepareSendWindow(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Stats) {
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}

	groups := GroupMessages(msgs)

	if budget <= 0 {
		total := 0
		for _, g := range groups {
			total += c.CountGroup(g, msgs)
		}
		return msgs, Stats{Total: total, Budget: budget, IncludedGroups: len(groups)}
	}

	overBudget := func(cost int) ([]memory.Message, Stats) {
		slog.Debug("windowing: newest group over budget", "budget", budget, "cost", cost)
		return nil, Stats{Budget: budget, SkippedGroups: len(groups), OverBudgetNewest: true}
	}

	pinned := 0
	total := 0
	for pinned < len(groups) && isUserGroup(groups[pinned], msgs) {
		total += c.CountGroup(groups[pinned], msgs)
		pinned++
	}
	if total > budget {
		return overBudget(total)
	}

	tail := groups[pinned:]
	included := 0
	for gi := len(tail) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(tail[gi], msgs)
		if total+cost > budget {
			if included == 0 {
				return overBudget(total + cost)
			}
			break
		}
		total += cost
		included++
	}

	kept := tail[len(tail)-included:]
	if pinned == 0 && included < len(tail) {
		// Trimmed without a pinned prefix: start at the first user group.
		for len(kept) > 0 && !isUserGroup(kept[0], msgs) {
			total -= c.CountGroup(kept[0], msgs)
			kept = kept[1:]
		}
		if len(kept) == 0 {
			return overBudget(total)
		}
	}

	window := make([]memory.Message, 0, len(msgs))
	for _, g := range groups[:pinned] {
		window = append(window, msgs[g.Start:g.End]...)
	}
	if len(kept) > 0 {
		window = append(window, msgs[kept[0].Start:]...)
	}
	return window, Stats{
		Total:          total,
		Budget:         budget,
		IncludedGroups: pinned + len(kept),
		SkippedGroups:  len(groups) - pinned - len(kept),
	}
}

func isUserGroup(g Group, msgs []memory.Message) bool {
	return g.Kind == GroupSingleton && msgs[g.Start].Role == memory.RoleUser
}
