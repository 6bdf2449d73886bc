package windowing

import (
	"errors"
	"fmt"

	"github.com/petasbytes/toolagent/memory"
)

// ErrNewestOverBudget means the newest group alone does not fit the token budget.
// With a sane budget this is a misconfiguration, not a recoverable state.
var ErrNewestOverBudget = errors.New("windowing: newest group exceeds token budget")

// Stats summarizes the result of window preparation.
//
// Fields:
//   - Total: estimated tokens for included groups only.
//   - Budget: the budget used; <= 0 means unlimited.
//   - IncludedGroups / SkippedGroups: groups kept and dropped.
//   - OverBudgetNewest: true when the newest single group alone exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns the newest suffix of msgs that fits within budget
// using the TokenCounter, without splitting groups.
//
// Rules:
//   - budget <= 0 keeps everything.
//   - Include whole groups scanning newest→oldest while total ≤ budget.
//   - If the newest group alone exceeds budget, return an empty window and set OverBudgetNewest.
func PrepareSendWindow(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Stats) {
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}
	groups := GroupBlocks(msgs)

	if budget <= 0 {
		total := 0
		for _, g := range groups {
			total += c.CountGroup(g, msgs)
		}
		return msgs, Stats{Total: total, Budget: budget, IncludedGroups: len(groups)}
	}

	total := 0
	included := 0
	startIdx := len(groups)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(groups[gi], msgs)
		if included == 0 && cost > budget {
			return nil, Stats{Budget: budget, SkippedGroups: len(groups), OverBudgetNewest: true}
		}
		if total+cost > budget {
			break
		}
		total += cost
		included++
		startIdx = gi
	}

	return msgs[groups[startIdx].Start:], Stats{
		Total:          total,
		Budget:         budget,
		IncludedGroups: included,
		SkippedGroups:  len(groups) - included,
	}
}

// Report combines the sanitize and window statistics of one Prepare call.
type Report struct {
	Sanitize SanitizeStats
	Window   Stats
}

// Prepare sanitizes msgs and then applies the send window.
func Prepare(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Report, error) {
	clean, sstats := Sanitize(msgs)
	window, wstats := PrepareSendWindow(clean, budget, c)
	report := Report{Sanitize: sstats, Window: wstats}
	if wstats.OverBudgetNewest {
		return nil, report, fmt.Errorf("%w (budget=%d)", ErrNewestOverBudget, budget)
	}
	return window, report, nil
}
