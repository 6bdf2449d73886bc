package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/toolagent/memory"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m memory.Message) int
	CountGroup(g Group, all []memory.Message) int
}

// HeuristicCounter is the default deterministic estimator.
// Rules:
//   - content: rune count plus a fixed overhead
//   - each tool call: runes of its name and raw arguments plus the overhead
type HeuristicCounter struct{}

// Fixed per-part overhead; changing it requires updating the counter tests.
const partOverhead = 4

func (HeuristicCounter) CountMessage(m memory.Message) int {
	total := utf8.RuneCountInString(m.Text()) + partOverhead
	for _, tc := range m.ToolCalls {
		total += utf8.RuneCountInString(tc.Function.Name) + utf8.RuneCountInString(tc.Function.Arguments) + partOverhead
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
