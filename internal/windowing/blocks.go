package windowing

import "github.com/petasbytes/toolagent/memory"

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupToolExchange
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
type Group struct {
	Kind     GroupKind
	Start    int  // inclusive index into msgs
	End      int  // exclusive index into msgs
	Complete bool // exchange only: the tool run answers every call id and nothing else
}

// GroupBlocks groups messages into atomic units that keep tool exchanges whole.
// An exchange is an assistant message with tool_calls plus the run of tool messages
// directly after it, so a window never starts on a tool message that belongs to an
// earlier call. Incomplete exchanges are still grouped and flagged.
func GroupBlocks(msgs []memory.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if msgs[i].HasToolCalls() {
			end := i + 1
			for end < len(msgs) && msgs[end].Role == memory.RoleTool {
				end++
			}
			groups = append(groups, Group{
				Kind:     GroupToolExchange,
				Start:    i,
				End:      end,
				Complete: answersExactly(msgs[i].ToolCalls, msgs[i+1:end]),
			})
			i = end
			continue
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

// answersExactly reports whether results cover every call id with no extras.
func answersExactly(calls []memory.ToolCall, results []memory.Message) bool {
	want := make(map[string]struct{}, len(calls))
	for _, tc := range calls {
		want[tc.ID] = struct{}{}
	}
	have := make(map[string]struct{}, len(results))
	for _, r := range results {
		if _, ok := want[r.ToolCallID]; !ok {
			return false
		}
		have[r.ToolCallID] = struct{}{}
	}
	return len(have) == len(want)
}
