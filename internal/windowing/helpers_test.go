package windowing_test

import (
	"github.com/petasbytes/toolagent/internal/windowing"
	"github.com/petasbytes/toolagent/memory"
)

// User message constructor
func User(text string) memory.Message { return memory.UserMessage(text) }

// Assistant text message constructor
func Asst(text string) memory.Message {
	return memory.Message{Role: memory.RoleAssistant, Content: memory.Text(text)}
}

// Assistant message requesting tools "f" with arguments "{}" for each id
func AsstCalls(ids ...string) memory.Message {
	calls := make([]memory.ToolCall, len(ids))
	for i, id := range ids {
		calls[i] = memory.NewToolCall(id, "f", "{}")
	}
	return memory.Message{Role: memory.RoleAssistant, ToolCalls: calls}
}

// Tool result constructor
func Tool(id, text string) memory.Message { return memory.ToolResultMessage(id, text) }

// groupsEqual is a small utility used by grouping tests.
func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
