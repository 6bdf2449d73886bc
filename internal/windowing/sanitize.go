// Package windowing shapes the stored conversation into the request history sent
// to the model.
//
// Invariant:
//   - every tool message in the output follows (possibly after sibling tool
//     messages) the assistant message whose tool_calls carry its id.
//
// Flow:
//
//	stored log -> Sanitize (drop orphans, strip metadata) -> PrepareSendWindow (optional budget) -> model
package windowing

import "github.com/petasbytes/toolagent/memory"

// SanitizeStats reports what a Sanitize pass did.
type SanitizeStats struct {
	Input          int
	Emitted        int
	DroppedOrphans int
}

// Sanitize makes a single forward pass over msgs and returns a protocol-valid history.
//
// Rules:
//   - A tool message is emitted as {role, tool_call_id, content} only while the last
//     emitted non-tool message is an assistant message with a pending call of that id.
//     Otherwise it is an orphan: dropped and counted, never an error.
//   - Any other message resets the pending set to its tool call ids (empty unless it is
//     an assistant message with tool_calls) and is emitted as {role, content}, plus
//     tool_calls when it has some.
//   - Content defaults to "" through memory.Normalize.
//
// Adjacency is judged on the output stream, so non-tool messages stored between a
// call and its result cause the result to be dropped. Sanitize is idempotent.
func Sanitize(msgs []memory.Message) ([]memory.Message, SanitizeStats) {
	stats := SanitizeStats{Input: len(msgs)}
	out := make([]memory.Message, 0, len(msgs))
	pending := map[string]struct{}{}

	for _, m := range msgs {
		if m.Role == memory.RoleTool {
			if _, ok := pending[m.ToolCallID]; !ok {
				stats.DroppedOrphans++
				continue
			}
			// Each call is answered once; a repeat is an orphan.
			delete(pending, m.ToolCallID)
			out = append(out, memory.Normalize(memory.Message{
				Role:       memory.RoleTool,
				ToolCallID: m.ToolCallID,
				Content:    m.Content,
			}))
			continue
		}

		pending = map[string]struct{}{}
		clean := memory.Message{Role: m.Role, Content: m.Content}
		if m.HasToolCalls() {
			clean.ToolCalls = append([]memory.ToolCall(nil), m.ToolCalls...)
			for _, tc := range m.ToolCalls {
				pending[tc.ID] = struct{}{}
			}
		}
		out = append(out, memory.Normalize(clean))
	}
	stats.Emitted = len(out)
	return out, stats
}
