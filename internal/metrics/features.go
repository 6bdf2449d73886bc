// Package metrics derives text-free size features from messages so telemetry
// can describe a turn without recording what was said.
package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/toolagent/memory"
)

// Features holds basic local text features derived from an input string.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountFeatures computes and returns byte, rune, word, and line counts for the input string.
func CountFeatures(s string) Features {
	return Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
		Lines: countLines(s),
	}
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}

func (f Features) add(o Features) Features {
	return Features{Bytes: f.Bytes + o.Bytes, Runes: f.Runes + o.Runes, Words: f.Words + o.Words, Lines: f.Lines + o.Lines}
}

// Fields renders f for a telemetry event.
func (f Features) Fields() map[string]any {
	return map[string]any{"bytes": f.Bytes, "runes": f.Runes, "words": f.Words, "lines": f.Lines}
}

// Conversation summarizes a message list.
type Conversation struct {
	Messages  int
	ByRole    map[memory.Role]int
	ToolCalls int
	Content   Features
}

// Summarize counts messages per role, tool calls, and content features across msgs.
func Summarize(msgs []memory.Message) Conversation {
	c := Conversation{Messages: len(msgs), ByRole: map[memory.Role]int{}}
	for _, m := range msgs {
		c.ByRole[m.Role]++
		c.ToolCalls += len(m.ToolCalls)
		c.Content = c.Content.add(CountFeatures(m.Text()))
	}
	return c
}

// Fields renders c for a telemetry event.
func (c Conversation) Fields() map[string]any {
	roles := make(map[string]any, len(c.ByRole))
	for r, n := range c.ByRole {
		roles[string(r)] = n
	}
	return map[string]any{
		"messages":   c.Messages,
		"by_role":    roles,
		"tool_calls": c.ToolCalls,
		"content":    c.Content.Fields(),
	}
}
