package memory

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the four chat protocol roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool, RoleSystem:
		return true
	}
	return false
}

// ToolCall is a model request to invoke a named tool. The JSON shape matches the
// chat completions wire format so it round-trips through the encoded tool_calls column.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewToolCall returns a function-typed tool call.
func NewToolCall(id, name, arguments string) ToolCall {
	return ToolCall{ID: id, Type: "function", Function: FunctionCall{Name: name, Arguments: arguments}}
}

// Message is a single persisted conversation turn.
// ID, Seq and CreatedAt are assigned by the Store on Append.
type Message struct {
	ID          string            `json:"id,omitempty"`
	Seq         int64             `json:"seq,omitempty"`
	Role        Role              `json:"role"`
	Content     *string           `json:"content"`
	ToolCallID  string            `json:"tool_call_id,omitempty"`
	ToolCalls   []ToolCall        `json:"tool_calls,omitempty"`
	Refusal     *string           `json:"refusal,omitempty"`
	Annotations []json.RawMessage `json:"annotations"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Text returns a pointer to s, for optional text fields.
func Text(s string) *string { return &s }

// Text returns the message content, or "" when absent.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// HasToolCalls reports whether m is an assistant message requesting tools.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// UserMessage builds a user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: Text(text)}
}

// ToolResultMessage builds a tool turn answering the call with the given id.
func ToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Content: Text(content)}
}

// Normalize applies the message defaults in one place:
// content "" when absent, annotations [] when absent.
func Normalize(m Message) Message {
	if m.Content == nil {
		m.Content = Text("")
	}
	if m.Annotations == nil {
		m.Annotations = []json.RawMessage{}
	}
	return m
}

// Validate checks the structural rules a message must satisfy before it is stored.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, m.Role)
	}
	if m.ToolCallID != "" && m.Role != RoleTool {
		return fmt.Errorf("%w: tool_call_id on %s message", ErrInvalidMessage, m.Role)
	}
	if len(m.ToolCalls) > 0 && m.Role != RoleAssistant {
		return fmt.Errorf("%w: tool_calls on %s message", ErrInvalidMessage, m.Role)
	}
	seen := make(map[string]struct{}, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		if tc.ID == "" {
			return fmt.Errorf("%w: tool call without id", ErrInvalidMessage)
		}
		if _, dup := seen[tc.ID]; dup {
			return fmt.Errorf("%w: duplicate tool call id %q", ErrInvalidMessage, tc.ID)
		}
		seen[tc.ID] = struct{}{}
	}
	return nil
}

func cloneMessage(m Message) Message {
	if m.Content != nil {
		m.Content = Text(*m.Content)
	}
	if m.Refusal != nil {
		m.Refusal = Text(*m.Refusal)
	}
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	if m.Annotations != nil {
		anns := make([]json.RawMessage, len(m.Annotations))
		for i, a := range m.Annotations {
			anns[i] = append(json.RawMessage(nil), a...)
		}
		m.Annotations = anns
	}
	return m
}
