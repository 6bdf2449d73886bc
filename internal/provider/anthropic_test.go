package provider_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolagent/internal/provider"
	"github.com/petasbytes/toolagent/memory"
	"github.com/petasbytes/toolagent/tools"
)

func newAnthropic(rt http.RoundTripper, optFns ...func(*provider.Options)) *provider.AnthropicClient {
	c := anthropic.NewClient(
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return provider.NewAnthropicClientFrom(&c, optFns...)
}

const anthropicToolUseResponse = `{
  "id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-7-sonnet-latest",
  "content": [
    {"type": "text", "text": "Let me check."},
    {"type": "tool_use", "id": "tu_1", "name": "get_weather", "input": {"location": "Paris"}}
  ],
  "stop_reason": "tool_use", "stop_sequence": null,
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`

func TestAnthropic_RequestShape(t *testing.T) {
	capReq := &capture{}
	c := newAnthropic(&fakeTransport{respStatus: 200, respBody: []byte(anthropicToolUseResponse), captured: capReq})

	history := []memory.Message{
		{Role: memory.RoleSystem, Content: memory.Text("be brief")},
		memory.UserMessage("weather and calendar?"),
		{Role: memory.RoleAssistant, ToolCalls: []memory.ToolCall{
			memory.NewToolCall("a", "get_weather", `{"location":"Paris"}`),
			memory.NewToolCall("b", "get_calendar_events", ``),
		}},
		memory.ToolResultMessage("a", "sunny"),
		memory.ToolResultMessage("b", "Error executing: get_calendar_events: tool execution error: quota"),
	}
	_, err := c.Run(context.Background(), history, []tools.Spec{weatherSpec})
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", capReq.path)
	body := decodeBody(t, capReq)
	assert.Equal(t, provider.DefaultAnthropicModel, body["model"])
	assert.EqualValues(t, 1024, body["max_tokens"])

	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "be brief", system[0].(map[string]any)["text"])

	choice := body["tool_choice"].(map[string]any)
	assert.Equal(t, "auto", choice["type"])
	assert.Equal(t, true, choice["disable_parallel_tool_use"])

	toolDefs := body["tools"].([]any)
	require.Len(t, toolDefs, 1)
	def := toolDefs[0].(map[string]any)
	assert.Equal(t, "get_weather", def["name"])
	schema := def["input_schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"location"}, schema["required"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3, "tool results should fold into one user message")

	asst := msgs[1].(map[string]any)
	assert.Equal(t, "assistant", asst["role"])
	blocks := asst["content"].([]any)
	require.Len(t, blocks, 2)
	second := blocks[1].(map[string]any)
	assert.Equal(t, "tool_use", second["type"])
	assert.Equal(t, map[string]any{}, second["input"])

	results := msgs[2].(map[string]any)
	assert.Equal(t, "user", results["role"])
	resBlocks := results["content"].([]any)
	require.Len(t, resBlocks, 2)
	first := resBlocks[0].(map[string]any)
	assert.Equal(t, "tool_result", first["type"])
	assert.Equal(t, "a", first["tool_use_id"])
	assert.Equal(t, false, first["is_error"])
	assert.Equal(t, true, resBlocks[1].(map[string]any)["is_error"])
}

func TestAnthropic_ToolUseResponse(t *testing.T) {
	c := newAnthropic(&fakeTransport{respStatus: 200, respBody: []byte(anthropicToolUseResponse)})

	msg, err := c.Run(context.Background(), []memory.Message{memory.UserMessage("weather?")}, []tools.Spec{weatherSpec})
	require.NoError(t, err)

	assert.Equal(t, memory.RoleAssistant, msg.Role)
	assert.Equal(t, "Let me check.", msg.Text())
	require.Len(t, msg.ToolCalls, 1)
	tc := msg.ToolCalls[0]
	assert.Equal(t, "tu_1", tc.ID)
	assert.Equal(t, "get_weather", tc.Function.Name)
	assert.JSONEq(t, `{"location":"Paris"}`, tc.Function.Arguments)
}

func TestAnthropic_TextOnlyResponse(t *testing.T) {
	resp := `{"id":"m","type":"message","role":"assistant","model":"x","content":[{"type":"text","text":"Sunny."}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`
	c := newAnthropic(&fakeTransport{respStatus: 200, respBody: []byte(resp)}, provider.WithModel("claude-x"))
	require.Equal(t, "claude-x", c.Model())

	msg, err := c.Run(context.Background(), []memory.Message{memory.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Sunny.", msg.Text())
	assert.Empty(t, msg.ToolCalls)
}

func TestAnthropic_ErrorsWrapModelClient(t *testing.T) {
	resp := `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`
	c := newAnthropic(&fakeTransport{respStatus: 400, respBody: []byte(resp)})

	_, err := c.Run(context.Background(), []memory.Message{memory.UserMessage("hi")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrModelClient)
}
