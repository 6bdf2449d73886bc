package provider_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolagent/internal/provider"
	"github.com/petasbytes/toolagent/memory"
	"github.com/petasbytes/toolagent/tools"
)

func newOpenAI(rt http.RoundTripper, optFns ...func(*provider.Options)) *provider.OpenAIClient {
	c := openai.NewClient(
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return provider.NewOpenAIClientFrom(&c, optFns...)
}

var weatherSpec = tools.Spec{
	Name:        "get_weather",
	Description: "Weather.",
	Parameters: map[string]any{
		"type":       "object",
		"properties": map[string]any{"location": map[string]any{"type": "string"}},
		"required":   []any{"location"},
	},
}

const openAIToolCallResponse = `{
  "id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4.1-mini",
  "choices": [{
    "index": 0, "finish_reason": "tool_calls",
    "message": {
      "role": "assistant", "content": null, "refusal": null,
      "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"location\":\"Paris\"}"}}]
    }
  }]
}`

func TestOpenAI_RequestShape(t *testing.T) {
	capReq := &capture{}
	c := newOpenAI(&fakeTransport{respStatus: 200, respBody: []byte(openAIToolCallResponse), captured: capReq})
	require.Equal(t, provider.DefaultOpenAIModel, c.Model())

	history := []memory.Message{
		memory.UserMessage("weather in Paris?"),
		{Role: memory.RoleAssistant, ToolCalls: []memory.ToolCall{memory.NewToolCall("call_0", "get_weather", `{"location":"Paris"}`)}},
		memory.ToolResultMessage("call_0", "sunny"),
	}
	_, err := c.Run(context.Background(), history, []tools.Spec{weatherSpec})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, capReq.method)
	assert.Equal(t, "/v1/chat/completions", capReq.path)

	body := decodeBody(t, capReq)
	assert.Equal(t, "gpt-4.1-mini", body["model"])
	assert.Equal(t, 0.1, body["temperature"])
	assert.Equal(t, false, body["parallel_tool_calls"])
	assert.Equal(t, "auto", body["tool_choice"])

	toolDefs := body["tools"].([]any)
	require.Len(t, toolDefs, 1)
	fn := toolDefs[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "get_weather", fn["name"])
	assert.Equal(t, "Weather.", fn["description"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	asst := msgs[1].(map[string]any)
	assert.Equal(t, "assistant", asst["role"])
	call := asst["tool_calls"].([]any)[0].(map[string]any)
	assert.Equal(t, "call_0", call["id"])
	assert.Equal(t, "function", call["type"])
	tool := msgs[2].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_0", tool["tool_call_id"])
	assert.Equal(t, "sunny", tool["content"])
}

func TestOpenAI_NoSpecsOmitsToolFields(t *testing.T) {
	capReq := &capture{}
	resp := `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hi"}}]}`
	c := newOpenAI(&fakeTransport{respStatus: 200, respBody: []byte(resp), captured: capReq}, provider.WithModel("gpt-4o"))

	_, err := c.Run(context.Background(), []memory.Message{memory.UserMessage("hi")}, nil)
	require.NoError(t, err)

	body := decodeBody(t, capReq)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.NotContains(t, body, "tools")
	assert.NotContains(t, body, "tool_choice")
	assert.NotContains(t, body, "parallel_tool_calls")
}

func TestOpenAI_ToolCallResponse(t *testing.T) {
	c := newOpenAI(&fakeTransport{respStatus: 200, respBody: []byte(openAIToolCallResponse)})

	msg, err := c.Run(context.Background(), []memory.Message{memory.UserMessage("weather?")}, []tools.Spec{weatherSpec})
	require.NoError(t, err)

	assert.Equal(t, memory.RoleAssistant, msg.Role)
	assert.Nil(t, msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, memory.NewToolCall("call_1", "get_weather", `{"location":"Paris"}`), msg.ToolCalls[0])
}

func TestOpenAI_TextResponseWithAnnotationsAndRefusal(t *testing.T) {
	resp := `{
	  "id": "x", "object": "chat.completion", "created": 1, "model": "m",
	  "choices": [{
	    "index": 0, "finish_reason": "stop",
	    "message": {
	      "role": "assistant", "content": "It is sunny.", "refusal": "partly",
	      "annotations": [{"type": "url_citation", "url_citation": {"start_index": 0, "end_index": 3, "title": "t", "url": "https://example.com"}}]
	    }
	  }]
	}`
	c := newOpenAI(&fakeTransport{respStatus: 200, respBody: []byte(resp)})

	msg, err := c.Run(context.Background(), []memory.Message{memory.UserMessage("weather?")}, nil)
	require.NoError(t, err)

	assert.Equal(t, "It is sunny.", msg.Text())
	require.NotNil(t, msg.Refusal)
	assert.Equal(t, "partly", *msg.Refusal)
	require.Len(t, msg.Annotations, 1)
	assert.JSONEq(t, `{"type":"url_citation","url_citation":{"start_index":0,"end_index":3,"title":"t","url":"https://example.com"}}`, string(msg.Annotations[0]))
	assert.Empty(t, msg.ToolCalls)
}

func TestOpenAI_ErrorsWrapModelClient(t *testing.T) {
	c := newOpenAI(&fakeTransport{respStatus: 500, respBody: []byte(`{"error":{"message":"boom","type":"server_error"}}`)})

	_, err := c.Run(context.Background(), []memory.Message{memory.UserMessage("hi")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrModelClient)
}

func TestOpenAI_NoChoices(t *testing.T) {
	c := newOpenAI(&fakeTransport{respStatus: 200, respBody: []byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)})

	_, err := c.Run(context.Background(), []memory.Message{memory.UserMessage("hi")}, nil)
	assert.ErrorIs(t, err, provider.ErrModelClient)
}
