package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/petasbytes/toolagent/internal/telemetry"
	"github.com/petasbytes/toolagent/memory"
	"github.com/petasbytes/toolagent/tools"
)

// DefaultAnthropicModel is the Messages API model used when none is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaude3_7SonnetLatest)

const defaultAnthropicMaxTokens = 1024

// toolErrorPrefix marks tool results the dispatcher rendered from an error.
const toolErrorPrefix = "Error executing: "

// AnthropicClient talks to the Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	opts   Options
}

var _ Client = (*AnthropicClient)(nil)

// NewAnthropicClient returns a client for apiKey. An empty key falls back to
// ANTHROPIC_API_KEY from the environment.
func NewAnthropicClient(apiKey string, optFns ...func(*Options)) *AnthropicClient {
	var reqOpts []option.RequestOption
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	c := anthropic.NewClient(reqOpts...)
	return NewAnthropicClientFrom(&c, optFns...)
}

// NewAnthropicClientFrom wraps an already configured SDK client.
func NewAnthropicClientFrom(c *anthropic.Client, optFns ...func(*Options)) *AnthropicClient {
	opts := applyOptions(Options{
		Model:       DefaultAnthropicModel,
		Temperature: DefaultTemperature,
		MaxTokens:   defaultAnthropicMaxTokens,
	}, optFns)
	return &AnthropicClient{client: c, opts: opts}
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() string { return c.opts.Model }

// Run sends msgs and maps the response content blocks onto one assistant message.
func (c *AnthropicClient) Run(ctx context.Context, msgs []memory.Message, specs []tools.Spec) (memory.Message, error) {
	params := c.buildParams(msgs, specs)
	telemetry.PersistPayload(ctx, "anthropic-request", params)

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return memory.Message{}, fmt.Errorf("%w: anthropic: %w", ErrModelClient, err)
	}
	telemetry.PersistPayload(ctx, "anthropic-response", json.RawMessage(resp.RawJSON()))
	return fromAnthropicMessage(resp), nil
}

func (c *AnthropicClient) buildParams(msgs []memory.Message, specs []tools.Spec) anthropic.MessageNewParams {
	system, conv := toAnthropicMessages(msgs)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		MaxTokens:   c.opts.MaxTokens,
		Messages:    conv,
		Temperature: anthropic.Float(c.opts.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(specs) == 0 {
		return params
	}
	params.Tools = make([]anthropic.ToolUnionParam, len(specs))
	for i, s := range specs {
		params.Tools[i] = anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        s.Name,
			Description: anthropic.String(s.Description),
			InputSchema: inputSchema(s.Parameters),
		}}
	}
	params.ToolChoice = anthropic.ToolChoiceUnionParam{
		OfAuto: &anthropic.ToolChoiceAutoParam{DisableParallelToolUse: anthropic.Bool(true)},
	}
	return params
}

func inputSchema(params map[string]any) anthropic.ToolInputSchemaParam {
	schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
	if props, ok := params["properties"]; ok {
		schema.Properties = props
	}
	switch req := params["required"].(type) {
	case []string:
		schema.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	return schema
}

// toAnthropicMessages splits system text out of the conversation and folds
// consecutive tool results into a single user message of tool_result blocks.
func toAnthropicMessages(msgs []memory.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var (
		system  []anthropic.TextBlockParam
		out     []anthropic.MessageParam
		inTools bool
	)
	for _, m := range msgs {
		text := m.Text()
		if m.Role == memory.RoleTool {
			block := anthropic.NewToolResultBlock(m.ToolCallID, text, strings.HasPrefix(text, toolErrorPrefix))
			if inTools {
				last := &out[len(out)-1]
				last.Content = append(last.Content, block)
			} else {
				out = append(out, anthropic.NewUserMessage(block))
				inTools = true
			}
			continue
		}
		inTools = false

		switch m.Role {
		case memory.RoleSystem:
			if text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
		case memory.RoleUser:
			if text != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		case memory.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, toolInput(tc.Function.Arguments), tc.Function.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	return system, out
}

// toolInput returns the call arguments as a JSON object value. The API rejects
// tool_use blocks whose input is not an object.
func toolInput(args string) any {
	var v map[string]any
	if err := json.Unmarshal([]byte(args), &v); err != nil || v == nil {
		return map[string]any{}
	}
	return v
}

func fromAnthropicMessage(resp *anthropic.Message) memory.Message {
	out := memory.Message{Role: memory.RoleAssistant}
	var texts []string
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			texts = append(texts, v.Text)
		case anthropic.ToolUseBlock:
			args := v.JSON.Input.Raw()
			if args == "" {
				args = "{}"
			}
			out.ToolCalls = append(out.ToolCalls, memory.NewToolCall(v.ID, v.Name, args))
		}
	}
	if len(texts) > 0 || len(out.ToolCalls) == 0 {
		out.Content = memory.Text(strings.Join(texts, "\n"))
	}
	if resp.StopReason == "refusal" {
		out.Refusal = memory.Text(strings.Join(texts, "\n"))
	}
	return out
}
