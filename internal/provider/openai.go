package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/petasbytes/toolagent/internal/telemetry"
	"github.com/petasbytes/toolagent/memory"
	"github.com/petasbytes/toolagent/tools"
)

// DefaultOpenAIModel is the chat completions model used when none is configured.
const DefaultOpenAIModel = "gpt-4.1-mini"

// DefaultTemperature keeps tool selection close to deterministic.
const DefaultTemperature = 0.1

// OpenAIClient talks to the Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	opts   Options
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient returns a client for apiKey. An empty key falls back to
// OPENAI_API_KEY from the environment.
func NewOpenAIClient(apiKey string, optFns ...func(*Options)) *OpenAIClient {
	var reqOpts []option.RequestOption
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	c := openai.NewClient(reqOpts...)
	return NewOpenAIClientFrom(&c, optFns...)
}

// NewOpenAIClientFrom wraps an already configured SDK client.
func NewOpenAIClientFrom(c *openai.Client, optFns ...func(*Options)) *OpenAIClient {
	opts := applyOptions(Options{Model: DefaultOpenAIModel, Temperature: DefaultTemperature}, optFns)
	return &OpenAIClient{client: c, opts: opts}
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string { return c.opts.Model }

// Run sends msgs and returns the first choice as an assistant message.
func (c *OpenAIClient) Run(ctx context.Context, msgs []memory.Message, specs []tools.Spec) (memory.Message, error) {
	params := c.buildParams(msgs, specs)
	telemetry.PersistPayload(ctx, "openai-request", params)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return memory.Message{}, fmt.Errorf("%w: openai: %w", ErrModelClient, err)
	}
	telemetry.PersistPayload(ctx, "openai-response", json.RawMessage(resp.RawJSON()))

	if len(resp.Choices) == 0 {
		return memory.Message{}, fmt.Errorf("%w: openai: %w", ErrModelClient, errors.New("no choices returned"))
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func (c *OpenAIClient) buildParams(msgs []memory.Message, specs []tools.Spec) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       c.opts.Model,
		Messages:    toOpenAIMessages(msgs),
		Temperature: openai.Float(c.opts.Temperature),
	}
	if c.opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.opts.MaxTokens)
	}
	if len(specs) == 0 {
		return params
	}
	defs := make([]openai.ChatCompletionToolParam, len(specs))
	for i, s := range specs {
		defs[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        s.Name,
				Description: openai.String(s.Description),
				Parameters:  s.Parameters,
			},
		}
	}
	params.Tools = defs
	params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	params.ParallelToolCalls = openai.Bool(false)
	return params
}

func toOpenAIMessages(msgs []memory.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case memory.RoleSystem:
			out = append(out, openai.SystemMessage(m.Text()))
		case memory.RoleUser:
			out = append(out, openai.UserMessage(m.Text()))
		case memory.RoleTool:
			out = append(out, openai.ToolMessage(m.Text(), m.ToolCallID))
		case memory.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Text()))
				continue
			}
			asst := &openai.ChatCompletionAssistantMessageParam{
				ToolCalls: make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls)),
			}
			if text := m.Text(); text != "" {
				asst.Content.OfString = openai.String(text)
			}
			for i, tc := range m.ToolCalls {
				asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: asst})
		}
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) memory.Message {
	out := memory.Message{Role: memory.RoleAssistant}
	if msg.Content != "" || len(msg.ToolCalls) == 0 {
		out.Content = memory.Text(msg.Content)
	}
	if msg.Refusal != "" {
		out.Refusal = memory.Text(msg.Refusal)
	}
	for _, a := range msg.Annotations {
		out.Annotations = append(out.Annotations, json.RawMessage(a.RawJSON()))
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, memory.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}
	return out
}
