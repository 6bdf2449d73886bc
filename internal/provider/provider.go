// Package provider adapts chat model backends to the conversation model used by
// the agent loop.
//
// A Client receives the sanitized history plus the tool specs offered for the
// turn and returns one assistant message. Every adapter asks its backend for
// automatic tool choice with parallel tool calls disabled, so an assistant
// message carries tool calls the loop can answer one after another.
package provider

import (
	"context"
	"errors"

	"github.com/petasbytes/toolagent/memory"
	"github.com/petasbytes/toolagent/tools"
)

// ErrModelClient matches every failure returned by a Client.
var ErrModelClient = errors.New("provider: model client failure")

// Client produces the next assistant message for a conversation.
type Client interface {
	Run(ctx context.Context, msgs []memory.Message, specs []tools.Spec) (memory.Message, error)
	Model() string
}

// Options configures a Client.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

// WithModel overrides the backend model name.
func WithModel(name string) func(*Options) {
	return func(o *Options) {
		if name != "" {
			o.Model = name
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) func(*Options) {
	return func(o *Options) { o.Temperature = t }
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int64) func(*Options) {
	return func(o *Options) {
		if n > 0 {
			o.MaxTokens = n
		}
	}
}

func applyOptions(o Options, optFns []func(*Options)) Options {
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}
