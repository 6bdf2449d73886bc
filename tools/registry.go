package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/petasbytes/toolagent/memory"
)

// DispatchContext is turn-level input shared by every call in the turn.
type DispatchContext struct {
	UserMessage string
}

// Result is the outcome of one dispatch. Err is nil on success; otherwise it is a
// *DispatchError and Content holds the error text sent to the model.
type Result struct {
	ToolCallID string
	Name       string
	Content    string
	Err        error
	Duration   time.Duration
}

// Message returns the tool-role message recording r.
func (r Result) Message() memory.Message {
	return memory.ToolResultMessage(r.ToolCallID, r.Content)
}

// Registry maps tool names to definitions, in registration order.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry returns a registry holding defs. Duplicate names are an error.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds def.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.run == nil {
		return fmt.Errorf("tools: register: definition %q was not built with New", def.Name)
	}
	if _, dup := r.defs[def.Name]; dup {
		return fmt.Errorf("tools: register: duplicate tool %q", def.Name)
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Specs returns the specs for names, or for every tool when names is empty.
// Unknown names are skipped.
func (r *Registry) Specs(names ...string) []Spec {
	if len(names) == 0 {
		names = r.order
	}
	out := make([]Spec, 0, len(names))
	for _, n := range names {
		if d, ok := r.defs[n]; ok {
			out = append(out, d.Spec)
		}
	}
	return out
}

// Dispatch runs one tool call. It never returns an error: every failure is
// recorded in the Result and rendered into its Content.
//
// Steps:
//   - parse: empty arguments mean {}; anything that is not a JSON object is ErrArgumentParse.
//   - resolve: unregistered names are ErrUnknownTool.
//   - validate: strict decode into the tool's argument type plus Validator, ErrArgumentValidation.
//   - execute: handler errors and panics are ErrToolExecution.
func (r *Registry) Dispatch(ctx context.Context, call memory.ToolCall, dc DispatchContext) (res Result) {
	name := call.Function.Name
	res = Result{ToolCallID: call.ID, Name: name}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if res.Err != nil {
			res.Content = fmt.Sprintf("Error executing: %s: %v", name, res.Err)
		}
	}()

	raw := strings.TrimSpace(call.Function.Arguments)
	if raw == "" {
		raw = "{}"
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		res.Err = &DispatchError{Kind: ErrArgumentParse, Tool: name, Err: err}
		return res
	}

	def, ok := r.defs[name]
	if !ok {
		res.Err = &DispatchError{Kind: ErrUnknownTool, Tool: name, Err: fmt.Errorf("%q is not registered", name)}
		return res
	}

	out, err := runSafely(ctx, def, call.ID, json.RawMessage(raw), dc)
	if err != nil {
		res.Err = err
		return res
	}
	content, err := renderResult(out)
	if err != nil {
		res.Err = &DispatchError{Kind: ErrToolExecution, Tool: name, Err: err}
		return res
	}
	res.Content = content
	return res
}

func runSafely(ctx context.Context, def Definition, id string, raw json.RawMessage, dc DispatchContext) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &DispatchError{Kind: ErrToolExecution, Tool: def.Name, Err: &panicError{val: p, stack: debug.Stack()}}
		}
	}()
	return def.run(ctx, id, raw, dc)
}

type panicError struct {
	val   any
	stack []byte
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.val) }

func renderResult(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}
