package tools

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Spec is what the model sees for a tool: name, description and parameter schema.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Validator is implemented by argument types that apply defaults or reject
// values the schema does not allow. Validate runs after decoding.
type Validator interface {
	Validate() error
}

// Call carries the decoded arguments of one tool call.
type Call[In any] struct {
	ID   string
	Args In
	// UserMessage is the raw text of the turn's user message.
	UserMessage string
}

// Handler runs a tool. String results are sent verbatim; anything else is JSON-encoded.
type Handler[In any] func(ctx context.Context, call Call[In]) (any, error)

// Definition is one variant of the registry's tagged union: a tool name bound to
// its own argument type.
type Definition struct {
	Spec
	run func(ctx context.Context, id string, raw json.RawMessage, dc DispatchContext) (any, error)
}

// New builds a Definition whose schema is generated from In.
func New[In any](name, description string, fn Handler[In]) Definition {
	return Definition{
		Spec: Spec{Name: name, Description: description, Parameters: GenerateSchema[In]()},
		run: func(ctx context.Context, id string, raw json.RawMessage, dc DispatchContext) (any, error) {
			args, err := decodeArgs[In](raw)
			if err != nil {
				return nil, &DispatchError{Kind: ErrArgumentValidation, Tool: name, Err: err}
			}
			out, err := fn(ctx, Call[In]{ID: id, Args: args, UserMessage: dc.UserMessage})
			if err != nil {
				return nil, &DispatchError{Kind: ErrToolExecution, Tool: name, Err: err}
			}
			return out, nil
		},
	}
}

// decodeArgs strictly decodes raw into In and runs its Validator, if any.
func decodeArgs[In any](raw json.RawMessage) (In, error) {
	var args In
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return args, err
	}
	if v, ok := any(&args).(Validator); ok {
		if err := v.Validate(); err != nil {
			return args, err
		}
	}
	return args, nil
}

// GenerateSchema reflects T into a JSON Schema object suitable for tool parameters.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := json.Marshal(schema)
	if err != nil {
		panic("tools: marshal schema: " + err.Error())
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		panic("tools: unmarshal schema: " + err.Error())
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}
