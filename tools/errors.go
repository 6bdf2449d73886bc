package tools

import "errors"

// Dispatch failure kinds. Each is recovered into tool-result text by the Registry;
// none aborts a turn.
var (
	ErrArgumentParse      = errors.New("argument parse error")
	ErrUnknownTool        = errors.New("unknown tool")
	ErrArgumentValidation = errors.New("argument validation error")
	ErrToolExecution      = errors.New("tool execution error")
)

// DispatchError records which step of dispatch failed for which tool.
// errors.Is matches its Kind.
type DispatchError struct {
	Kind error
	Tool string
	Err  error
}

func (e *DispatchError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) Is(target error) bool { return target == e.Kind }
