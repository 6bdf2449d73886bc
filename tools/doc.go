// Package tools defines tool contracts, the dispatcher and the built-in tools.
//
// Includes:
//   - Definition: name, description, JSON Schema parameters and a typed handler, built with New[In].
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: tagged union of registered tools keyed by name; Dispatch never returns an error,
//     failures become "Error executing: <name>: <err>" tool-result text.
//   - Tools: get_weather, get_calendar_events.
//   - Invariants: calls are dispatched one at a time, in the order the model emitted them.
package tools
