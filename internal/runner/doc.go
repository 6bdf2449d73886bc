// Package runner drives one conversational turn between the user, the model
// client and the tool registry.
//
// Every turn starts from an empty store:
//
//	RESET -> APPEND_USER -> AWAIT_MODEL_1 -> DONE
//	                                      -> DISPATCH_TOOLS -> AWAIT_MODEL_2 -> DONE
//
// Invariants:
//   - every message is appended to the store before the next step reads history.
//   - tool calls run strictly in order; each result is appended before the next
//     call is dispatched.
//   - tool failures become tool-result messages; store and model failures end the turn.
//
// The history sent to the model is always sanitized first, so tool results
// follow the assistant message that requested them.
package runner
