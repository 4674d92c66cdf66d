package agent

import (
	"encoding/json"
	"fmt"
)

// Tool declares one operation the model may invoke during a tool
// conversation: a name, a human-readable description, a typed parameter
// exemplar the schema is reflected from, and a deterministic local handler.
//
// Handlers never return Go errors. A bad invocation (unknown field types,
// missing required arguments, out-of-range values) produces an error STRING
// that is fed back to the model as a normal tool result so it can adapt;
// only transport faults abort a conversation.
type Tool struct {
	Name        string
	Description string
	Params      any
	Handle      ToolHandler
}

// ToolHandler executes a tool call and returns the result text.
type ToolHandler func(args json.RawMessage) string

// DecodeArgs unmarshals a tool call's argument record into a typed struct.
// Handlers turn a non-nil error into an error-string result.
func DecodeArgs(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// EventKind tags the per-turn events a conversation observer receives.
type EventKind string

const (
	// EventThought is free text the model produced alongside tool calls.
	EventThought EventKind = "thought"
	// EventAction is a tool invocation about to run.
	EventAction EventKind = "action"
	// EventResult is the text a tool handler returned.
	EventResult EventKind = "result"
)

// Event is one observable step of a tool conversation.
type Event struct {
	Kind EventKind
	Tool string
	Text string
}

// Observer receives conversation events as they happen. A nil observer is
// valid and ignores everything.
type Observer func(Event)

func (o Observer) emit(kind EventKind, tool, text string) {
	if o != nil {
		o(Event{Kind: kind, Tool: tool, Text: text})
	}
}

// dispatch runs the named tool, falling back to an error-string result for
// names the conversation never declared.
func dispatch(tools []Tool, name string, args json.RawMessage) string {
	for _, t := range tools {
		if t.Name == name {
			return t.Handle(args)
		}
	}
	return fmt.Sprintf("Error: Unknown tool '%s'", name)
}
