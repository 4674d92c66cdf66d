package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockToolCall is one scripted tool invocation.
type MockToolCall struct {
	Name string
	Args string
}

// MockTurn is one scripted model response inside a tool conversation: either
// a set of tool calls (optionally with accompanying thought text) or, when
// Calls is empty, the final answer.
type MockTurn struct {
	Text  string
	Calls []MockToolCall
}

// MockClient provides scripted Generator responses for tests.
type MockClient struct {
	TextResponse  string
	TextErr       error
	StructuredRaw []string
	StructuredErr error
	Turns         []MockTurn
	ConverseErr   error

	TextPrompts       []string
	StructuredPrompts []string
	ConverseSystems   []string
	ConverseUsers     []string
	structuredCalls   int
}

var _ Generator = (*MockClient)(nil)

func (m *MockClient) CompleteText(ctx context.Context, prompt string) (string, error) {
	m.TextPrompts = append(m.TextPrompts, prompt)
	if m.TextErr != nil {
		return "", m.TextErr
	}
	if strings.TrimSpace(m.TextResponse) == "" {
		return "", NewGenerationError("text completion", fmt.Errorf("empty response"))
	}
	return m.TextResponse, nil
}

func (m *MockClient) CompleteStructured(ctx context.Context, prompt string, schema ResponseSchema, out any) error {
	m.StructuredPrompts = append(m.StructuredPrompts, prompt)
	if m.StructuredErr != nil {
		return m.StructuredErr
	}
	if m.structuredCalls >= len(m.StructuredRaw) {
		return NewGenerationError("structured completion", fmt.Errorf("no scripted response left"))
	}
	raw := m.StructuredRaw[m.structuredCalls]
	m.structuredCalls++
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &SchemaViolationError{Schema: schema.Name, Raw: raw, Err: err}
	}
	return nil
}

// RunToolConversation replays the scripted turns through the same loop
// contract as the real client: tool calls are executed in order against the
// supplied tool set and the loop stops at the first call-free turn or when
// maxTurns rounds have run.
func (m *MockClient) RunToolConversation(ctx context.Context, systemPrompt, userMessage string, tools []Tool, maxTurns int, observer Observer) (string, error) {
	m.ConverseSystems = append(m.ConverseSystems, systemPrompt)
	m.ConverseUsers = append(m.ConverseUsers, userMessage)
	if m.ConverseErr != nil {
		return "", m.ConverseErr
	}

	turnAt := func(i int) MockTurn {
		if len(m.Turns) == 0 {
			return MockTurn{}
		}
		if i >= len(m.Turns) {
			return m.Turns[len(m.Turns)-1]
		}
		return m.Turns[i]
	}

	current := turnAt(0)
	next := 1
	for turn := 0; turn < maxTurns; turn++ {
		if len(current.Calls) == 0 {
			return current.Text, nil
		}
		if strings.TrimSpace(current.Text) != "" {
			observer.emit(EventThought, "", current.Text)
		}
		for _, call := range current.Calls {
			observer.emit(EventAction, call.Name, call.Args)
			result := dispatch(tools, call.Name, json.RawMessage(call.Args))
			observer.emit(EventResult, call.Name, result)
		}
		current = turnAt(next)
		next++
	}

	if len(current.Calls) > 0 {
		return "", nil
	}
	return current.Text, nil
}
