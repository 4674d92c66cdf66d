package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// fakeChat scripts the transport layer turn by turn and records every
// request it receives.
type fakeChat struct {
	responses []*openai.ChatCompletion
	err       error
	requests  []openai.ChatCompletionNewParams
}

func (f *fakeChat) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.requests = append(f.requests, params)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.requests) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func testClient(chat chatCompleter) *Client {
	return &Client{
		chat:      chat,
		model:     "gpt-4o",
		maxTokens: 4096,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		logger:    slog.Default(),
	}
}

func textResponse(text string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: text}},
		},
	}
}

func toolCallResponse(callID, name, args string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{
						ID: callID,
						Function: openai.ChatCompletionMessageToolCallFunction{
							Name:      name,
							Arguments: args,
						},
					},
				},
			}},
		},
	}
}

func TestRunToolConversationExecutesToolsThenReturnsFinalText(t *testing.T) {
	chat := &fakeChat{
		responses: []*openai.ChatCompletion{
			toolCallResponse("call_1", "lookup", `{"key":"door"}`),
			textResponse("The door was blue."),
		},
	}
	client := testClient(chat)

	var handled []string
	tools := []Tool{{
		Name: "lookup",
		Handle: func(args json.RawMessage) string {
			handled = append(handled, string(args))
			return "red"
		},
	}}

	var events []Event
	got, err := client.RunToolConversation(context.Background(), "system", "user", tools, 5, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("RunToolConversation() error = %v", err)
	}
	if got != "The door was blue." {
		t.Errorf("final text = %q", got)
	}
	if len(handled) != 1 || handled[0] != `{"key":"door"}` {
		t.Errorf("tool invocations = %v", handled)
	}

	// Two requests: the initial exchange and one follow-up carrying the tool
	// result.
	if len(chat.requests) != 2 {
		t.Fatalf("%d transport requests, want 2", len(chat.requests))
	}
	if len(chat.requests[0].Messages) != 2 {
		t.Errorf("initial request has %d messages, want system+user", len(chat.requests[0].Messages))
	}
	if len(chat.requests[1].Messages) != 4 {
		t.Errorf("follow-up request has %d messages, want system+user+assistant+tool", len(chat.requests[1].Messages))
	}

	wantKinds := []EventKind{EventAction, EventResult}
	if len(events) != len(wantKinds) {
		t.Fatalf("events = %+v, want kinds %v", events, wantKinds)
	}
	for i, e := range events {
		if e.Kind != wantKinds[i] {
			t.Errorf("event %d kind = %q, want %q", i, e.Kind, wantKinds[i])
		}
	}
}

func TestRunToolConversationHonorsTurnBudget(t *testing.T) {
	// The model never stops calling tools.
	chat := &fakeChat{
		responses: []*openai.ChatCompletion{
			toolCallResponse("call_x", "lookup", `{}`),
		},
	}
	client := testClient(chat)

	calls := 0
	tools := []Tool{{
		Name:   "lookup",
		Handle: func(json.RawMessage) string { calls++; return "nothing" },
	}}

	const maxTurns = 3
	got, err := client.RunToolConversation(context.Background(), "s", "u", tools, maxTurns, nil)
	if err != nil {
		t.Fatalf("RunToolConversation() error = %v", err)
	}
	if got != "" {
		t.Errorf("final text = %q, want empty after budget exhaustion", got)
	}
	if calls != maxTurns {
		t.Errorf("tool executed %d times, want exactly %d", calls, maxTurns)
	}
	// Initial exchange plus one follow-up per turn.
	if len(chat.requests) != maxTurns+1 {
		t.Errorf("%d transport requests, want %d", len(chat.requests), maxTurns+1)
	}
}

func TestRunToolConversationUnknownToolFeedsErrorBack(t *testing.T) {
	chat := &fakeChat{
		responses: []*openai.ChatCompletion{
			toolCallResponse("call_1", "undeclared", `{}`),
			textResponse("done"),
		},
	}
	client := testClient(chat)

	var results []string
	_, err := client.RunToolConversation(context.Background(), "s", "u", nil, 5, func(e Event) {
		if e.Kind == EventResult {
			results = append(results, e.Text)
		}
	})
	if err != nil {
		t.Fatalf("RunToolConversation() error = %v", err)
	}
	if len(results) != 1 || results[0] != "Error: Unknown tool 'undeclared'" {
		t.Errorf("results = %v", results)
	}
}

func TestRunToolConversationTransportError(t *testing.T) {
	chat := &fakeChat{err: errors.New("connection refused")}
	client := testClient(chat)

	_, err := client.RunToolConversation(context.Background(), "s", "u", nil, 5, nil)
	if !IsGenerationError(err) {
		t.Errorf("error = %v, want a GenerationError", err)
	}
}

func TestCompleteTextEmptyResponse(t *testing.T) {
	chat := &fakeChat{responses: []*openai.ChatCompletion{textResponse("   ")}}
	client := testClient(chat)

	if _, err := client.CompleteText(context.Background(), "prompt"); !IsGenerationError(err) {
		t.Errorf("error = %v, want a GenerationError for an empty response", err)
	}
}

func TestCompleteStructuredParsesIntoTarget(t *testing.T) {
	chat := &fakeChat{responses: []*openai.ChatCompletion{textResponse(`{"title":"The Pass"}`)}}
	client := testClient(chat)

	schema := NewResponseSchema("test", "t", struct {
		Title string `json:"title"`
	}{})

	var out struct {
		Title string `json:"title"`
	}
	if err := client.CompleteStructured(context.Background(), "prompt", schema, &out); err != nil {
		t.Fatalf("CompleteStructured() error = %v", err)
	}
	if out.Title != "The Pass" {
		t.Errorf("Title = %q", out.Title)
	}
}

func TestCompleteStructuredSchemaViolation(t *testing.T) {
	chat := &fakeChat{responses: []*openai.ChatCompletion{textResponse(`not json at all`)}}
	client := testClient(chat)

	schema := NewResponseSchema("test", "t", struct{}{})
	var out struct{}
	if err := client.CompleteStructured(context.Background(), "prompt", schema, &out); !IsSchemaViolation(err) {
		t.Errorf("error = %v, want a SchemaViolationError", err)
	}
}
