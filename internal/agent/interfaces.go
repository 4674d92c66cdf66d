package agent

import "context"

// Generator is the contract every service speaks to the LLM through.
// Implementations perform no automatic retries; a single failure surfaces
// immediately and retry policy stays with the caller.
type Generator interface {
	// CompleteText returns a free-form completion for prompt. An upstream
	// error or an empty reply yields a GenerationError.
	CompleteText(ctx context.Context, prompt string) (string, error)

	// CompleteStructured requests a completion constrained to schema and
	// unmarshals it into out. Transport failures yield a GenerationError;
	// payloads that cannot be parsed against the schema yield a
	// SchemaViolationError.
	CompleteStructured(ctx context.Context, prompt string, schema ResponseSchema, out any) error

	// RunToolConversation drives a multi-turn tool-calling exchange with at
	// most maxTurns tool rounds and returns the model's final free-text
	// response, which is empty when the turn budget ran out mid-tool-use.
	// The optional observer receives per-turn events as they happen.
	RunToolConversation(ctx context.Context, systemPrompt, userMessage string, tools []Tool, maxTurns int, observer Observer) (string, error)
}
