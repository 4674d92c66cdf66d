package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// chatCompleter is the slice of the OpenAI SDK the client depends on,
// narrowed so tests can substitute a scripted transport.
type chatCompleter interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client implements Generator over the OpenAI chat completions API.
// It performs no automatic retries: a single upstream failure surfaces
// immediately and retry policy stays with the caller.
type Client struct {
	chat      chatCompleter
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	logger    *slog.Logger
}

type clientSettings struct {
	baseURL   string
	model     string
	maxTokens int64
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger
}

type Option func(*clientSettings)

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(s *clientSettings) {
		s.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(s *clientSettings) {
		s.baseURL = baseURL
	}
}

// WithTimeout bounds each HTTP request. The orchestration layer imposes no
// independent deadline beyond this transport timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *clientSettings) {
		s.timeout = timeout
	}
}

// WithRateLimit throttles outgoing requests.
func WithRateLimit(requestsPerMinute, burst int) Option {
	return func(s *clientSettings) {
		s.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(maxTokens int64) Option {
	return func(s *clientSettings) {
		s.maxTokens = maxTokens
	}
}

// WithLogger configures a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *clientSettings) {
		s.logger = logger
	}
}

// NewClient builds a generation client for the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	settings := clientSettings{
		model:     "gpt-4o",
		maxTokens: 4096,
		timeout:   120 * time.Second,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		logger:    slog.Default().With("component", "generation_client"),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: settings.timeout}),
	}
	if settings.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(settings.baseURL))
	}
	api := openai.NewClient(requestOpts...)

	settings.logger.Debug("generation client initialized",
		"model", settings.model,
		"base_url", settings.baseURL,
		"rate_limit", fmt.Sprintf("%v req/s", settings.limiter.Limit()))

	return &Client{
		chat:      &api.Chat.Completions,
		model:     settings.model,
		maxTokens: settings.maxTokens,
		limiter:   settings.limiter,
		logger:    settings.logger,
	}
}

// CompleteText implements Generator.
func (c *Client) CompleteText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return "", NewGenerationError("rate limit wait", err)
	}

	completion, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:     openai.ChatModel(c.model),
		MaxTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		c.logger.Error("text completion failed", "error", err)
		return "", NewGenerationError("text completion", err)
	}

	text := firstChoiceText(completion)
	if strings.TrimSpace(text) == "" {
		return "", NewGenerationError("text completion", fmt.Errorf("empty response"))
	}

	c.logger.Info("text completion ok",
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_length", len(prompt),
		"response_length", len(text))
	return text, nil
}

// CompleteStructured implements Generator.
func (c *Client) CompleteStructured(ctx context.Context, prompt string, schema ResponseSchema, out any) error {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return NewGenerationError("rate limit wait", err)
	}

	completion, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:     openai.ChatModel(c.model),
		MaxTokens: openai.Int(c.maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        schema.Name,
					Description: openai.String(schema.Description),
					Schema:      schema.Schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		c.logger.Error("structured completion failed", "schema", schema.Name, "error", err)
		return NewGenerationError("structured completion", err)
	}

	text := firstChoiceText(completion)
	if strings.TrimSpace(text) == "" {
		return NewGenerationError("structured completion", fmt.Errorf("empty response"))
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		c.logger.Error("structured response did not parse",
			"schema", schema.Name,
			"response_length", len(text),
			"error", err)
		return &SchemaViolationError{Schema: schema.Name, Raw: text, Err: err}
	}

	c.logger.Info("structured completion ok",
		"schema", schema.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"response_length", len(text))
	return nil
}

// RunToolConversation implements Generator. It sends the initial exchange
// with the tool set attached, then repeats for at most maxTurns rounds:
// every tool invocation in a response is executed in order and the results
// are sent back as the next turn's input; a response with no tool calls ends
// the loop and its text is the final answer. When the budget runs out while
// the model is still calling tools, the final text is whatever the last
// response carried, usually empty. Callers decide the fallback.
func (c *Client) RunToolConversation(ctx context.Context, systemPrompt, userMessage string, tools []Tool, maxTurns int, observer Observer) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userMessage),
	}
	toolParams := toolParams(tools)

	msg, err := c.converseOnce(ctx, messages, toolParams)
	if err != nil {
		return "", err
	}

	for turn := 0; turn < maxTurns; turn++ {
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}
		if strings.TrimSpace(msg.Content) != "" {
			observer.emit(EventThought, "", msg.Content)
		}

		messages = append(messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			c.logger.Debug("executing tool call",
				"turn", turn,
				"tool", call.Function.Name,
				"args_length", len(call.Function.Arguments))
			observer.emit(EventAction, call.Function.Name, call.Function.Arguments)

			result := dispatch(tools, call.Function.Name, json.RawMessage(call.Function.Arguments))
			observer.emit(EventResult, call.Function.Name, result)
			messages = append(messages, openai.ToolMessage(result, call.ID))
		}

		msg, err = c.converseOnce(ctx, messages, toolParams)
		if err != nil {
			return "", err
		}
	}

	if len(msg.ToolCalls) > 0 {
		c.logger.Warn("tool conversation exhausted turn budget mid-tool-use",
			"max_turns", maxTurns)
	}
	return msg.Content, nil
}

func (c *Client) converseOnce(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (openai.ChatCompletionMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return openai.ChatCompletionMessage{}, NewGenerationError("rate limit wait", err)
	}

	completion, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages:  messages,
		Model:     openai.ChatModel(c.model),
		MaxTokens: openai.Int(c.maxTokens),
		Tools:     tools,
	})
	if err != nil {
		c.logger.Error("tool conversation turn failed", "error", err)
		return openai.ChatCompletionMessage{}, NewGenerationError("tool conversation", err)
	}
	if len(completion.Choices) == 0 {
		return openai.ChatCompletionMessage{}, NewGenerationError("tool conversation", fmt.Errorf("no choices in response"))
	}
	return completion.Choices[0].Message, nil
}

func toolParams(tools []Tool) []openai.ChatCompletionToolParam {
	params := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		schema := map[string]any{"type": "object", "properties": map[string]any{}}
		if t.Params != nil {
			schema = reflectSchema(t.Params)
		}
		params = append(params, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(schema),
			},
		})
	}
	return params
}

func firstChoiceText(completion *openai.ChatCompletion) string {
	if completion == nil || len(completion.Choices) == 0 {
		return ""
	}
	return completion.Choices[0].Message.Content
}
