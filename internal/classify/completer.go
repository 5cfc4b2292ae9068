package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Completer produces a completion for a system/user prompt pair. The
// production implementation talks to a hosted LLM; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAICompleter is a Completer backed by JSON-mode chat completions.
// Calls are paced by a shared rate limiter and bounded by a per-call timeout.
type OpenAICompleter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewOpenAICompleter builds a Completer from an API key. requestsPerMinute
// bounds the call rate across all pipeline stages sharing this completer.
func NewOpenAICompleter(apiKey, model string, timeout time.Duration, requestsPerMinute int) *OpenAICompleter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}

	return &OpenAICompleter{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

// Complete sends one JSON-mode chat completion and returns the raw content.
func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// ErrCompleterDisabled is returned by the disabled completer; downstream
// stages treat it like any transport failure and fall back.
var ErrCompleterDisabled = errors.New("llm completer disabled: no API key configured")

type disabledCompleter struct{}

func (disabledCompleter) Complete(context.Context, string, string) (string, error) {
	return "", ErrCompleterDisabled
}

// Disabled returns a Completer that always fails. Used when no API key is
// configured so the pipeline degrades to unclassified items and fallback
// summaries instead of refusing to run.
func Disabled() Completer {
	return disabledCompleter{}
}
