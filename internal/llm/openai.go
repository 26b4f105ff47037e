package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/edgard/roastme/internal/logger"
)

// OpenAIConfig configures an OpenAI-compatible chat completion backend.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

// OpenAIBackend sends prompts to an OpenAI-compatible /chat/completions
// endpoint (Groq by default) with a single credential.
type OpenAIBackend struct {
	client      *gopenai.Client
	temperature float32
	maxTokens   int
	log         *slog.Logger
}

// NewOpenAIBackend creates a backend bound to cfg.APIKey.
func NewOpenAIBackend(cfg OpenAIConfig, log *slog.Logger) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai backend requires an API key")
	}
	if log == nil {
		log = logger.Discard()
	}

	aiConfig := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		aiConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		aiConfig.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIBackend{
		client:      gopenai.NewClientWithConfig(aiConfig),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		log:         log.With("component", "openai_backend"),
	}, nil
}

// Generate implements Backend.
func (b *OpenAIBackend) Generate(ctx context.Context, attempt Attempt) (string, error) {
	req := gopenai.ChatCompletionRequest{
		Model: attempt.Model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleUser, Content: attempt.Prompt},
		},
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
		TopP:        1,
	}

	b.log.DebugContext(ctx, "Sending chat completion request",
		"credential", attempt.Credential, "model", attempt.Model, "timeout", attempt.Timeout)

	return callWithTimeout(ctx, attempt.Timeout, func(ctx context.Context) (string, error) {
		resp, err := b.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", mapOpenAIError(err)
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return "", ErrMalformedResponse
		}
		return Normalize(resp.Choices[0].Message.Content), nil
	})
}

// mapOpenAIError converts client errors into the package taxonomy. Status
// errors are checked first because a RequestError wraps the JSON error from
// parsing a non-JSON error body.
func mapOpenAIError(err error) error {
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &HTTPError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		body := string(reqErr.Body)
		if body == "" {
			body = reqErr.Error()
		}
		return &HTTPError{Status: reqErr.HTTPStatusCode, Body: body}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return fmt.Errorf("chat completion failed: %w", err)
}
