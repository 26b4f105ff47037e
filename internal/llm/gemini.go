package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/genai"

	"github.com/edgard/roastme/internal/logger"
)

// GeminiConfig configures a Gemini API backend.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

// GeminiBackend sends prompts to the Gemini API with a single credential.
type GeminiBackend struct {
	client        *genai.Client
	contentConfig *genai.GenerateContentConfig
	log           *slog.Logger
}

// NewGeminiBackend creates a backend bound to cfg.APIKey.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig, log *slog.Logger) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini backend requires an API key")
	}
	if log == nil {
		log = logger.Discard()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	contentConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Temperature),
		TopP:            genai.Ptr[float32](1),
		MaxOutputTokens: int32(cfg.MaxTokens), //nolint:gosec // bounded by config validation
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
		},
	}

	return &GeminiBackend{
		client:        gi,
		contentConfig: contentConfig,
		log:           log.With("component", "gemini_backend"),
	}, nil
}

// Generate implements Backend.
func (b *GeminiBackend) Generate(ctx context.Context, attempt Attempt) (string, error) {
	b.log.DebugContext(ctx, "Sending generate content request",
		"credential", attempt.Credential, "model", attempt.Model, "timeout", attempt.Timeout)

	return callWithTimeout(ctx, attempt.Timeout, func(ctx context.Context) (string, error) {
		resp, err := b.client.Models.GenerateContent(ctx, attempt.Model, genai.Text(attempt.Prompt), b.contentConfig)
		if err != nil {
			var apiErr genai.APIError
			if errors.As(err, &apiErr) {
				return "", &HTTPError{Status: apiErr.Code, Body: apiErr.Message}
			}
			return "", fmt.Errorf("gemini generate content failed: %w", err)
		}

		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
			b.log.WarnContext(ctx, "Gemini request blocked", "reason", resp.PromptFeedback.BlockReason)
			return "", fmt.Errorf("%w: prompt blocked (%s)", ErrMalformedResponse, resp.PromptFeedback.BlockReason)
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", ErrMalformedResponse
		}

		text := Normalize(resp.Text())
		if text == "" {
			return "", ErrMalformedResponse
		}
		return text, nil
	})
}
