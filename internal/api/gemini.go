package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"interview-voice-agent/internal/metrics"
)

// GeminiClient генерирует текст через Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// NewGeminiClient создает клиент Gemini. baseURL пустой для публичного API.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string, logger zerolog.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, logger: logger}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }

// Complete отправляет промпт одной репликой пользователя
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		metrics.IncrementAPICall(c.Name(), false)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		metrics.IncrementAPICall(c.Name(), false)
		return "", errors.New("gemini returned an empty response")
	}

	metrics.IncrementAPICall(c.Name(), true)
	if resp.UsageMetadata != nil {
		c.logger.Debug().Interface("usage", resp.UsageMetadata).Msg("gemini completion")
	}
	return CleanJSONResponse(text), nil
}
