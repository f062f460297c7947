// Package api содержит клиенты LLM, которые генерируют вопросы интервью.
package api

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"interview-voice-agent/internal/config"
)

// Completer отправляет промпт модели и возвращает текст ответа
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// NewCompleter создает клиент для провайдера из конфигурации
func NewCompleter(ctx context.Context, cfg config.LLMConfig, logger zerolog.Logger) (Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.MaxTokens, cfg.Temperature, logger)
		if cfg.BaseURL != "" {
			client.WithBaseURL(cfg.BaseURL)
		}
		return client, nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.BaseURL, logger)
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}
