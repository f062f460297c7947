package config

import (
	"fmt"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// LLMConfig описывает модель, которая генерирует вопросы интервью
type LLMConfig struct {
	Provider     string
	BaseURL      string // пусто для публичного API провайдера
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	MaxTokens    int
	Temperature  float64
}

// LoadLLMConfig загружает конфигурацию LLM из переменных окружения
func LoadLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:     getEnv("LLM_PROVIDER", ProviderGemini),
		BaseURL:      getEnv("LLM_BASE_URL", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),
		MaxTokens:    getEnvAsInt("OPENAI_MAX_TOKENS", 4000),
		Temperature:  getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
	}
}

// Validate проверяет корректность конфигурации
func (c LLMConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
		if c.MaxTokens <= 0 {
			return fmt.Errorf("OPENAI_MAX_TOKENS must be positive")
		}
		if c.Temperature < 0 || c.Temperature > 2 {
			return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}
	return nil
}

// Model возвращает имя модели активного провайдера
func (c LLMConfig) Model() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.GeminiModel
}
