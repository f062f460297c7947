package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuestionsPlaceholder подставляется в системный промпт интервьюера
const QuestionsPlaceholder = "{{questions}}"

// Load загружает конфигурацию из YAML файла
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return Parse(data)
}

// Parse разбирает и валидирует YAML конфигурацию
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if config.Generation.DefaultAmount == 0 {
		config.Generation.DefaultAmount = 5
	}
	if config.Generation.MaxAmount == 0 {
		config.Generation.MaxAmount = 20
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &config, nil
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	iv := config.Interviewer
	if iv.ID == "" {
		return fmt.Errorf("interviewer.id is required")
	}
	if iv.Name == "" {
		return fmt.Errorf("interviewer.name is required")
	}
	if !strings.Contains(iv.SystemPrompt, QuestionsPlaceholder) {
		return fmt.Errorf("interviewer.system_prompt must contain %s", QuestionsPlaceholder)
	}

	if len(config.Form.Types) == 0 {
		return fmt.Errorf("form.types must not be empty")
	}
	if len(config.Form.Levels) == 0 {
		return fmt.Errorf("form.levels must not be empty")
	}

	if config.Generation.DefaultAmount < 0 || config.Generation.MaxAmount < 0 {
		return fmt.Errorf("generation amounts must not be negative")
	}
	if config.Generation.DefaultAmount > config.Generation.MaxAmount {
		return fmt.Errorf("generation.default_amount (%d) exceeds generation.max_amount (%d)",
			config.Generation.DefaultAmount, config.Generation.MaxAmount)
	}

	for i, sample := range config.Samples {
		if sample.ID == "" {
			return fmt.Errorf("samples[%d].id is required", i)
		}
		if len(sample.Questions) == 0 {
			return fmt.Errorf("samples[%d].questions must not be empty", i)
		}
	}

	return nil
}
