package config

// Config представляет конфигурацию интервью
type Config struct {
	Interviewer Interviewer `yaml:"interviewer"`
	Form        Form        `yaml:"form"`
	Generation  Generation  `yaml:"generation"`
	Samples     []Sample    `yaml:"samples"`
}

// Interviewer описывает фиксированного голосового ассистента-интервьюера
type Interviewer struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	FirstMessage string `yaml:"first_message"`
	SystemPrompt string `yaml:"system_prompt"`
	Voice        string `yaml:"voice"`
	Model        string `yaml:"model"`
}

// Form содержит допустимые значения формы настройки интервью
type Form struct {
	Types     []string `yaml:"types"`
	Levels    []string `yaml:"levels"`
	Durations []string `yaml:"durations"`
}

// Generation содержит настройки генерации вопросов
type Generation struct {
	DefaultAmount int `yaml:"default_amount"`
	MaxAmount     int `yaml:"max_amount"`
}

// Sample описывает готовое интервью, которое показывается, пока у пользователя нет своих
type Sample struct {
	ID        string   `yaml:"id"`
	Type      string   `yaml:"type"`
	Role      string   `yaml:"role"`
	Level     string   `yaml:"level"`
	TechStack []string `yaml:"techstack"`
	Questions []string `yaml:"questions"`
}

// Методы для удобного доступа к конфигурации
func (c *Config) GetDefaultAmount() int {
	return c.Generation.DefaultAmount
}

func (c *Config) GetMaxAmount() int {
	return c.Generation.MaxAmount
}

func (c *Config) IsKnownType(t string) bool {
	return contains(c.Form.Types, t)
}

func (c *Config) IsKnownLevel(level string) bool {
	return contains(c.Form.Levels, level)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
