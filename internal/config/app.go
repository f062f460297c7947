package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	LLM      LLMConfig
	Voice    VoiceConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Server   ServerConfig
	Call     CallConfig
}

// VoiceConfig описывает подключение к голосовому шлюзу
type VoiceConfig struct {
	GatewayURL string
	WebToken   string
	WorkflowID string
}

type DatabaseConfig struct {
	URL        string
	StorageDir string
}

// AuthConfig описывает внешний провайдер аутентификации
type AuthConfig struct {
	URL     string
	AnonKey string
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
}

// CallConfig задает поведение экрана звонка после завершения
type CallConfig struct {
	RedirectDelay time.Duration
	RedirectPath  string
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		LLM: LoadLLMConfig(),
		Voice: VoiceConfig{
			GatewayURL: getEnv("VOICE_GATEWAY_URL", ""),
			WebToken:   getEnv("VOICE_WEB_TOKEN", ""),
			WorkflowID: getEnv("VOICE_WORKFLOW_ID", ""),
		},
		Database: DatabaseConfig{
			URL:        getEnv("DATABASE_URL", ""),
			StorageDir: getEnv("STORAGE_DIR", "results"),
		},
		Auth: AuthConfig{
			URL:     getEnv("AUTH_URL", ""),
			AnonKey: getEnv("AUTH_ANON_KEY", ""),
		},
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimit:       getEnvAsInt("SERVER_RATE_LIMIT", 10),
		},
		Call: CallConfig{
			RedirectDelay: getEnvAsDuration("CALL_REDIRECT_DELAY", 2*time.Second),
			RedirectPath:  getEnv("CALL_REDIRECT_PATH", "/HomePage"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
