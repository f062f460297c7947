package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config задает параметры глобального логгера
type Config struct {
	Level   string    // уровень логирования ("debug", "info", ...)
	Output  io.Writer // по умолчанию os.Stdout
	Service string    // имя сервиса в каждой записи
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure настраивает глобальный zerolog логгер ровно один раз
func Configure(cfg Config) {
	once.Do(func() {
		level := zerolog.InfoLevel
		raw := cfg.Level
		if raw == "" {
			raw = os.Getenv("LOG_LEVEL")
		}
		if raw != "" {
			if parsed, err := zerolog.ParseLevel(raw); err == nil {
				level = parsed
			}
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		writer := cfg.Output
		if writer == nil {
			writer = os.Stdout
		}

		service := cfg.Service
		if service == "" {
			service = "interview-voice-agent"
		}

		base = zerolog.New(writer).With().
			Timestamp().
			Str("service", service).
			Logger()
	})
}

// Base возвращает базовый логгер
func Base() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithComponent возвращает дочерний логгер с именем компонента
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
