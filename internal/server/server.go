// Package server содержит HTTP и WebSocket транспорт интервью-агента.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"interview-voice-agent/internal/auth"
	"interview-voice-agent/internal/call"
	"interview-voice-agent/internal/config"
	"interview-voice-agent/internal/interviewer"
	xlog "interview-voice-agent/internal/log"
	"interview-voice-agent/internal/storage"
)

// Generator генерирует интервью с вопросами
type Generator interface {
	Generate(ctx context.Context, req interviewer.GenerateRequest) (*storage.InterviewRecord, error)
}

// Interviews хранит интервью
type Interviews interface {
	SaveInterview(ctx context.Context, req storage.SaveRequest) (storage.SaveResult, error)
	GetInterview(ctx context.Context, id string) (*storage.InterviewRecord, error)
	ListInterviews(ctx context.Context, userID string) ([]storage.InterviewRecord, error)
}

// Authenticator регистрирует пользователей и выполняет вход
type Authenticator interface {
	SignUp(ctx context.Context, name, email, password string) auth.Result
	SignIn(ctx context.Context, email, password string) auth.Result
	CurrentUser(ctx context.Context, accessToken string) auth.Result
}

// VoiceProvider обслуживает голосовую сессию одного звонка
type VoiceProvider interface {
	call.Provider
	Close() error
}

// Deps содержит зависимости сервера
type Deps struct {
	App         *config.AppConfig
	Catalogue   *config.Config
	Interviews  Interviews
	Generator   Generator
	Auth        Authenticator
	NewProvider func() VoiceProvider
	Logger      zerolog.Logger
}

// Server представляет HTTP сервер
type Server struct {
	deps   Deps
	logger zerolog.Logger
	http   *http.Server

	calls    sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// New создает сервер и собирает маршруты
func New(deps Deps) *Server {
	s := &Server{deps: deps, logger: deps.Logger, stop: make(chan struct{})}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.App.Server.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// таймауты обычных запросов задает middleware.Timeout, звонки по WebSocket живут дольше
	}
	return s
}

// Routes возвращает роутер со всеми маршрутами
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(xlog.Middleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/call", s.handleCall)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout(s.deps.App.Server)))

			r.Route("/vapi/generate", func(r chi.Router) {
				r.Get("/", s.handleGenerateInfo)
				r.With(rateLimit(s.deps.App.Server.RateLimit)).Post("/", s.handleGenerate)
			})
			r.Post("/save-interview", s.handleSaveInterview)
			r.Get("/interviews", s.handleListInterviews)
			r.Get("/interviews/{id}", s.handleGetInterview)

			r.Route("/auth", func(r chi.Router) {
				r.Use(rateLimit(s.deps.App.Server.RateLimit * 3))
				r.Post("/signup", s.handleSignUp)
				r.Post("/signin", s.handleSignIn)
				r.Get("/user", s.handleCurrentUser)
			})
		})
	})
	return r
}

// ListenAndServe запускает сервер. Возвращает nil после Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown останавливает прием запросов, закрывает звонки и ждет их завершения
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.stopOnce.Do(func() { close(s.stop) })

	done := make(chan struct{})
	go func() {
		s.calls.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func requestTimeout(cfg config.ServerConfig) time.Duration {
	timeout := cfg.WriteTimeout
	if cfg.ReadTimeout > timeout {
		timeout = cfg.ReadTimeout
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return timeout
}

func rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"success": false,
				"error":   "Too many requests. Please try again later.",
			})
		}),
	)
}
