package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"interview-voice-agent/internal/api"
	"interview-voice-agent/internal/auth"
	"interview-voice-agent/internal/config"
	"interview-voice-agent/internal/interviewer"
	xlog "interview-voice-agent/internal/log"
	"interview-voice-agent/internal/server"
	"interview-voice-agent/internal/storage"
	"interview-voice-agent/internal/voice"
)

func main() {
	// .env не обязателен: в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		base := xlog.Base()
		base.Fatal().Err(err).Msg("failed to load .env file")
	}

	xlog.Configure(xlog.Config{})
	logger := xlog.WithComponent("main")
	logger.Info().Msg("starting interview voice agent")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := config.LoadAppConfig()

	catalogue, err := config.Load("config/interview.yaml")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load interview config")
	}

	store, err := openStore(ctx, app.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close storage")
		}
	}()
	interviews := storage.NewService(store, xlog.WithComponent("storage"))

	llm, err := api.NewCompleter(ctx, app.LLM, xlog.WithComponent("llm"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create LLM client")
	}
	generator := interviewer.New(llm, interviews, catalogue, xlog.WithComponent("interviewer"))

	authClient := auth.NewClient(app.Auth.URL, app.Auth.AnonKey, xlog.WithComponent("auth"))
	authService := auth.NewService(authClient, interviews, xlog.WithComponent("auth"))

	if app.Voice.GatewayURL == "" || app.Voice.WebToken == "" {
		logger.Warn().Msg("voice gateway is not configured, calls will fail to start")
	}
	voiceLogger := xlog.WithComponent("voice")

	srv := server.New(server.Deps{
		App:        app,
		Catalogue:  catalogue,
		Interviews: interviews,
		Generator:  generator,
		Auth:       authService,
		NewProvider: func() server.VoiceProvider {
			return voice.New(app.Voice.GatewayURL, app.Voice.WebToken, voiceLogger)
		},
		Logger: xlog.WithComponent("http"),
	})

	logger.Info().
		Str("llm_provider", llm.Name()).
		Int("samples", len(catalogue.Samples)).
		Int("port", app.Server.Port).
		Msg("services initialized")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}

// openStore выбирает Postgres, если задан DATABASE_URL, иначе JSON файлы
func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	if cfg.URL != "" {
		pg, err := storage.ConnectPostgres(ctx, cfg.URL, xlog.WithComponent("postgres"))
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	fileStore, err := storage.NewFileStore(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	return fileStore, nil
}
