package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"territory-engine/internal/config"
	"territory-engine/internal/constants"
	fxmodules "territory-engine/internal/fx"
	"territory-engine/internal/middleware"
	"territory-engine/internal/notify"
	"territory-engine/internal/server"
	"territory-engine/internal/service"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(wireCaptureEvents),
		fx.Invoke(runTicker),
		fx.Invoke(runServer),
	).Run()
}

func wireCaptureEvents(captures *service.CaptureService, notifier *notify.WebhookNotifier) {
	captures.Subscribe(notifier.OnCapture)
}

func runTicker(lc fx.Lifecycle, ticker *service.Ticker, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().Msg("starting decay/fortification ticker")
			ticker.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ticker.Stop()
			logger.Info().Msg("ticker stopped")
			return nil
		},
	})
}

func runServer(
	lc fx.Lifecycle,
	engineServer *server.EngineServer,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	requestIDMiddleware := middleware.RequestID(logger)
	handler := requestIDMiddleware(c.Handler(engineServer.Routes()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
