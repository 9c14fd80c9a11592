package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/tair/plantops/docs"
	"github.com/tair/plantops/internal/app"
	"github.com/tair/plantops/pkg/config"
	"github.com/tair/plantops/pkg/logger"
	"github.com/tair/plantops/pkg/tracing"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Str("store", cfg.StoreDriver).
		Bool("kafka", cfg.Kafka.Enabled).
		Bool("nats", cfg.NATS.Enabled).
		Bool("redis", cfg.Redis.Enabled).
		Bool("s3", cfg.S3.Enabled).
		Msg("Starting plantops")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(cfg.ServiceName, cfg.JaegerEndpoint)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
					logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
				}
			}()
		}
	}

	infra, err := app.NewInfrastructure(ctx, cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize infrastructure")
	}
	defer infra.Close()

	// Initialize handlers with Wire DI
	server, cleanup, err := app.InitializeServer(infra, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize server")
	}
	defer cleanup()

	if cfg.StoreDriver == config.StoreDriverMemory {
		token, err := app.SeedDevelopment(ctx, infra.Store, server.Tokens())
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to seed development data")
		}
		logger.Logger.Info().Str("token", token).Msg("Seeded development administrator")
	}

	server.StartConsumers(ctx)
	if err := server.Serve(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP server stopped")
	}
}
