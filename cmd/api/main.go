package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/nsplab/thing-service/internal/application/thing"
	"github.com/nsplab/thing-service/internal/config"
	"github.com/nsplab/thing-service/internal/infrastructure/dynamo"
	"github.com/nsplab/thing-service/internal/infrastructure/memory"
	"github.com/nsplab/thing-service/internal/transport/apigw"
	"github.com/nsplab/thing-service/internal/transport/local"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	repo, err := newRepository(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("repository setup failed")
	}

	svc := thing.NewService(repo, log)
	authorizer := thing.NewAuthorizer(svc)
	mapper := apigw.NewMapper(authorizer, log)
	router := local.NewRouter(mapper)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Str("backend", cfg.Backend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

func newRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (thing.Repository, error) {
	if cfg.Backend == "dynamo" {
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTableThings, log)
		return dynamo.NewThingRepo(client, cfg.DynamoTableThings), nil
	}
	return memory.NewSeededThingRepo(), nil
}
