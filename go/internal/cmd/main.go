package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/planningpoker/go/internal/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogging()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}
	defer database.Close()

	publisher := setupPublisher(config)

	services := setupServices(database, config, publisher)
	server := setupServer(config, services)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go services.Manager.Start(ctx)
	services.Hub.Start(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	if closer, ok := publisher.(*events.NATSPublisher); ok {
		closer.Close()
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if getEnvAsBool("LOG_PRETTY", false) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// setupPublisher wires the NATS event mirror when one is configured,
// falling back to a no-op so the gateway never depends on the bus.
func setupPublisher(config *Config) events.Publisher {
	enabled := config.Events.Enabled || os.Getenv("NATS_URL") != ""
	if !enabled {
		return events.NoopPublisher{}
	}

	natsConfig := events.DefaultNATSConfig()
	natsConfig.URL = getEnv("NATS_URL", natsConfig.URL)
	if config.Events.SubjectPrefix != "" {
		natsConfig.SubjectPrefix = config.Events.SubjectPrefix
	}

	publisher, err := events.NewNATSPublisher(natsConfig)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to NATS, event mirroring disabled")
		return events.NoopPublisher{}
	}

	log.Info().Str("url", natsConfig.URL).Msg("NATS event mirror enabled")
	return publisher
}
