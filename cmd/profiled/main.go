package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	echoapi "github.com/idport/idport/api/echo"
	"github.com/idport/idport/config"
	"github.com/idport/idport/domain"
	"github.com/idport/idport/mongodb"
	"github.com/idport/idport/queue"
	"github.com/idport/idport/rabbitmq"
	"github.com/idport/idport/services"
	"github.com/idport/idport/tracing"
)

// profiled serves the derived profile store. It consumes user events to
// keep profiles eventually consistent with the identity-of-record and
// delegates request authentication to the credential authority.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogger(cfg)
	log.Info().Str("http_port", cfg.HTTPPort).Msg("Starting profiled")

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TracerProvider")
	}

	ctx := context.Background()

	db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}

	profileRepo, err := mongodb.NewProfileRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ProfileRepository")
	}

	broker, err := rabbitmq.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer broker.Close()

	reconciler := services.NewReconciler(profileRepo)
	consumer, err := rabbitmq.NewConsumer(broker, queue.LaneUserEvents, reconciler.HandleEvent)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event consumer")
	}
	if err := consumer.BindTopic(domain.UserEventsExchange, "user.*"); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind event queue")
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	go func() {
		if err := consumer.Run(consumerCtx); err != nil {
			log.Error().Err(err).Msg("Event consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	authn := echoapi.NewAuthenticator(cfg.AuthServiceURL)
	echoapi.NewProfileAPI(profileRepo, authn).RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down profiled")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopConsumer()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("TracerProvider shutdown error")
	}
	mongodb.Disconnect(shutdownCtx, db)

	log.Info().Msg("profiled stopped")
}

func initLogger(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
