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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/idport/idport/api/echo"
	"github.com/idport/idport/cache"
	rediscache "github.com/idport/idport/cache/redis"
	"github.com/idport/idport/config"
	"github.com/idport/idport/internal/auth"
	"github.com/idport/idport/mailer"
	"github.com/idport/idport/mongodb"
	"github.com/idport/idport/queue"
	"github.com/idport/idport/rabbitmq"
	"github.com/idport/idport/services"
	"github.com/idport/idport/tracing"
)

// authd is the credential authority: it owns the identity-of-record,
// issues and introspects access tokens, runs the password reset
// lifecycle, publishes user events and drains the send_email lane.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogger(cfg)
	log.Info().Str("http_port", cfg.HTTPPort).Msg("Starting authd")

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TracerProvider")
	}

	ctx := context.Background()

	db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}

	userRepo, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize UserRepository")
	}
	tokenRepo, err := mongodb.NewTokenRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TokenRepository")
	}
	resetRepo := mongodb.NewPasswordResetRepository(db)

	// The TTL index reaps expired tokens eventually; one sweep at boot
	// clears anything that accumulated while the index was absent.
	if err := tokenRepo.DeleteExpiredTokens(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to sweep expired tokens")
	}

	tokenStore, closeStore := newTokenStore(cfg)
	defer closeStore()

	broker, err := rabbitmq.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer broker.Close()

	publisher, err := rabbitmq.NewEventPublisher(broker, "auth_service")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event publisher")
	}
	taskQueue, err := rabbitmq.NewTaskQueue(broker)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize task queue")
	}

	smtp, err := mailer.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize mailer")
	}

	tokenTTL := time.Duration(cfg.AccessTokenTTLHr) * time.Hour
	tokenService := services.NewTokenService(tokenRepo, tokenStore, tokenTTL)
	authService := services.NewAuthService(
		userRepo,
		resetRepo,
		tokenService,
		auth.NewBcryptPasswordHasher(bcrypt.DefaultCost),
		publisher,
		services.NewNotifier(taskQueue),
		auth.NewLinkSigner(cfg.LinkSecret),
		cfg.AuthServiceURL,
		cfg.AppURL,
	)

	mailConsumer, err := rabbitmq.NewConsumer(broker, queue.LaneSendEmail, services.NewEmailHandler(smtp))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize email consumer")
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	go func() {
		if err := mailConsumer.Run(consumerCtx); err != nil {
			log.Error().Err(err).Msg("Email consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	echoapi.NewAuthAPI(authService, cfg.CookieSecure).RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down authd")

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

	log.Info().Msg("authd stopped")
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

// newTokenStore prefers the shared Redis cache when configured and falls
// back to the in-process one.
func newTokenStore(cfg *config.ServerConfig) (cache.TokenStore, func()) {
	if cfg.RedisAddr == "" {
		store := cache.NewMemoryTokenStore()
		return store, func() { _ = store.Close() }
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return rediscache.NewTokenStore(client, "idport"), func() { _ = client.Close() }
}
