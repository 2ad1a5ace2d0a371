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
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MrEthical07/otpauth"
	"github.com/MrEthical07/otpauth/httpapi"
	"github.com/MrEthical07/otpauth/internal/config"
	"github.com/MrEthical07/otpauth/internal/telemetry"
	promexport "github.com/MrEthical07/otpauth/metrics/export/prometheus"
	"github.com/MrEthical07/otpauth/mq"
	"github.com/MrEthical07/otpauth/userstore"
)

const serviceName = "otpauth"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := newLogger(cfg)
	log.Logger = logger

	if err := telemetry.InitSentry(cfg.SentryDSN, cfg.AppEnv, version); err != nil {
		logger.Fatal().Err(err).Msg("init sentry")
	}
	defer telemetry.FlushSentry()

	shutdownTracing, err := telemetry.InitTracing(ctx, serviceName, version, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("init tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	pingers := map[string]httpapi.Pinger{}

	users, closeUsers, err := openUserStore(ctx, cfg.DBDSN, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open user store")
	}
	defer closeUsers()
	if p, ok := users.(httpapi.Pinger); ok {
		pingers["postgres"] = p
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name(serviceName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect nats")
	}
	defer func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}()

	engine, err := otpauth.New().
		WithConfig(cfg.AuthConfig()).
		WithRedis(rdb).
		WithUserProvider(users).
		WithMessenger(mq.NewMessenger(nc, cfg.NATSNotificationSubject, cfg.NATSRequestTimeout)).
		WithAuditSink(otpauth.NewLogSink(logger.With().Str("component", "audit").Logger())).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("build engine")
	}
	defer engine.Close()
	pingers["redis"] = engine

	if err := engine.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("redis not reachable at startup")
	}

	validator := mq.NewValidator(engine, logger)
	if _, err := validator.Subscribe(ctx, nc, cfg.NATSValidateSubject, mq.DefaultQueueGroup); err != nil {
		logger.Fatal().Err(err).Msg("subscribe validateToken")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewCollector(engine, prometheus.Labels{"service": serviceName}),
	)

	handler := httpapi.NewRouter(httpapi.Options{
		Service:        engine,
		Pingers:        pingers,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.HTTPRateLimit,
		Cookies:        httpapi.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure},
		Logger:         logger,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		ServiceName:    serviceName,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("version", version).Msg("starting otpauth")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := cfg.Level()
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Development() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", serviceName).Logger()
}

// openUserStore connects to Postgres and applies migrations, or falls back
// to the in-memory store when dsn is empty.
func openUserStore(ctx context.Context, dsn string, logger zerolog.Logger) (otpauth.UserProvider, func(), error) {
	if dsn == "" {
		logger.Warn().Msg("DB_DSN not set, using in-memory user store")
		return userstore.NewMemory(), func() {}, nil
	}

	pool, err := userstore.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := userstore.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return userstore.NewPostgres(pool), pool.Close, nil
}
