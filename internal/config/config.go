// Package config loads the otpauth service configuration from the
// environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/MrEthical07/otpauth"
)

// Config holds runtime configuration for the otpauth service.
type Config struct {
	Addr   string `env:"ADDR,default=:8080"`
	AppEnv string `env:"APP_ENV,default=development"`

	RedisAddr      string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB,default=0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`

	// DBDSN selects the Postgres user store. Empty runs with an in-memory
	// store.
	DBDSN string `env:"DB_DSN"`

	NATSURL                 string        `env:"NATS_URL,default=nats://localhost:4222"`
	NATSNotificationSubject string        `env:"NATS_NOTIFICATION_SUBJECT,default=notification"`
	NATSValidateSubject     string        `env:"NATS_VALIDATE_SUBJECT,default=auth.validateToken"`
	NATSRequestTimeout      time.Duration `env:"NATS_REQUEST_TIMEOUT,default=5s"`

	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL,default=1h"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL,default=720h"`
	JWTIssuer        string        `env:"JWT_ISSUER"`

	OTPTTL               time.Duration `env:"OTP_TTL,default=5m"`
	OTPRateLimitWindow   time.Duration `env:"OTP_RATE_LIMIT_WINDOW,default=1h"`
	OTPMaxRequests       int           `env:"OTP_MAX_REQUESTS,default=5"`
	OTPMaxVerifyAttempts int           `env:"OTP_MAX_VERIFY_ATTEMPTS,default=0"`
	OTPMessageTemplate   string        `env:"OTP_MESSAGE_TEMPLATE"`

	RequireRefreshSession bool `env:"REQUIRE_REFRESH_SESSION,default=true"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	CookieDomain   string   `env:"COOKIE_DOMAIN"`
	CookieSecure   bool     `env:"COOKIE_SECURE,default=false"`
	HTTPRateLimit  int      `env:"HTTP_RATE_LIMIT,default=100"`

	SentryDSN    string `env:"SENTRY_DSN"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel     string `env:"LOG_LEVEL,default=info"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom returns a Config populated from lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Development reports whether the service runs in a development
// environment.
func (c Config) Development() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "local"
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// AuthConfig maps the service settings onto the engine configuration.
// Validation happens in otpauth.Builder.Build.
func (c Config) AuthConfig() otpauth.Config {
	cfg := otpauth.DefaultConfig()

	cfg.JWT.AccessSecret = []byte(c.JWTAccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.JWTRefreshSecret)
	cfg.JWT.AccessTTL = c.AccessTokenTTL
	cfg.JWT.RefreshTTL = c.RefreshTokenTTL
	cfg.JWT.Issuer = c.JWTIssuer

	cfg.OTP.TTL = c.OTPTTL
	cfg.OTP.RateLimitWindow = c.OTPRateLimitWindow
	cfg.OTP.MaxRequests = c.OTPMaxRequests
	cfg.OTP.MaxVerifyAttempts = c.OTPMaxVerifyAttempts
	if c.OTPMessageTemplate != "" {
		cfg.OTP.MessageTemplate = c.OTPMessageTemplate
	}

	cfg.Session.RequireActiveSession = c.RequireRefreshSession
	cfg.Cache.KeyPrefix = c.RedisKeyPrefix

	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
