package otpauth

import (
	"errors"

	"github.com/MrEthical07/otpauth/cache"
	internalaudit "github.com/MrEthical07/otpauth/internal/audit"
	"github.com/MrEthical07/otpauth/internal/limiters"
	"github.com/MrEthical07/otpauth/jwt"
	"github.com/MrEthical07/otpauth/otp"
	"github.com/MrEthical07/otpauth/password"
	"github.com/MrEthical07/otpauth/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. A Builder can be used for exactly one Build.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	passwords    PasswordMatcher
	messenger    Messenger
	auditSink    AuditSink
	logger       *zerolog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared Redis client. Any go-redis client works,
// including cluster and failover clients.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the user lookup. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithPasswordMatcher overrides the default Argon2id/bcrypt matcher built
// from Config.Password.
func (b *Builder) WithPasswordMatcher(m PasswordMatcher) *Builder {
	b.passwords = m
	return b
}

// WithMessenger sets the channel that delivers OTP codes. Required.
func (b *Builder) WithMessenger(m Messenger) *Builder {
	b.messenger = m
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for best-effort failures. The default
// discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records per-operation latency buckets. Build rejects
// it unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine. No Redis command is
// issued during Build.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if b.messenger == nil {
		return nil, errors.New("messenger required")
	}

	passwords := b.passwords
	if passwords == nil {
		m, err := password.NewMatcher(password.Argon2Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		passwords = m
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	repo := cache.NewRepository(b.redis, cfg.Cache.KeyPrefix)

	engine := &Engine{
		config:    cfg,
		cache:     repo,
		sessions:  session.NewStore(repo),
		otps:      otp.NewStore(repo),
		jwt:       jm,
		users:     b.userProvider,
		passwords: passwords,
		messenger: b.messenger,
		logger:    logger.With().Str("component", "otpauth").Logger(),
	}
	engine.attempts = limiters.NewOTPLimiter(repo, limiters.OTPLimiterConfig{
		MaxAttempts: cfg.OTP.MaxVerifyAttempts,
		Window:      cfg.OTP.TTL,
	})
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     engine.logger,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
