package otpauth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the complete, typed configuration of an [Engine]. It is validated
// once by [Builder.Build] and cloned into the Engine, so later mutation of the
// caller's copy has no effect.
type Config struct {
	JWT      JWTConfig
	OTP      OTPConfig
	Session  SessionConfig
	Cache    CacheConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the HS256 secrets and token lifetimes. Access and refresh
// secrets must differ.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls OTP issuance and verification.
//
// MessageTemplate supports the placeholders {firstName}, {lastName}, and
// {otp}.
type OTPConfig struct {
	Digits            int
	TTL               time.Duration
	RateLimitWindow   time.Duration
	MaxRequests       int
	MaxVerifyAttempts int
	MessageTemplate   string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls refresh-session enforcement.
//
// With RequireActiveSession set, Refresh rejects a refresh token whose
// session record was removed by logout or superseded by a newer login, even
// when the token itself is still cryptographically valid.
type SessionConfig struct {
	RequireActiveSession bool
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls Redis key addressing. An empty KeyPrefix keeps the
// bare key shapes (refresh-token:{id}:{jti}, otp:{phone}, ...).
type CacheConfig struct {
	KeyPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id parameters of the default matcher. The
// parameters are ignored when a matcher is supplied through
// [Builder.WithPasswordMatcher].
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// UpgradeOnLogin replaces an outdated stored hash after a successful
	// password login when the matcher and user provider both support it.
	UpgradeOnLogin bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production defaults. JWT secrets are left empty and
// must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		OTP: OTPConfig{
			Digits:            6,
			TTL:               5 * time.Minute,
			RateLimitWindow:   time.Hour,
			MaxRequests:       5,
			MaxVerifyAttempts: 0,
			MessageTemplate:   "Hi {firstName} {lastName}, your verification code is {otp}",
		},
		Session: SessionConfig{
			RequireActiveSession: true,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,

			UpgradeOnLogin: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT AccessSecret and RefreshSecret are required")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// OTP
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be within [4, 10]")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.RateLimitWindow <= 0 {
		return errors.New("OTP RateLimitWindow must be > 0")
	}
	if c.OTP.MaxRequests <= 0 {
		return errors.New("OTP MaxRequests must be > 0")
	}
	if c.OTP.MaxVerifyAttempts < 0 {
		return errors.New("OTP MaxVerifyAttempts must be >= 0")
	}
	if !strings.Contains(c.OTP.MessageTemplate, "{otp}") {
		return errors.New("OTP MessageTemplate must contain {otp}")
	}

	// Cache
	if strings.ContainsAny(c.Cache.KeyPrefix, " \t\r\n") {
		return errors.New("Cache KeyPrefix must not contain whitespace")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("Audit BufferSize must be > 0 when enabled (got %d)", c.Audit.BufferSize)
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
