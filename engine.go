package otpauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/otpauth/cache"
	internalaudit "github.com/MrEthical07/otpauth/internal/audit"
	"github.com/MrEthical07/otpauth/internal/limiters"
	"github.com/MrEthical07/otpauth/jwt"
	"github.com/MrEthical07/otpauth/otp"
	"github.com/MrEthical07/otpauth/session"
	"github.com/rs/zerolog"
)

// Engine composes user lookup, password and OTP checks, token issuance, and
// refresh-session persistence into the authentication flows.
type Engine struct {
	config    Config
	cache     *cache.Repository
	sessions  *session.Store
	otps      *otp.Store
	attempts  *limiters.OTPLimiter
	jwt       *jwt.Manager
	users     UserProvider
	passwords PasswordMatcher
	messenger Messenger
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	logger    zerolog.Logger
}

// Close flushes pending audit events and stops the dispatcher. It does not
// close the Redis client.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all in-process metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// TokenTTLs returns the configured access and refresh lifetimes, for cookie
// max-age.
func (e *Engine) TokenTTLs() (access, refresh time.Duration) {
	return e.config.JWT.AccessTTL, e.config.JWT.RefreshTTL
}

// Ping checks that Redis answers. It is meant for readiness probes.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if _, err := e.cache.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// GenerateTokens signs an access/refresh pair for userID and persists the
// refresh session, superseding any previous session of the user.
//
// Performance: one GET plus one MULTI/EXEC round-trip.
func (e *Engine) GenerateTokens(ctx context.Context, userID, role string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	pair, err := e.jwt.IssuePair(userID, role)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := e.sessions.Save(ctx, userID, pair.TokenID, e.config.JWT.RefreshTTL); err != nil {
		return nil, unavailable(err)
	}
	e.metrics.Observe(MetricSessionSaveLatency, time.Since(start))
	e.metrics.Inc(MetricSessionCreated)

	return &TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// VerifyAccessToken checks an access token's signature, expiry, and type. It
// does not touch Redis.
func (e *Engine) VerifyAccessToken(_ context.Context, token string) (*jwt.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwt.VerifyAccess(token)
	if err != nil {
		e.metrics.Inc(MetricAccessTokenRejected)
		return nil, tokenError(err)
	}
	return claims, nil
}

// UserByID returns the user behind an authenticated request.
func (e *Engine) UserByID(ctx context.Context, id string) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.lookupUser(ctx, e.users.GetUserByID, id)
}

func tokenError(err error) *Error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return newError(KindInvalidToken, CodeTokenExpired, err)
	}
	return newError(KindInvalidToken, CodeTokenInvalid, err)
}

func userLookupError(err error) *Error {
	if errors.Is(err, ErrUserNotFound) {
		return newError(KindNotFound, CodeUserNotFound, err)
	}
	return unavailable(err)
}

func (e *Engine) lookupUser(ctx context.Context, get func(context.Context, string) (*User, error), key string) (*User, error) {
	user, err := get(ctx, key)
	if err != nil {
		return nil, userLookupError(err)
	}
	if user == nil {
		return nil, newError(KindNotFound, CodeUserNotFound, ErrUserNotFound)
	}
	return user, nil
}
