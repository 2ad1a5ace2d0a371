package limiters

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/otpauth/cache"
)

// AttemptNamespace holds failed verification counters per phone number.
const AttemptNamespace = "otp:attempts"

// ErrOTPAttemptsExceeded is returned once the failure budget is spent.
var ErrOTPAttemptsExceeded = errors.New("otp verification attempts exceeded")

// OTPLimiterConfig holds thresholds for [OTPLimiter].
type OTPLimiterConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// OTPLimiter throttles OTP guesses per phone number.
type OTPLimiter struct {
	repo        *cache.Repository
	maxAttempts int64
	window      time.Duration
}

// NewOTPLimiter returns nil when cfg.MaxAttempts <= 0, which disables
// throttling.
func NewOTPLimiter(repo *cache.Repository, cfg OTPLimiterConfig) *OTPLimiter {
	if cfg.MaxAttempts <= 0 {
		return nil
	}
	window := cfg.Window
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &OTPLimiter{repo: repo, maxAttempts: int64(cfg.MaxAttempts), window: window}
}

// Check fails with ErrOTPAttemptsExceeded when phone has no attempts left.
func (l *OTPLimiter) Check(ctx context.Context, phone string) error {
	if l == nil {
		return nil
	}
	raw, ok, err := l.repo.Get(ctx, AttemptNamespace, phone)
	if err != nil || !ok {
		return err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	if count >= l.maxAttempts {
		return ErrOTPAttemptsExceeded
	}
	return nil
}

// RecordFailure counts one failed guess. The window starts on the first
// failure and is not extended by later ones.
func (l *OTPLimiter) RecordFailure(ctx context.Context, phone string) error {
	if l == nil {
		return nil
	}
	count, err := l.repo.Incr(ctx, AttemptNamespace, phone)
	if err != nil {
		return err
	}
	if count == 1 {
		if err := l.repo.Expire(ctx, AttemptNamespace, phone, l.window); err != nil {
			return err
		}
	}
	if count >= l.maxAttempts {
		return ErrOTPAttemptsExceeded
	}
	return nil
}

// Reset clears the failure count after a successful verification.
func (l *OTPLimiter) Reset(ctx context.Context, phone string) error {
	if l == nil {
		return nil
	}
	return l.repo.Delete(ctx, AttemptNamespace, phone)
}
