package otpauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/otpauth/internal/limiters"
)

// Login authenticates by email and password.
//
// An unknown email and a wrong password both fail with KindNotFound; only the
// codes differ (user.userNotFound, user.invalidPassword).
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result, err := e.login(ctx, email, password)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		event := auditFailure(AuditLogin, err)
		event.Metadata = map[string]string{"email": email}
		e.emitAudit(ctx, event)
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditLogin, UserID: result.User.ID, Success: true})
	return result, nil
}

func (e *Engine) login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := e.lookupUser(ctx, e.users.GetUserByEmail, email)
	if err != nil {
		return nil, err
	}

	ok, err := e.passwords.Match(user.PasswordHash, password)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unusable")
		ok = false
	}
	if !ok {
		return nil, newError(KindNotFound, CodeInvalidPassword, nil)
	}
	if e.config.Password.UpgradeOnLogin {
		e.upgradePasswordHash(ctx, user, password)
	}

	pair, err := e.GenerateTokens(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{TokenPair: *pair, User: user}, nil
}

// upgradePasswordHash is best-effort and never fails the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, user *User, password string) {
	rehasher, ok := e.passwords.(PasswordRehasher)
	if !ok {
		return
	}
	updater, ok := e.users.(PasswordHashUpdater)
	if !ok {
		return
	}

	needs, err := rehasher.NeedsRehash(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := rehasher.Hash(password)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("password hash upgrade generation failed")
		return
	}
	if err := updater.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("password hash upgrade update failed")
		return
	}
	user.PasswordHash = hash
}

// LoginWithOTP authenticates by phone number and a previously delivered OTP.
// The code is consumed before the user lookup, so a valid code for an
// unregistered number is still spent.
func (e *Engine) LoginWithOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result, err := e.loginWithOTP(ctx, phone, code)
	if err != nil {
		e.metrics.Inc(MetricOTPLoginFailure)
		event := auditFailure(AuditOTPLogin, err)
		event.Phone = phone
		e.emitAudit(ctx, event)
		return nil, err
	}

	e.metrics.Inc(MetricOTPLoginSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditOTPLogin, UserID: result.User.ID, Phone: phone, Success: true})
	return result, nil
}

func (e *Engine) loginWithOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	if err := e.consumeOTP(ctx, phone, code); err != nil {
		return nil, err
	}

	user, err := e.lookupUser(ctx, e.users.GetUserByUsername, phone)
	if err != nil {
		return nil, err
	}

	pair, err := e.GenerateTokens(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{TokenPair: *pair, User: user}, nil
}

// consumeOTP verifies and spends the live code of phone, applying the
// verification throttle when one is configured.
func (e *Engine) consumeOTP(ctx context.Context, phone, code string) error {
	if err := e.attempts.Check(ctx, phone); err != nil {
		if errors.Is(err, limiters.ErrOTPAttemptsExceeded) {
			e.metrics.Inc(MetricOTPVerifyThrottled)
			return &Error{Kind: KindRateLimited, Code: CodeOTPAttempts, Redirect: true, Err: err}
		}
		return unavailable(err)
	}

	ok, err := e.otps.Verify(ctx, phone, code)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		if err := e.attempts.RecordFailure(ctx, phone); err != nil && !errors.Is(err, limiters.ErrOTPAttemptsExceeded) {
			e.logger.Warn().Err(err).Msg("otp attempt counter update failed")
		}
		return newError(KindNotFound, CodeOTPIncorrect, nil)
	}

	if err := e.attempts.Reset(ctx, phone); err != nil {
		e.logger.Warn().Err(err).Msg("otp attempt counter reset failed")
	}
	return nil
}
