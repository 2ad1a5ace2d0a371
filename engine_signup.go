package otpauth

import (
	"context"
	"errors"
	"strings"
)

// Signup registers a new user whose username is the phone number the OTP was
// delivered to, then issues tokens for the new user.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result, err := e.signup(ctx, in)
	if err != nil {
		if KindOf(err) == KindConflict {
			e.metrics.Inc(MetricSignupConflict)
		}
		event := auditFailure(AuditSignup, err)
		event.Phone = in.Username
		e.emitAudit(ctx, event)
		return nil, err
	}

	e.metrics.Inc(MetricSignupSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditSignup, UserID: result.User.ID, Phone: in.Username, Success: true})
	return result, nil
}

func (e *Engine) signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if err := e.consumeOTP(ctx, in.Username, in.OTP); err != nil {
		return nil, err
	}

	existing, err := e.users.GetUserByUsername(ctx, in.Username)
	switch {
	case err == nil && existing != nil:
		return nil, newError(KindConflict, CodeUserExists, ErrUserExists)
	case err != nil && !errors.Is(err, ErrUserNotFound):
		return nil, unavailable(err)
	}

	user, err := e.users.CreateUser(ctx, CreateUserInput{
		Username:  in.Username,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		School:    strings.TrimSpace(in.School),
		District:  in.District,
		Address:   strings.TrimSpace(in.Address),
		DOB:       in.DOB,
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, newError(KindConflict, CodeUserExists, err)
		}
		return nil, unavailable(err)
	}

	pair, err := e.GenerateTokens(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{TokenPair: *pair, User: user}, nil
}
