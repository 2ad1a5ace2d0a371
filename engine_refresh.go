package otpauth

import (
	"context"
)

// Refresh exchanges a refresh token for a new pair. The new pair supersedes
// the presented session, so each refresh token is usable once.
//
// With Session.RequireActiveSession the presented token must still be the
// user's current session; a superseded or logged-out token fails with
// auth.refreshToken.revoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	userID, pair, err := e.refresh(ctx, refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		event := auditFailure(AuditRefresh, err)
		event.UserID = userID
		e.emitAudit(ctx, event)
		return nil, err
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditRefresh, UserID: userID, Success: true})
	return pair, nil
}

func (e *Engine) refresh(ctx context.Context, refreshToken string) (string, *TokenPair, error) {
	claims, err := e.jwt.VerifyRefresh(refreshToken)
	if err != nil {
		return "", nil, tokenError(err)
	}

	if e.config.Session.RequireActiveSession {
		active, err := e.sessions.Exists(ctx, claims.ID, claims.RegisteredClaims.ID)
		if err != nil {
			return claims.ID, nil, unavailable(err)
		}
		if !active {
			e.metrics.Inc(MetricRefreshRevoked)
			return claims.ID, nil, newError(KindInvalidToken, CodeRefreshRevoked, nil)
		}
	}

	pair, err := e.GenerateTokens(ctx, claims.ID, claims.Role)
	if err != nil {
		return claims.ID, nil, err
	}
	return claims.ID, pair, nil
}
