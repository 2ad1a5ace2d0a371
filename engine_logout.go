package otpauth

import (
	"context"
)

// Logout ends the session behind refreshToken. An empty token is a no-op so
// callers can clear client state unconditionally.
//
// A token that fails verification is rejected. Once the token verifies,
// failure to delete the session record is logged and not returned: the
// record expires on its own.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil
	}

	claims, err := e.jwt.VerifyRefresh(refreshToken)
	if err != nil {
		event := auditFailure(AuditLogout, tokenError(err))
		e.emitAudit(ctx, event)
		return tokenError(err)
	}

	tokenID := claims.RegisteredClaims.ID
	if err := e.sessions.Remove(ctx, claims.ID, tokenID); err != nil {
		e.metrics.Inc(MetricLogoutCleanupFailure)
		e.logger.Warn().Err(err).Str("user_id", claims.ID).Msg("refresh session cleanup failed")
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{EventType: AuditLogout, UserID: claims.ID, TokenID: tokenID, Success: true})
	return nil
}
