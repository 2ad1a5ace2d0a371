package otpauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/otpauth/internal"
)

var errNotAcknowledged = errors.New("delivery not acknowledged")

// RequestOTP generates a code for req.PhoneNumber and hands it to the
// Messenger. The code is stored and the request counter advanced only after
// the Messenger acknowledges delivery, so a failed delivery costs no quota.
func (e *Engine) RequestOTP(ctx context.Context, req OTPRequest) (*OTPResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result, err := e.requestOTP(ctx, req)
	if err != nil {
		eventType := AuditOTPRequest
		if KindOf(err) == KindRateLimited {
			eventType = AuditOTPRateLimited
		}
		event := auditFailure(eventType, err)
		event.Phone = req.PhoneNumber
		e.emitAudit(ctx, event)
		return nil, err
	}

	e.metrics.Inc(MetricOTPDelivered)
	e.emitAudit(ctx, AuditEvent{EventType: AuditOTPRequest, Phone: req.PhoneNumber, Success: true})
	return result, nil
}

func (e *Engine) requestOTP(ctx context.Context, req OTPRequest) (*OTPResult, error) {
	phone := req.PhoneNumber
	firstName, lastName := req.FirstName, req.LastName

	if !req.Register {
		user, err := e.lookupUser(ctx, e.users.GetUserByUsername, phone)
		if err != nil {
			return nil, err
		}
		firstName, lastName = user.FirstName, user.LastName
	}

	count, ok, err := e.otps.RequestCount(ctx, phone)
	if err != nil {
		return nil, unavailable(err)
	}
	if ok && count >= int64(e.config.OTP.MaxRequests) {
		e.metrics.Inc(MetricOTPRateLimited)
		return nil, &Error{Kind: KindRateLimited, Code: CodeOTPLimit, Redirect: true}
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	delivery, err := e.messenger.SendText(ctx, phone, e.renderOTPMessage(firstName, lastName, code))
	e.metrics.Observe(MetricOTPDeliveryLatency, time.Since(start))
	if err == nil && !delivery.Acknowledged {
		err = errNotAcknowledged
	}
	if err != nil {
		e.metrics.Inc(MetricOTPDeliveryFailure)
		e.logger.Warn().Err(err).Msg("otp delivery failed")
		return nil, &Error{Kind: KindUnavailable, Code: CodeOTPSendFailed, Redirect: true, Err: err}
	}

	if err := e.otps.Issue(ctx, phone, code, e.config.OTP.TTL, e.config.OTP.RateLimitWindow); err != nil {
		return nil, unavailable(err)
	}
	return &OTPResult{Status: StatusOK, Message: MessageOTPDelivered}, nil
}

func (e *Engine) renderOTPMessage(firstName, lastName, code string) string {
	return strings.NewReplacer(
		"{firstName}", firstName,
		"{lastName}", lastName,
		"{otp}", code,
	).Replace(e.config.OTP.MessageTemplate)
}
