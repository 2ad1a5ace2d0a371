package otpauth

import (
	"io"

	internalaudit "github.com/MrEthical07/otpauth/internal/audit"
	"github.com/rs/zerolog"
)

// Audit event types emitted by the Engine.
const (
	AuditLogin          = "login"
	AuditOTPLogin       = "otp_login"
	AuditSignup         = "signup"
	AuditOTPRequest     = "otp_request"
	AuditOTPRateLimited = "otp_rate_limited"
	AuditRefresh        = "refresh"
	AuditLogout         = "logout"
)

// AuditEvent is one audit record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine. Emit must
// not block indefinitely.
type AuditSink = internalaudit.Sink

// NoOpSink drops every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink writes events through zerolog.
type LogSink = internalaudit.LogSink

// NewChannelSink returns a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogSink returns a [LogSink] writing to logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return internalaudit.NewLogSink(logger)
}
