package internaldefs

import (
	"github.com/MrEthical07/otpauth"
)

// Namespace prefixes every exported metric name.
const Namespace = "otpauth"

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   otpauth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   otpauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: otpauth.MetricLoginSuccess, Name: "otpauth_login_success_total", Help: "Successful email/password logins."},
	{ID: otpauth.MetricLoginFailure, Name: "otpauth_login_failure_total", Help: "Failed email/password logins."},
	{ID: otpauth.MetricOTPLoginSuccess, Name: "otpauth_otp_login_success_total", Help: "Successful OTP logins."},
	{ID: otpauth.MetricOTPLoginFailure, Name: "otpauth_otp_login_failure_total", Help: "Failed OTP logins."},
	{ID: otpauth.MetricSignupSuccess, Name: "otpauth_signup_success_total", Help: "Completed signups."},
	{ID: otpauth.MetricSignupConflict, Name: "otpauth_signup_conflict_total", Help: "Signups rejected for an existing username."},
	{ID: otpauth.MetricOTPDelivered, Name: "otpauth_otp_delivered_total", Help: "OTP codes acknowledged by the delivery service."},
	{ID: otpauth.MetricOTPRateLimited, Name: "otpauth_otp_rate_limited_total", Help: "OTP requests refused by the request window."},
	{ID: otpauth.MetricOTPDeliveryFailure, Name: "otpauth_otp_delivery_failure_total", Help: "OTP deliveries that failed or were not acknowledged."},
	{ID: otpauth.MetricOTPVerifyThrottled, Name: "otpauth_otp_verify_throttled_total", Help: "OTP verifications refused by the attempt cap."},
	{ID: otpauth.MetricRefreshSuccess, Name: "otpauth_refresh_success_total", Help: "Successful token refreshes."},
	{ID: otpauth.MetricRefreshFailure, Name: "otpauth_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: otpauth.MetricRefreshRevoked, Name: "otpauth_refresh_revoked_total", Help: "Refresh attempts with a superseded or logged-out token."},
	{ID: otpauth.MetricSessionCreated, Name: "otpauth_session_created_total", Help: "Refresh sessions written."},
	{ID: otpauth.MetricLogout, Name: "otpauth_logout_total", Help: "Logouts."},
	{ID: otpauth.MetricLogoutCleanupFailure, Name: "otpauth_logout_cleanup_failure_total", Help: "Logouts whose session record could not be deleted."},
	{ID: otpauth.MetricAccessTokenRejected, Name: "otpauth_access_token_rejected_total", Help: "Access tokens that failed verification."},
}

var HistogramDefs = []HistogramDef{
	{ID: otpauth.MetricOTPDeliveryLatency, Name: "otpauth_otp_delivery_latency_seconds", Help: "Time spent waiting for the delivery service."},
	{ID: otpauth.MetricSessionSaveLatency, Name: "otpauth_session_save_latency_seconds", Help: "Time spent persisting a refresh session."},
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const (
	AuditDroppedName = "otpauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped by the dispatcher."
)

// HistogramBounds are the upper bounds, in seconds, of the engine's eight
// latency buckets. The last bucket is unbounded.
var HistogramBounds = [BucketCount - 1]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters without native
// histograms.
var HistogramBoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// BucketCount is the number of latency buckets, including +Inf.
const BucketCount = 8

// CumulativeBuckets converts raw non-cumulative bucket counts into
// cumulative counts. Missing trailing buckets count as zero.
func CumulativeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < BucketCount; i++ {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
