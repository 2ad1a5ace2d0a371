// Package limiters provides the Redis-backed OTP verification throttle.
//
// [OTPLimiter] counts failed verifications per phone number in a fixed
// window that opens on the first failure. It is nil-safe: every method on a
// nil receiver returns nil, which is how the throttle is disabled.
//
// # What this package must NOT do
//
//   - Import otpauth.
//   - Decide consequences: the engine maps ErrOTPAttemptsExceeded onto its own
//     error kinds.
package limiters
