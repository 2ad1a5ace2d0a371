// Package otpauth is an OTP and password authentication engine with HS256
// access/refresh tokens and Redis-backed refresh sessions.
//
// The Engine drives two state machines on Redis:
//
//   - Refresh sessions: at most one per user. Every token issuance supersedes
//     the previous session atomically; logout removes it.
//   - OTP codes: at most one live code per phone number, single-use, with a
//     sliding per-phone issuance quota.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// otpauth is the public surface. It exposes [Engine], [Builder], [Config], the
// collaborator interfaces ([UserProvider], [PasswordMatcher], [Messenger]), and
// the tagged [Error]. Key layout lives in session and otp; token crypto lives
// in jwt. Transport (HTTP, NATS) and persistence (Postgres) live in httpapi,
// mq, and userstore and depend on this package, never the reverse.
//
// # What this package must NOT do
//
//   - Expose Redis clients or key shapes in its public API.
//   - Set cookies or know about HTTP.
//   - Retry failed dependency calls or add timeouts beyond the caller's ctx.
package otpauth
