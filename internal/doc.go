// Package internal contains helpers that are private to otpauth. The
// package itself holds the OTP code generator.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: Redis-backed OTP verification throttle
//   - config: service configuration loaded from the environment
//   - telemetry: tracing and error-reporting setup
//
// # What this package must NOT do
//
//   - Export types that appear in the public otpauth API.
//   - Be imported by any package outside the otpauth module.
package internal
