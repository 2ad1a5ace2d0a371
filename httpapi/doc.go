// Package httpapi serves the authentication endpoints over HTTP with chi.
//
// Routes live under /v1/auth. Tokens are returned in the body and, for the
// login and refresh routes, also set as HttpOnly cookies. Errors use the
// envelope {statusCode, message, data} where message is an otpauth error
// code and data.redirect carries the redirect hint.
//
// The router also mounts /healthz, /readyz, and /metrics, and wraps
// everything with optional CORS, per-IP rate limiting, OpenTelemetry spans, and a
// panic recoverer that reports to Sentry.
//
// # What this package must NOT do
//
//   - Make authentication decisions; every decision comes from the Service.
//   - Touch Redis or the user store directly.
package httpapi
