// Package cache addresses the Redis keyspace used by otpauth.
//
// Every key is built as "namespace:key" (optionally behind a global prefix),
// so callers only ever deal with logical namespaces such as "otp" or
// "refresh-token".
//
// # Architecture boundaries
//
// This package owns key construction and the raw GET/SET/INCR/EXPIRE/DEL
// commands plus MULTI/EXEC batches. It carries no policy: refresh-session
// supersede rules live in package session, OTP issuance and verification in
// package otp.
//
// # What this package must NOT do
//
//   - Interpret stored values.
//   - Treat a missing key as an error.
//   - Retry failed commands.
package cache
