// Package jwt mints and verifies the HS256 access and refresh tokens used by
// otpauth.
//
// Access and refresh tokens are signed with distinct secrets and carry a
// tokenType discriminator, so neither can be replayed in place of the other.
// Refresh tokens additionally carry a random jti that keys the server-side
// refresh session.
//
// # Architecture boundaries
//
// The package is purely cryptographic. It never consults Redis: a token that
// verifies here may still belong to a revoked session.
//
// # What this package must NOT do
//
//   - Import otpauth or any store package.
//   - Accept any signing algorithm other than HS256.
package jwt
