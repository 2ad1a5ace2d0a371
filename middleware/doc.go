// Package middleware exposes the HTTP guard that protects routes with an
// access token.
//
// # Guards
//
//   - [Guard]: reads the access_token cookie or an Authorization Bearer
//     header, verifies it through a [TokenVerifier], and stores the claims in
//     the request context ([ClaimsFromContext]).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into a verifier call. It does NOT
// implement token validation itself; the decision belongs to the Engine.
//
// # What this package must NOT do
//
//   - Parse or sign JWTs directly.
//   - Access Redis.
//   - Render the service's error envelope (the caller passes an ErrorHandler).
package middleware
