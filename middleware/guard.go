package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/otpauth/jwt"
)

// AccessTokenCookie is the cookie the HTTP layer stores the access token in.
const AccessTokenCookie = "access_token"

// TokenVerifier verifies an access token. *otpauth.Engine satisfies it.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// ErrorHandler writes the rejection response. err is nil when no token was
// presented.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by [Guard].
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return claims, ok
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// Guard rejects requests without a valid access token. The token is read
// from the access_token cookie, falling back to an Authorization Bearer
// header. onError may be nil, in which case a bare 401 is written.
func Guard(verifier TokenVerifier, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := AccessToken(r)
			if !ok || verifier == nil {
				onError(w, r, nil)
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// AccessToken extracts the access token from r.
func AccessToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return BearerToken(r.Header.Get("Authorization"))
}

// BearerToken parses an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
