package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/otpauth"
	"github.com/MrEthical07/otpauth/middleware"
)

// RefreshTokenCookie holds the refresh token.
const RefreshTokenCookie = "refresh_token"

// CookieConfig controls the token cookies.
type CookieConfig struct {
	Domain string
	Secure bool
}

func (c CookieConfig) setTokens(w http.ResponseWriter, pair otpauth.TokenPair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c CookieConfig) clearTokens(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.Domain,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   c.Secure,
		})
	}
}

// refreshToken reads the refresh cookie, falling back to a Bearer header.
// Only the refresh route accepts the header form.
func refreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token, _ := middleware.BearerToken(r.Header.Get("Authorization"))
	return token
}
