package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/otpauth"
	"github.com/MrEthical07/otpauth/jwt"
	"github.com/MrEthical07/otpauth/middleware"
)

// Service is the engine surface the handlers call. *otpauth.Engine
// implements it.
type Service interface {
	Login(ctx context.Context, email, password string) (*otpauth.AuthResult, error)
	LoginWithOTP(ctx context.Context, phone, code string) (*otpauth.AuthResult, error)
	Signup(ctx context.Context, in otpauth.SignupInput) (*otpauth.AuthResult, error)
	RequestOTP(ctx context.Context, req otpauth.OTPRequest) (*otpauth.OTPResult, error)
	Refresh(ctx context.Context, refreshToken string) (*otpauth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyAccessToken(ctx context.Context, token string) (*jwt.Claims, error)
	UserByID(ctx context.Context, id string) (*otpauth.User, error)
	TokenTTLs() (access, refresh time.Duration)
}

type handler struct {
	svc     Service
	cookies CookieConfig
}

func (h *handler) setCookies(w http.ResponseWriter, pair otpauth.TokenPair) {
	access, refresh := h.svc.TokenTTLs()
	h.cookies.setTokens(w, pair, access, refresh)
}

func (h *handler) loginEmail(w http.ResponseWriter, r *http.Request) {
	var req emailLoginRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setCookies(w, result.TokenPair)
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) loginOTP(w http.ResponseWriter, r *http.Request) {
	var req otpLoginRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.svc.LoginWithOTP(r.Context(), req.Phone, string(req.OTP))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setCookies(w, result.TokenPair)
	writeJSON(w, http.StatusOK, result)
}

// signup returns the tokens in the body only.
func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.svc.Signup(r.Context(), otpauth.SignupInput{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		School:    req.School,
		District:  req.District,
		Address:   req.Address,
		DOB:       time.Time(req.DOB),
		OTP:       string(req.OTP),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.svc.RequestOTP(r.Context(), otpauth.OTPRequest{
		PhoneNumber: req.PhoneNumber,
		Register:    req.Register,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshToken(r)
	if token == "" {
		writeMessage(w, http.StatusUnauthorized, otpauth.CodeTokenInvalid)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setCookies(w, *pair)
	writeJSON(w, http.StatusOK, pair)
}

// logout reads the refresh cookie only; an Authorization header carries the
// access token here. Both cookies are cleared whatever the outcome.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = c.Value
	}

	err := h.svc.Logout(r.Context(), token)
	h.cookies.clearTokens(w)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": otpauth.StatusOK})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, otpauth.CodeTokenInvalid)
		return
	}

	user, err := h.svc.UserByID(r.Context(), claims.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// guardError renders Guard rejections in the error envelope.
func guardError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		writeMessage(w, http.StatusUnauthorized, otpauth.CodeTokenInvalid)
		return
	}
	writeError(w, r, err)
}
