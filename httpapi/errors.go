package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/otpauth"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// Transport-level error codes. Domain codes come from otpauth.
const (
	CodeBadRequest      = "common.badRequest"
	CodeTooManyRequests = "common.tooManyRequests"
	CodeInternal        = "common.internalError"
)

type envelope struct {
	StatusCode int           `json:"statusCode"`
	Message    string        `json:"message"`
	Data       *envelopeData `json:"data,omitempty"`
}

type envelopeData struct {
	Redirect bool `json:"redirect"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, envelope{StatusCode: status, Message: code})
}

// statusOf maps an error kind onto the HTTP status carried in the envelope.
func statusOf(kind otpauth.Kind) int {
	switch kind {
	case otpauth.KindNotFound:
		return http.StatusNotFound
	case otpauth.KindConflict:
		return http.StatusConflict
	case otpauth.KindInvalidToken:
		return http.StatusUnauthorized
	case otpauth.KindRateLimited:
		return http.StatusTooManyRequests
	case otpauth.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Errors carrying the redirect hint are sent with
// HTTP 200 so the client can follow the hint; the envelope keeps the real
// status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := otpauth.AsError(err)
	if !ok {
		capture(r, err)
		writeMessage(w, http.StatusInternalServerError, CodeInternal)
		return
	}

	status := statusOf(e.Kind)
	if status >= http.StatusInternalServerError {
		capture(r, err)
	}

	body := envelope{StatusCode: status, Message: e.Code}
	httpStatus := status
	if e.Redirect {
		body.Data = &envelopeData{Redirect: true}
		httpStatus = http.StatusOK
	}
	writeJSON(w, httpStatus, body)
}

func capture(r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")

	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	// Unwrap to the root cause so Sentry groups by the failing dependency.
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(next) {
		err = next
	}
	hub.CaptureException(err)
}
