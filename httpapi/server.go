package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MrEthical07/otpauth/middleware"
)

// Defaults applied by NewRouter.
const (
	DefaultServiceName    = "otpauth"
	DefaultRateLimit      = 100
	DefaultRateLimitEvery = time.Minute
)

// Pinger is a readiness dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	Service Service

	// Pingers are checked by /readyz.
	Pingers map[string]Pinger

	// AllowedOrigins enables CORS for the listed origins. Empty means
	// same-origin only. "*" allows any origin without credentials.
	AllowedOrigins []string

	// RateLimit requests per RateLimitEvery, per client IP. Zero uses the
	// defaults; a negative value disables limiting.
	RateLimit      int
	RateLimitEvery time.Duration

	Cookies CookieConfig
	Logger  zerolog.Logger

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	ServiceName string
}

// NewRouter builds the auth router. The returned handler is wrapped with
// otelhttp so each request starts a server span.
func NewRouter(opts Options) http.Handler {
	if opts.ServiceName == "" {
		opts.ServiceName = DefaultServiceName
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.RateLimitEvery <= 0 {
		opts.RateLimitEvery = DefaultRateLimitEvery
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(withLogger(opts.Logger))
	r.Use(withSentryHub)
	r.Use(recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(corsHandler(opts.AllowedOrigins))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readiness(opts.Pingers))
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	h := &handler{svc: opts.Service, cookies: opts.Cookies}
	r.Route("/v1/auth", func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(httprate.Limit(
				opts.RateLimit,
				opts.RateLimitEvery,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeMessage(w, http.StatusTooManyRequests, CodeTooManyRequests)
				}),
			))
		}
		r.Use(withClient)

		r.Post("/login/email", h.loginEmail)
		r.Post("/login/otp", h.loginOTP)
		r.Post("/signup", h.signup)
		r.Post("/otp/request", h.requestOTP)
		r.Get("/refresh-token", h.refresh)
		r.Delete("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(opts.Service, guardError))
			r.Get("/me", h.me)
		})
	})

	return otelhttp.NewHandler(r, opts.ServiceName)
}

// corsHandler never pairs a wildcard origin with credentials.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	credentials := true
	for _, o := range origins {
		if o == "*" {
			credentials = false
			break
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: credentials,
		MaxAge:           int((10 * time.Minute).Seconds()),
	})
}

func readiness(pingers map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			zerolog.Ctx(r.Context()).Warn().Interface("failed", failed).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
