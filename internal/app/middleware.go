package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/odyssey-erp/odyssey-rentals/internal/observability"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRateLimit      = 120
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	RBAC    rbac.Middleware
	Metrics *observability.Metrics
}

// MiddlewareStack returns the chain in order. Metrics wrap the whole chain so
// rejected requests (429, 401) are counted too.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	timeout, limit := defaultRequestTimeout, defaultRateLimit
	if c := cfg.Config; c != nil {
		if c.AppRequestTimeout > 0 {
			timeout = c.AppRequestTimeout
		}
		if c.AppRateLimit > 0 {
			limit = c.AppRateLimit
		}
	}

	var chain []func(http.Handler) http.Handler
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.Middleware)
	}
	return append(chain,
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		securityHeaders(cfg.Config.IsProduction(), cfg.Logger),
		middleware.Compress(5),
		rateLimit(limit),
		cfg.RBAC.Authenticate,
	)
}

func securityHeaders(production bool, logger *slog.Logger) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		STSSeconds:            31536000,
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := s.Process(w, r); err != nil {
				if logger != nil {
					logger.Warn("secure headers rejected request", slog.String("host", r.Host), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request rejected by transport policy")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit allows limit requests per minute per client IP, answered with a
// problem document when exceeded.
func rateLimit(limit int) func(http.Handler) http.Handler {
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded, retry later")
		}),
	)
}
