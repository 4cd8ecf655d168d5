package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// HeaderAPIKey carries "prefix.secret".
const HeaderAPIKey = "X-API-Key"

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate resolves the API key header into a Principal. Requests without
// a key continue anonymously and are stopped by RequireAny.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(HeaderAPIKey)
		if presented == "" || m.Service == nil {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Service.Authenticate(r.Context(), presented)
		if err != nil {
			if !errors.Is(err, ErrInvalidKey) && m.Logger != nil {
				m.Logger.Error("rbac authenticate", slog.Any("error", err))
			}
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		ctx := ContextWithPrincipal(r.Context(), principal)
		ctx = shared.ContextWithActor(ctx, principal.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny ensures the current principal has at least one of the roles.
func (m Middleware) RequireAny(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if len(roles) == 0 || principal.HasAny(roles...) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("rbac denied", slog.String("principal", principal.Name), slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}
