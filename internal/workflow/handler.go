package workflow

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
)

// Handler exposes workflow endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /api/workflow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny())
		r.Get("/actions", h.actions)
		r.Get("/landlords/{id}/history", h.history)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleLandlordManager, rbac.RoleRentalApprover))
		r.Post("/landlords/{id}/apply", h.apply)
	})
}

// actions answers ?state=&roles=a,b. Without roles the caller's own roles
// are used.
func (h *Handler) actions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var roles []string
	for _, role := range strings.Split(q.Get("roles"), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		if p, ok := rbac.PrincipalFromContext(r.Context()); ok {
			roles = p.Roles
		}
	}
	list, err := h.service.Actions(State(q.Get("state")), roles)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"state": q.Get("state"), "actions": list})
}

type applyRequest struct {
	Action Action `json:"action" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Int64Param(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req applyRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	log, err := h.service.Apply(r.Context(), id, req.Action, principal, req.Note)
	if err != nil {
		h.logger.Warn("apply workflow action", slog.Int64("ref_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, log)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Int64Param(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	logs, err := h.service.History(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if logs == nil {
		logs = []TransitionLog{}
	}
	httpx.JSON(w, http.StatusOK, logs)
}
