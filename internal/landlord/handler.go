package landlord

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

// Handler exposes landlord, property detail and payment endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	payments *PaymentService
	rbac     rbac.Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, payments *PaymentService, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, payments: payments, rbac: rbac}
}

// MountRoutes registers /api/landlords routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleLandlordManager, rbac.RoleRentalApprover, rbac.RoleAccountsUser))
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleLandlordManager))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
}

// MountPropertyRoutes registers the property detail lookup on the
// /api/properties router.
func (h *Handler) MountPropertyRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.RolePropertyManager, rbac.RoleLandlordManager, rbac.RoleAccountsUser)).
		Get("/{id}/detail", h.propertyDetail)
}

// MountPaymentRoutes registers /api/payments routes.
func (h *Handler) MountPaymentRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAccountsUser, rbac.RoleLandlordManager))
		r.Post("/{id}/mark-paid", h.markPaid)
		r.Post("/sync-status", h.syncStatus)
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Int64Param(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, 0, http.StatusCreated)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Int64Param(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.save(w, r, id, http.StatusOK)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, id int64, status int) {
	var in Input
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Save(r.Context(), id, in)
	if err != nil {
		h.logger.Warn("save landlord", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, status, res)
}

func (h *Handler) propertyDetail(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Int64Param(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	detail, err := h.service.PropertyDetail(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

type markPaidRequest struct {
	PaidOn           shared.Date `json:"paid_on"`
	PaymentReference string      `json:"payment_reference" validate:"max=140"`
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.Int64Param(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req markPaidRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	row, err := h.payments.MarkPaid(r.Context(), id, req.PaidOn.Time, req.PaymentReference)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.payments.SyncStatuses(r.Context(), h.payments.clock.Today())
	if err != nil {
		h.logger.Error("sync payment statuses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
