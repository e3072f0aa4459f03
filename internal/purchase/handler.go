package purchase

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/product"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires HTTP endpoints for purchases.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs purchase handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchases", h.list)
	r.Post("/purchases", h.create)
	r.Get("/purchases/{id}", h.get)
	r.Put("/purchases/{id}", h.update)
	r.Delete("/purchases/{id}", h.delete)
}

type listResponse struct {
	Data       []Purchase        `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create purchase", slog.Any("error", err))
		respondPurchaseError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, page := parseListQuery(r)
	purchases, total, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if purchases == nil {
		purchases = []Purchase{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Data:       purchases,
		Pagination: shared.NewPagination(page.Page, page.PerPage, int(total)),
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update purchase", slog.Any("error", err))
		respondPurchaseError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete purchase", slog.Any("error", err))
		respondPurchaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondPurchaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPriceMismatch),
		errors.Is(err, ErrMissingVendor),
		errors.Is(err, ErrMissingDepartment),
		errors.Is(err, ErrMissingFromLocation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDuplicatePONumber):
		httpx.Problem(w, http.StatusConflict, "Duplicate PO Number", err.Error())
	case errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, product.ErrNegativeStock),
		errors.Is(err, product.ErrNoInventoryLocation),
		errors.Is(err, product.ErrNoInventoryEntry):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Stock Conflict", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func parseListQuery(r *http.Request) (Filter, shared.Pagination) {
	q := r.URL.Query()

	filter := Filter{
		Status: Status(q.Get("status")),
		Type:   Type(q.Get("type")),
	}
	if id, err := uuid.Parse(q.Get("product_id")); err == nil {
		filter.ProductID = id
	}
	if id, err := uuid.Parse(q.Get("vendor_id")); err == nil {
		filter.VendorID = id
	}
	if t, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filter.From = t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filter.To = t
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return filter, shared.Pagination{Page: page, PerPage: perPage}
}
