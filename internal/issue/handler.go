package issue

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

// Handler wires HTTP endpoints for issue orders.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs issue handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers issue order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/issue-orders", h.list)
	r.Post("/issue-orders", h.create)
	r.Get("/issue-orders/{id}", h.get)
	r.Put("/issue-orders/{id}", h.update)
	r.Delete("/issue-orders/{id}", h.delete)
}

type listResponse struct {
	Data       []Order           `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create issue order", slog.Any("error", err))
		respondIssueError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, page := parseListQuery(r)
	orders, total, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("list issue orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Data:       orders,
		Pagination: shared.NewPagination(page.Page, page.PerPage, int(total)),
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update issue order", slog.Any("error", err))
		respondIssueError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	if err := h.service.SoftDelete(r.Context(), id); err != nil {
		h.logger.Error("delete issue order", slog.Any("error", err))
		respondIssueError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondIssueError(w http.ResponseWriter, err error) {
	switch {
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

	filter := Filter{Search: q.Get("search")}
	if id, err := uuid.Parse(q.Get("customer_id")); err == nil {
		filter.CustomerID = id
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
