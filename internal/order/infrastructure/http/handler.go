package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	catalogdomain "github.com/shopline-labs/commerce-core/internal/catalog/domain"
	invdomain "github.com/shopline-labs/commerce-core/internal/inventory/domain"
	"github.com/shopline-labs/commerce-core/internal/order/application"
	"github.com/shopline-labs/commerce-core/internal/order/domain"
	paymentdomain "github.com/shopline-labs/commerce-core/internal/payment/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

// Routes is the customer-facing surface; every operation is scoped to the
// calling user.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.checkout)
	r.Get("/orders", h.list(false))
	r.Get("/orders/{orderID}", h.get(false))
	r.Put("/orders/{orderID}/status", h.updateStatus(false))
	r.Post("/orders/code/{orderCode}/confirm-payment", h.confirmPayment)
	return r
}

// AdminRoutes bypasses the ownership check.
func (h *Handler) AdminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/orders", h.list(true))
	r.Get("/orders/{orderID}", h.get(true))
	r.Put("/orders/{orderID}/status", h.updateStatus(true))
	return r
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req application.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	result, err := h.service.Checkout(ctx, userID(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) get(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "GetOrder")
		defer span.End()

		o, err := h.service.GetByID(ctx, h.actor(r, admin), chi.URLParam(r, "orderID"))
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func (h *Handler) list(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "ListOrders")
		defer span.End()

		q := domain.ListQuery{
			CodeContains: r.URL.Query().Get("orderCode"),
			SortAsc:      r.URL.Query().Get("orderBy") == "asc",
			Page:         queryInt(r, "page", 1),
			Limit:        queryInt(r, "limit", 10),
		}
		if raw := r.URL.Query().Get("orderStatus"); raw != "" {
			status := domain.Status(raw)
			q.StatusMilestone = &status
		}

		page, err := h.service.List(ctx, h.actor(r, admin), q)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

type updateStatusReq struct {
	OrderStatus domain.Status `json:"orderStatus"`
}

func (h *Handler) updateStatus(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
		defer span.End()

		var req updateStatusReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		o, err := h.service.UpdateStatus(ctx, h.actor(r, admin), chi.URLParam(r, "orderID"), req.OrderStatus)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ConfirmPayment")
	defer span.End()

	o, err := h.service.ConfirmPaymentByCode(ctx, userID(r), chi.URLParam(r, "orderCode"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) actor(r *http.Request, admin bool) application.Actor {
	return application.Actor{UserID: userID(r), Admin: admin}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var stockErr *domain.StockChangedError
	var insufficientErr *invdomain.InsufficientStockError
	var transitionErr *domain.InvalidStatusTransitionError
	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     err.Error(),
			"conflicts": stockErr.Conflicts,
		})
	case errors.As(err, &insufficientErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       err.Error(),
			"variationId": insufficientErr.VariationID,
			"requested":   insufficientErr.Requested,
			"available":   insufficientErr.Available,
		})
	case errors.As(err, &transitionErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, catalogdomain.ErrVariationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, paymentdomain.ErrPaymentMethodDisabled),
		errors.Is(err, application.ErrEmptyCart),
		errors.Is(err, application.ErrInvalidPaymentMethod),
		errors.Is(err, application.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "store timeout", http.StatusServiceUnavailable)
	default:
		h.log.Error("order request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
