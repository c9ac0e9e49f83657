package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	catalogdomain "github.com/shopline-labs/commerce-core/internal/catalog/domain"
	"github.com/shopline-labs/commerce-core/internal/cart/application"
	"github.com/shopline-labs/commerce-core/internal/cart/domain"
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
		tracer:  otel.Tracer("cart-http"),
	}
}

type cartItemReq struct {
	VariationID string `json:"variationId"`
	Quantity    int    `json:"quantity"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/cart", h.snapshot)
	r.Post("/cart/items", h.addItem)
	r.Put("/cart/items/{variationID}", h.setQuantity)
	r.Post("/cart/items/{variationID}/decrement", h.decrementItem)
	r.Delete("/cart/items/{variationID}", h.removeItem)
	r.Delete("/cart", h.clear)
	return r
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CartSnapshot")
	defer span.End()

	snap, err := h.service.PriceSnapshot(ctx, userID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CartAddItem")
	defer span.End()

	var req cartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	snap, err := h.service.AddItem(ctx, userID(r), req.VariationID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CartSetQuantity")
	defer span.End()

	var req cartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	snap, err := h.service.SetItemQuantity(ctx, userID(r), chi.URLParam(r, "variationID"), req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) decrementItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CartDecrementItem")
	defer span.End()

	snap, err := h.service.DecrementItem(ctx, userID(r), chi.URLParam(r, "variationID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CartRemoveItem")
	defer span.End()

	snap, err := h.service.RemoveItem(ctx, userID(r), chi.URLParam(r, "variationID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CartClear")
	defer span.End()

	snap, err := h.service.Clear(ctx, userID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var exceedsErr *domain.QuantityExceedsStockError
	switch {
	case errors.As(err, &exceedsErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       err.Error(),
			"variationId": exceedsErr.VariationID,
			"requested":   exceedsErr.Requested,
			"available":   exceedsErr.Available,
		})
	case errors.Is(err, domain.ErrCartConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, catalogdomain.ErrVariationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error("cart request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// userID trusts the identity header set by the auth layer in front of this
// service; authentication itself is out of scope here.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
