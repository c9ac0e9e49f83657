package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopline-labs/commerce-core/internal/reporting/application"
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
		tracer:  otel.Tracer("reporting-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/reports/total-revenue", h.totalRevenue)
	r.Get("/reports/orders-today", h.ordersToday)
	r.Get("/reports/variation-sales", h.variationSales)
	return r
}

func (h *Handler) totalRevenue(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TotalRevenue")
	defer span.End()

	from, ok := queryTime(r, "startDate")
	if !ok {
		http.Error(w, "invalid startDate", http.StatusBadRequest)
		return
	}
	to, ok := queryTime(r, "endDate")
	if !ok {
		http.Error(w, "invalid endDate", http.StatusBadRequest)
		return
	}

	total, err := h.service.TotalRevenue(ctx, from, to)
	if err != nil {
		h.log.Error("total revenue failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"totalRevenue": total})
}

func (h *Handler) ordersToday(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "OrdersToday")
	defer span.End()

	count, err := h.service.OrdersToday(ctx)
	if err != nil {
		h.log.Error("orders today failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"ordersCount": count})
}

func (h *Handler) variationSales(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "VariationSales")
	defer span.End()

	from, ok := queryTime(r, "startDate")
	if !ok {
		http.Error(w, "invalid startDate", http.StatusBadRequest)
		return
	}
	to, ok := queryTime(r, "endDate")
	if !ok {
		http.Error(w, "invalid endDate", http.StatusBadRequest)
		return
	}

	page, err := h.service.TopVariationSales(ctx, queryInt(r, "page", 1), queryInt(r, "limit", 5), from, to)
	if err != nil {
		h.log.Error("variation sales failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func queryTime(r *http.Request, key string) (*time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Accept plain dates too.
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, false
		}
	}
	return &t, true
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
