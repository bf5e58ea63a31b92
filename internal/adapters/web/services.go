package web

import (
	"net/http"
	"strconv"

	"service-center/internal/app"
	"service-center/internal/core"

	"github.com/go-chi/chi/v5"
)

// createService handles POST /api/service: a visit recorded without an invoice.
func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	var req app.CreateServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.CreateService(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

// revenueAnalytics handles GET /api/analytics/revenue?period=week|month|year.
func (h *Handler) revenueAnalytics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}
	buckets, err := h.svc.RevenueAnalytics(r.Context(), period)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, buckets)
}

// serviceFrequency handles GET /api/analytics/services?months=N.
func (h *Handler) serviceFrequency(w http.ResponseWriter, r *http.Request) {
	months := 0
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, "months must be an integer", core.CodeValidation, http.StatusBadRequest)
			return
		}
		months = n
	}
	buckets, err := h.svc.ServiceFrequency(r.Context(), months)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, buckets)
}
