package web

import (
	"net/http"

	"service-center/internal/app"

	"github.com/go-chi/chi/v5"
)

// listCustomers handles GET /api/customers?search=.
func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.ListCustomers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, customers)
}

// findOrCreateCustomer handles POST /api/customers. It answers 201 when a
// customer was created and 200 when the registration number already existed.
func (h *Handler) findOrCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req app.CustomerDetailsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.FindOrCreateCustomer(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSONStatus(w, status, result.Customer)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, c)
}
