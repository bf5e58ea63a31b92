package web

import (
	"fmt"
	"net/http"
	"strconv"

	"service-center/internal/app"

	"github.com/go-chi/chi/v5"
)

func invoiceListRequest(r *http.Request) app.InvoiceListRequest {
	q := r.URL.Query()
	return app.InvoiceListRequest{
		Status:   q.Get("status"),
		FromDate: q.Get("fromDate"),
		ToDate:   q.Get("toDate"),
	}
}

// createCompleteInvoice handles POST /api/invoice/complete.
func (h *Handler) createCompleteInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.CompleteInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.CreateCompleteInvoice(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, inv)
}

// createInvoice handles POST /api/invoice.
func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.CreateInvoice(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, inv)
}

// listInvoices handles GET /api/invoice.
func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListInvoices(r.Context(), invoiceListRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Invoices)
}

func (h *Handler) previewInvoiceNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.svc.PreviewInvoiceNumber(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"invoiceNumber": number})
}

// exportInvoices handles GET /api/invoice/export and streams an .xlsx attachment.
func (h *Handler) exportInvoices(w http.ResponseWriter, r *http.Request) {
	export, err := h.svc.ExportInvoices(r.Context(), invoiceListRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.Header().Set("X-Invoice-Count", strconv.Itoa(export.Count))
	_, _ = w.Write(export.Data)
}

func (h *Handler) listCustomerInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomerInvoices(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Invoices)
}

// getInvoice handles GET /api/invoice/{ref}; ref is an id or an invoice number.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.GetInvoice(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) updateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.UpdateInvoiceStatus(r.Context(), chi.URLParam(r, "ref"), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, inv)
}
