package web

import (
	"net/http"
	"strconv"

	"service-center/internal/app"
	"service-center/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// queryDecimal parses an optional money query parameter.
func queryDecimal(r *http.Request, name string) (*decimal.Decimal, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, false
	}
	return &d, true
}

// listInventory handles GET /api/inventory with category, search, minPrice,
// maxPrice and inStock filters.
func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := app.InventoryListRequest{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		InStock:  q.Get("inStock") == "true",
	}
	var ok bool
	if req.MinPrice, ok = queryDecimal(r, "minPrice"); !ok {
		writeError(w, r, "minPrice must be a number", core.CodeValidation, http.StatusBadRequest)
		return
	}
	if req.MaxPrice, ok = queryDecimal(r, "maxPrice"); !ok {
		writeError(w, r, "maxPrice must be a number", core.CodeValidation, http.StatusBadRequest)
		return
	}

	items, err := h.svc.ListInventory(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, items)
}

func (h *Handler) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req app.CreateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.CreateInventoryItem(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, item)
}

func (h *Handler) getInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) updateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.UpdateInventoryItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) deleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteInventoryItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// restockInventoryItem handles POST /api/inventory/{id}/restock.
func (h *Handler) restockInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req app.RestockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.RestockInventoryItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	type response struct {
		Message  string              `json:"message"`
		Item     *core.InventoryItem `json:"item"`
		Quantity int                 `json:"quantity"`
	}
	writeJSON(w, response{Message: result.Message, Item: result.Item, Quantity: result.Quantity})
}

func (h *Handler) stockMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.svc.GetStockMovements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, movements)
}

// lowStock handles GET /api/inventory/low-stock?threshold=N.
func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold := -1
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, "threshold must be a non-negative integer", core.CodeValidation, http.StatusBadRequest)
			return
		}
		threshold = n
	}
	items, err := h.svc.LowStock(r.Context(), threshold)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, items)
}
