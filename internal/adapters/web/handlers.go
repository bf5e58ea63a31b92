package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"service-center/internal/app"
	"service-center/internal/metrics"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Options configures the HTTP adapter.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	SessionTTL     time.Duration
	MaxBodyBytes   int64
	// SecureCookie sets the Secure flag on the session cookie; off for plain-HTTP development.
	SecureCookie bool
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
	opts   Options
	log    *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 8 * time.Hour
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	h := &Handler{svc: svc, opts: opts, log: opts.Logger}
	if !svc.AuthEnabled() {
		h.log.Warn("ADMIN_PASSWORD_HASH is not set; API authentication is disabled")
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.log))
	r.Use(Recoverer)
	r.Use(CORS(opts.AllowedOrigins))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RequestBodyLimit(opts.MaxBodyBytes))

		// ── Public ────────────────────────────────────────────────────────────
		r.Get("/health", h.health)
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)

		// ── Admin ─────────────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Get("/auth/me", h.me)

			r.Route("/invoice", func(r chi.Router) {
				r.Post("/complete", h.createCompleteInvoice)
				r.Post("/", h.createInvoice)
				r.Get("/", h.listInvoices)
				r.Get("/new-id", h.previewInvoiceNumber)
				r.Get("/export", h.exportInvoices)
				r.Get("/customers/{customerID}/invoices", h.listCustomerInvoices)
				r.Get("/{ref}", h.getInvoice)
				r.Patch("/{ref}/status", h.updateInvoiceStatus)
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", h.listCustomers)
				r.Post("/", h.findOrCreateCustomer)
				r.Get("/{id}", h.getCustomer)
				r.Patch("/{id}", h.updateCustomer)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", h.listInventory)
				r.Post("/", h.createInventoryItem)
				r.Get("/low-stock", h.lowStock)
				r.Get("/{id}", h.getInventoryItem)
				r.Patch("/{id}", h.updateInventoryItem)
				r.Delete("/{id}", h.deleteInventoryItem)
				r.Post("/{id}/restock", h.restockInventoryItem)
				r.Get("/{id}/movements", h.stockMovements)
			})

			r.Route("/service", func(r chi.Router) {
				r.Post("/", h.createService)
				r.Get("/{id}", h.getService)
			})

			r.Get("/analytics/revenue", h.revenueAnalytics)
			r.Get("/analytics/services", h.serviceFrequency)
		})
	})

	h.router = r
	return r
}

// health reports process and database status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := h.svc.Ping(r.Context()); err != nil {
		h.log.Warn("health check: database unreachable", zap.Error(err))
		writeJSONStatus(w, http.StatusServiceUnavailable, response{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, response{Status: "ok", Database: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
