package app

import (
	"context"

	"service-center/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web, jobs) call.
// It decouples presentation from business logic: requests arrive as plain
// strings and JSON-shaped structs, are validated here, and leave as domain
// values or *core.Error failures.
type ApplicationService interface {
	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// ── Invoices ──────────────────────────────────────────────────────────────

	// CreateCompleteInvoice resolves the customer, deducts parts, records the
	// service and issues an invoice atomically.
	CreateCompleteInvoice(ctx context.Context, req CompleteInvoiceRequest) (*core.Invoice, error)
	// CreateInvoice bills a service recorded earlier.
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error)
	// GetInvoice accepts an invoice id or invoice number.
	GetInvoice(ctx context.Context, ref string) (*core.Invoice, error)
	ListInvoices(ctx context.Context, req InvoiceListRequest) (*InvoiceListResult, error)
	ListCustomerInvoices(ctx context.Context, customerID string) (*InvoiceListResult, error)
	UpdateInvoiceStatus(ctx context.Context, ref string, req UpdateStatusRequest) (*core.Invoice, error)
	// PreviewInvoiceNumber shows the next likely number without reserving it.
	PreviewInvoiceNumber(ctx context.Context) (string, error)
	// ExportInvoices renders the filtered invoice list as an .xlsx workbook.
	ExportInvoices(ctx context.Context, req InvoiceListRequest) (*ExportResult, error)

	// ── Customers ─────────────────────────────────────────────────────────────

	FindOrCreateCustomer(ctx context.Context, req CustomerDetailsRequest) (*CustomerResult, error)
	ListCustomers(ctx context.Context, search string) ([]core.Customer, error)
	GetCustomer(ctx context.Context, id string) (*core.Customer, error)
	UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest) (*core.Customer, error)

	// ── Inventory ─────────────────────────────────────────────────────────────

	ListInventory(ctx context.Context, req InventoryListRequest) ([]core.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (*core.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, req CreateItemRequest) (*core.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, id string, req UpdateItemRequest) (*core.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id string) error
	RestockInventoryItem(ctx context.Context, id string, req RestockRequest) (*RestockResult, error)
	GetStockMovements(ctx context.Context, id string) ([]core.StockMovement, error)
	// LowStock lists items at or below threshold; a negative threshold uses the configured default.
	LowStock(ctx context.Context, threshold int) ([]core.InventoryItem, error)

	// ── Services ──────────────────────────────────────────────────────────────

	CreateService(ctx context.Context, req CreateServiceRequest) (*core.ServiceRecord, error)
	GetService(ctx context.Context, id string) (*core.ServiceRecord, error)

	// ── Analytics ─────────────────────────────────────────────────────────────

	RevenueAnalytics(ctx context.Context, period string) ([]core.RevenueBucket, error)
	ServiceFrequency(ctx context.Context, months int) ([]core.ServiceFrequencyBucket, error)

	// ── Auth ──────────────────────────────────────────────────────────────────

	// AuthEnabled reports whether an admin credential is configured.
	AuthEnabled() bool
	// AuthenticateAdmin checks the single admin credential.
	AuthenticateAdmin(ctx context.Context, username, password string) (*AdminSession, error)
}
