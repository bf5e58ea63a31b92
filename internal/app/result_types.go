package app

import (
	"time"

	"service-center/internal/core"
)

// InvoiceListResult is returned by ListInvoices and ListCustomerInvoices.
type InvoiceListResult struct {
	Invoices []core.InvoiceSummary
}

// CustomerResult is returned by FindOrCreateCustomer.
type CustomerResult struct {
	Customer *core.Customer
	Created  bool
}

// RestockResult is returned by RestockInventoryItem.
type RestockResult struct {
	Message  string
	Item     *core.InventoryItem
	Quantity int
}

// ExportResult is a rendered spreadsheet.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Count       int
}

// AdminSession is returned by a successful AuthenticateAdmin.
type AdminSession struct {
	Username string    `json:"username"`
	Role     string    `json:"role"`
	IssuedAt time.Time `json:"issuedAt"`
}
