package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InventoryCategory string

const (
	CategorySparePart  InventoryCategory = "spare-part"
	CategoryConsumable InventoryCategory = "consumable"
)

func (c InventoryCategory) Valid() bool {
	return c == CategorySparePart || c == CategoryConsumable
}

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
)

func (s InvoiceStatus) Valid() bool {
	return s == InvoicePending || s == InvoicePaid
}

type MovementType string

const (
	MovementSale       MovementType = "SALE"
	MovementRestock    MovementType = "RESTOCK"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Customer is a vehicle owner, keyed by the vehicle registration number.
type Customer struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Mobile       string    `json:"mobile"`
	Address      string    `json:"address"`
	VehicleRegNo string    `json:"vehicleRegNo"`
	VehicleModel string    `json:"vehicleModel"`
	EngineNo     string    `json:"engineNo"`
	FrameNo      string    `json:"frameNo"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CustomerDetails is the customer block of an invoice request.
type CustomerDetails struct {
	Name         string
	Mobile       string
	Address      string
	VehicleRegNo string
	VehicleModel string
	EngineNo     string
	FrameNo      string
}

// CustomerPatch holds optional customer edits; nil fields are left unchanged.
type CustomerPatch struct {
	Name         *string
	Mobile       *string
	Address      *string
	VehicleRegNo *string
	VehicleModel *string
	EngineNo     *string
	FrameNo      *string
}

type InventoryItem struct {
	ID        uuid.UUID         `json:"id"`
	SKU       string            `json:"sku"`
	Name      string            `json:"name"`
	Price     decimal.Decimal   `json:"price"`
	Quantity  int               `json:"quantity"`
	Category  InventoryCategory `json:"category"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type NewInventoryItem struct {
	SKU      string
	Name     string
	Price    decimal.Decimal
	Quantity int
	Category InventoryCategory
}

type InventoryItemPatch struct {
	SKU      *string
	Name     *string
	Price    *decimal.Decimal
	Quantity *int
	Category *InventoryCategory
}

type InventoryFilter struct {
	Category InventoryCategory
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
}

// StockMovement is one entry of the append-only quantity audit trail.
type StockMovement struct {
	ID        int64           `json:"id"`
	ItemID    uuid.UUID       `json:"itemId"`
	Type      MovementType    `json:"type"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PartRequest asks for quantity units of an item. A nil UnitPrice sells at
// the catalog price.
type PartRequest struct {
	ItemID    uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
}

// ConsumedPart is the result of a successful stock deduction: the item
// snapshot and the unit price charged.
type ConsumedPart struct {
	ItemID           uuid.UUID
	SKU              string
	Name             string
	Quantity         int
	UnitPrice        decimal.Decimal
	CatalogUnitPrice decimal.Decimal
	PriceOverridden  bool
}

// LineTotal is quantity × unit price at sale.
func (p ConsumedPart) LineTotal() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// ServiceVisit describes the work done on one visit.
type ServiceVisit struct {
	Km          int
	ServiceCost decimal.Decimal
	Description string
	// VisitDate defaults to the transaction time when zero.
	VisitDate time.Time
}

type ServiceRecord struct {
	ID          uuid.UUID       `json:"id"`
	CustomerID  uuid.UUID       `json:"customerId"`
	VisitDate   time.Time       `json:"date"`
	Km          int             `json:"km"`
	ServiceCost decimal.Decimal `json:"serviceCost"`
	Description string          `json:"description"`
	Parts       []ServicePart   `json:"sparePartsUsed"`
	CreatedAt   time.Time       `json:"createdAt"`
	Customer    *Customer       `json:"customer,omitempty"`
}

// ServicePart is a stored sale line. SKU, Name and prices are snapshots taken
// at sale time; Item is the current catalog entry when it still exists.
type ServicePart struct {
	LineNumber       int             `json:"lineNumber"`
	ItemID           *uuid.UUID      `json:"itemId"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	CatalogUnitPrice decimal.Decimal `json:"catalogUnitPrice"`
	PriceOverridden  bool            `json:"priceOverridden"`
	Item             *InventoryItem  `json:"item,omitempty"`
}

// PartsTotal sums quantity × unit price over the stored lines.
func (s *ServiceRecord) PartsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Parts {
		total = total.Add(p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	return total
}

type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerID    uuid.UUID       `json:"customerId"`
	ServiceID     uuid.UUID       `json:"serviceId"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Discount      decimal.Decimal `json:"discount"`
	NetAmount     decimal.Decimal `json:"netAmount"`
	IssuedAt      time.Time       `json:"issuedAt"`
	Status        InvoiceStatus   `json:"status"`
	Customer      *Customer       `json:"customer,omitempty"`
	Service       *ServiceRecord  `json:"service,omitempty"`
}

// InvoiceSummary is a list row: the invoice plus the customer and service
// fields the list screens show.
type InvoiceSummary struct {
	ID                 uuid.UUID       `json:"id"`
	InvoiceNumber      string          `json:"invoiceNumber"`
	CustomerID         uuid.UUID       `json:"customerId"`
	ServiceID          uuid.UUID       `json:"serviceId"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	Discount           decimal.Decimal `json:"discount"`
	NetAmount          decimal.Decimal `json:"netAmount"`
	IssuedAt           time.Time       `json:"issuedAt"`
	Status             InvoiceStatus   `json:"status"`
	CustomerName       string          `json:"customerName"`
	VehicleRegNo       string          `json:"vehicleRegNo"`
	ServiceDate        time.Time       `json:"serviceDate"`
	ServiceKm          int             `json:"serviceKm"`
	ServiceCost        decimal.Decimal `json:"serviceCost"`
	ServiceDescription string          `json:"serviceDescription"`
}

type InvoiceFilter struct {
	Status InvoiceStatus
	From   *time.Time
	To     *time.Time
}

// CompleteInvoiceInput is everything needed to record a visit and bill it in one step.
type CompleteInvoiceInput struct {
	Customer CustomerDetails
	Visit    ServiceVisit
	Parts    []PartRequest
	Discount decimal.Decimal
}

// ServiceInput records a visit for an existing customer without billing it.
type ServiceInput struct {
	CustomerID uuid.UUID
	Visit      ServiceVisit
	Parts      []PartRequest
}

type RevenueBucket struct {
	Year         int             `json:"year"`
	Month        int             `json:"month,omitempty"`
	Week         int             `json:"week,omitempty"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	InvoiceCount int             `json:"invoiceCount"`
}

type ServiceFrequencyBucket struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}
