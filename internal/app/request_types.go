package app

import (
	"github.com/shopspring/decimal"
)

// CustomerDetailsRequest is the customer block of an invoice or a
// find-or-create call. Only the registration number is always required; the
// remaining fields are required when the vehicle is new.
type CustomerDetailsRequest struct {
	Name         string `json:"name" validate:"max=120"`
	Mobile       string `json:"mobile" validate:"max=20"`
	Address      string `json:"address" validate:"max=300"`
	VehicleRegNo string `json:"vehicleRegNo" validate:"required,max=32"`
	VehicleModel string `json:"vehicleModel" validate:"max=80"`
	EngineNo     string `json:"engineNo" validate:"max=64"`
	FrameNo      string `json:"frameNo" validate:"max=64"`
}

// SparePartRequest is one consumed part. A nil UnitPrice sells at catalog price.
type SparePartRequest struct {
	Item      string           `json:"item" validate:"required,uuid"`
	Quantity  int              `json:"quantity" validate:"gte=1,lte=2147483647"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty" validate:"omitempty,gte=0,lte=9999999999.99,cents"`
}

// ServiceDetailsRequest describes the visit.
type ServiceDetailsRequest struct {
	Km             int                `json:"km" validate:"gte=0,lte=2147483647"`
	ServiceCost    decimal.Decimal    `json:"serviceCost" validate:"gte=0,lte=9999999999.99,cents"`
	Description    string             `json:"description" validate:"required,max=2000"`
	SparePartsUsed []SparePartRequest `json:"sparePartsUsed" validate:"dive"`
}

// CompleteInvoiceRequest is the input of the one-step visit-and-bill flow.
type CompleteInvoiceRequest struct {
	CustomerDetails CustomerDetailsRequest `json:"customerDetails"`
	ServiceDetails  ServiceDetailsRequest  `json:"serviceDetails"`
	Discount        decimal.Decimal        `json:"discount" validate:"gte=0,lte=9999999999.99,cents"`
}

// CreateInvoiceRequest bills an already recorded service.
type CreateInvoiceRequest struct {
	ServiceID string          `json:"serviceId" validate:"required,uuid"`
	Discount  decimal.Decimal `json:"discount" validate:"gte=0,lte=9999999999.99,cents"`
}

// InvoiceListRequest filters invoice lists and exports. Dates are YYYY-MM-DD
// (business time zone) or RFC 3339; ToDate is inclusive.
type InvoiceListRequest struct {
	Status   string `validate:"omitempty,oneof=pending paid"`
	FromDate string
	ToDate   string
}

// UpdateStatusRequest changes an invoice's payment status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid"`
}

// UpdateCustomerRequest is a partial customer edit.
type UpdateCustomerRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=120"`
	Mobile       *string `json:"mobile" validate:"omitempty,max=20"`
	Address      *string `json:"address" validate:"omitempty,max=300"`
	VehicleRegNo *string `json:"vehicleRegNo" validate:"omitempty,max=32"`
	VehicleModel *string `json:"vehicleModel" validate:"omitempty,max=80"`
	EngineNo     *string `json:"engineNo" validate:"omitempty,max=64"`
	FrameNo      *string `json:"frameNo" validate:"omitempty,max=64"`
}

// InventoryListRequest filters the catalog.
type InventoryListRequest struct {
	Category string           `validate:"omitempty,oneof=spare-part consumable"`
	Search   string           `validate:"max=100"`
	MinPrice *decimal.Decimal `validate:"omitempty,gte=0"`
	MaxPrice *decimal.Decimal `validate:"omitempty,gte=0"`
	InStock  bool
}

// CreateItemRequest adds a catalog item.
type CreateItemRequest struct {
	SKU      string          `json:"sku" validate:"required,max=64"`
	Name     string          `json:"name" validate:"required,max=120"`
	Price    decimal.Decimal `json:"price" validate:"gte=0,lte=9999999999.99,cents"`
	Quantity int             `json:"quantity" validate:"gte=0,lte=2147483647"`
	Category string          `json:"category" validate:"required,oneof=spare-part consumable"`
}

// UpdateItemRequest is a partial catalog edit. SKU may be sent but must not change.
type UpdateItemRequest struct {
	SKU      *string          `json:"sku" validate:"omitempty,max=64"`
	Name     *string          `json:"name" validate:"omitempty,max=120"`
	Price    *decimal.Decimal `json:"price" validate:"omitempty,gte=0,lte=9999999999.99,cents"`
	Quantity *int             `json:"quantity" validate:"omitempty,gte=0,lte=2147483647"`
	Category *string          `json:"category" validate:"omitempty,oneof=spare-part consumable"`
}

// RestockRequest adds units to an item.
type RestockRequest struct {
	Quantity int `json:"quantity" validate:"gte=1,lte=2147483647"`
}

// CreateServiceRequest records a visit for an existing customer.
type CreateServiceRequest struct {
	CustomerID     string             `json:"customerId" validate:"required,uuid"`
	Date           string             `json:"date"`
	Km             int                `json:"km" validate:"gte=0,lte=2147483647"`
	ServiceCost    decimal.Decimal    `json:"serviceCost" validate:"gte=0,lte=9999999999.99,cents"`
	Description    string             `json:"description" validate:"required,max=2000"`
	SparePartsUsed []SparePartRequest `json:"sparePartsUsed" validate:"dive"`
}
