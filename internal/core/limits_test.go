package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"service-center/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestInvoiceTotals_RejectsSubCentTotal(t *testing.T) {
	// 3 × 0.333 would be stored as 1.00 while the stored line reads 3 × 0.33.
	parts := []core.ConsumedPart{{Name: "Washer", Quantity: 3, UnitPrice: dec("0.333"), CatalogUnitPrice: dec("0.40"), PriceOverridden: true}}
	_, _, err := core.InvoiceTotals(decimal.Zero, parts, decimal.Zero)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestInvoiceTotals_RejectsTotalBeyondColumn(t *testing.T) {
	parts := []core.ConsumedPart{{Name: "Engine", Quantity: 2, UnitPrice: dec("5000000000.00")}}
	_, _, err := core.InvoiceTotals(dec("1"), parts, decimal.Zero)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "invoice total must be less than") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestInvoiceTotals_AcceptsTrailingZeros(t *testing.T) {
	total, _, err := core.InvoiceTotals(dec("10.500"), nil, dec("0.50"))
	if err != nil {
		t.Fatalf("10.500 is a whole number of cents: %v", err)
	}
	if !total.Equal(dec("10.50")) {
		t.Errorf("total = %s, want 10.50", total)
	}
}

// Input checks run before any storage access, so nil pools are enough here.
func TestCreateCompleteInvoice_RejectsAmountsTheSchemaCannotHold(t *testing.T) {
	svc := core.NewInvoiceService(nil, nil, nil, nil, nil, nil)
	itemID := uuid.New()

	tests := []struct {
		name   string
		mutate func(*core.CompleteInvoiceInput)
		want   string
	}{
		{"sub-cent service cost", func(in *core.CompleteInvoiceInput) {
			in.Visit.ServiceCost = dec("100.005")
		}, "service cost must have at most 2 decimal places"},
		{"oversized service cost", func(in *core.CompleteInvoiceInput) {
			in.Visit.ServiceCost = dec("99999999999999.99")
		}, "service cost must be less than 10000000000"},
		{"sub-cent override", func(in *core.CompleteInvoiceInput) {
			p := dec("0.333")
			in.Parts = []core.PartRequest{{ItemID: itemID, Quantity: 3, UnitPrice: &p}}
		}, "spare part 1: unit price must have at most 2 decimal places"},
		{"sub-cent discount", func(in *core.CompleteInvoiceInput) {
			in.Discount = dec("0.001")
		}, "discount must have at most 2 decimal places"},
		{"oversized km", func(in *core.CompleteInvoiceInput) {
			in.Visit.Km = core.MaxCount
			in.Visit.Km++
		}, "km must be at most 2147483647"},
		{"oversized quantity", func(in *core.CompleteInvoiceInput) {
			q := core.MaxCount
			q++
			in.Parts = []core.PartRequest{{ItemID: itemID, Quantity: q}}
		}, "spare part 1: quantity must be at most 2147483647"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := core.CompleteInvoiceInput{
				Customer: core.CustomerDetails{VehicleRegNo: "KA01AB1234"},
				Visit:    core.ServiceVisit{Km: 100, ServiceCost: dec("500"), Description: "General service"},
			}
			tt.mutate(&in)
			_, err := svc.CreateCompleteInvoice(context.Background(), in)
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("message %q does not contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestInventoryLimits(t *testing.T) {
	ctx := context.Background()
	inv := core.NewInventoryService(nil)

	_, err := inv.CreateItem(ctx, core.NewInventoryItem{
		SKU: "WS-01", Name: "Washer", Price: dec("0.125"), Quantity: 10, Category: core.CategoryConsumable,
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("sub-cent price: expected VALIDATION_ERROR, got %v", err)
	}

	_, err = inv.CreateItem(ctx, core.NewInventoryItem{
		SKU: "EN-01", Name: "Engine", Price: dec("10000000000"), Quantity: 1, Category: core.CategorySparePart,
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("oversized price: expected VALIDATION_ERROR, got %v", err)
	}

	qty := core.MaxCount
	qty++
	if _, err := inv.Restock(ctx, uuid.New(), qty); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("oversized restock: expected VALIDATION_ERROR, got %v", err)
	}
}

func TestCreateService_RejectsSubCentCost(t *testing.T) {
	records := core.NewServiceRecordService(nil, nil)
	_, err := records.CreateService(context.Background(), core.ServiceInput{
		CustomerID: uuid.New(),
		Visit:      core.ServiceVisit{Km: 10, ServiceCost: dec("49.999"), Description: "Tune-up"},
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}
