package repl

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"service-center/internal/app"
	"service-center/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeService struct {
	app.ApplicationService
	customers []core.Customer
	items     []core.InventoryItem
	got       *app.CompleteInvoiceRequest
}

func (f *fakeService) ListCustomers(context.Context, string) ([]core.Customer, error) {
	return f.customers, nil
}

func (f *fakeService) ListInventory(context.Context, app.InventoryListRequest) ([]core.InventoryItem, error) {
	return f.items, nil
}

func (f *fakeService) PreviewInvoiceNumber(context.Context) (string, error) {
	return "INV-20240315-001", nil
}

func (f *fakeService) CreateCompleteInvoice(_ context.Context, req app.CompleteInvoiceRequest) (*core.Invoice, error) {
	f.got = &req
	return &core.Invoice{InvoiceNumber: "INV-20240315-001", NetAmount: decimal.RequireFromString("560")}, nil
}

func run(svc app.ApplicationService, input string) string {
	var out bytes.Buffer
	Run(context.Background(), svc, bufio.NewReader(strings.NewReader(input)), &out)
	return out.String()
}

func TestWizard_ExistingCustomer(t *testing.T) {
	oilID := uuid.New()
	svc := &fakeService{
		customers: []core.Customer{{Name: "Ravi", VehicleRegNo: "KA01AB1234"}},
		items:     []core.InventoryItem{{ID: oilID, SKU: "OIL-1L", Name: "Engine Oil"}},
	}
	input := strings.Join([]string{
		"/new-invoice",
		"ka01ab1234",
		"12000",
		"500",
		"General service",
		"oil-1l 2",
		"OIL-1L x",
		"OIL-1L 1 35.50",
		"done",
		"20",
		"/exit",
	}, "\n") + "\n"

	out := run(svc, input)
	if svc.got == nil {
		t.Fatalf("invoice not submitted:\n%s", out)
	}
	req := svc.got
	if req.CustomerDetails.VehicleRegNo != "ka01ab1234" || req.CustomerDetails.Name != "" {
		t.Errorf("customer = %+v", req.CustomerDetails)
	}
	if req.ServiceDetails.Km != 12000 || !req.ServiceDetails.ServiceCost.Equal(decimal.NewFromInt(500)) {
		t.Errorf("service = %+v", req.ServiceDetails)
	}
	parts := req.ServiceDetails.SparePartsUsed
	if len(parts) != 2 || parts[0].Item != oilID.String() || parts[0].UnitPrice != nil {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[1].UnitPrice == nil || !parts[1].UnitPrice.Equal(decimal.RequireFromString("35.50")) {
		t.Errorf("override price = %v", parts[1].UnitPrice)
	}
	if !req.Discount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("discount = %s", req.Discount)
	}
	if !strings.Contains(out, "Invalid quantity.") || !strings.Contains(out, "Invoice INV-20240315-001 issued") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestWizard_NewCustomerAndCancel(t *testing.T) {
	svc := &fakeService{}
	input := strings.Join([]string{
		"/new-invoice",
		"KA02CD5678",
		"Asha", "9800000001", "Indiranagar", "Activa", "E9", "F9",
		"cancel",
		"/quit",
	}, "\n") + "\n"

	out := run(svc, input)
	if svc.got != nil {
		t.Error("cancelled wizard must not submit")
	}
	if !strings.Contains(out, "New vehicle") || !strings.Contains(out, "Invoice cancelled.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_DelegatesToCLI(t *testing.T) {
	out := run(&fakeService{}, "/new-id\nhello\n/bogus\n")
	if !strings.Contains(out, "INV-20240315-001") {
		t.Errorf("missing preview:\n%s", out)
	}
	if !strings.Contains(out, "Commands start with /") || !strings.Contains(out, `unknown command "bogus"`) {
		t.Errorf("unexpected output:\n%s", out)
	}
}
