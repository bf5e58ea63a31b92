package core_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"service-center/internal/core"
	"service-center/internal/db"
	"service-center/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type services struct {
	pool      *pgxpool.Pool
	customers core.CustomerService
	inventory core.InventoryService
	records   core.ServiceRecordService
	numbers   core.InvoiceNumberAllocator
	invoices  core.InvoiceService
	reporting core.ReportingService
}

// setupTestDB applies the schema to TEST_DATABASE_URL and empties every table.
func setupTestDB(t *testing.T) (*services, context.Context) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL, 16)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, migrations.Files, zap.NewNop()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		TRUNCATE TABLE invoices, service_parts, service_records, inventory_movements,
		               inventory_items, customers, invoice_sequences CASCADE;
	`); err != nil {
		t.Fatalf("Failed to reset test database: %v", err)
	}

	customers := core.NewCustomerService(pool)
	inventory := core.NewInventoryService(pool)
	records := core.NewServiceRecordService(pool, inventory)
	numbers := core.NewInvoiceNumberAllocator(pool, time.UTC)
	return &services{
		pool:      pool,
		customers: customers,
		inventory: inventory,
		records:   records,
		numbers:   numbers,
		invoices:  core.NewInvoiceService(pool, customers, inventory, records, numbers, nil),
		reporting: core.NewReportingService(pool, time.UTC),
	}, ctx
}

func seedItem(t *testing.T, ctx context.Context, s *services, sku, name, price string, qty int) *core.InventoryItem {
	t.Helper()
	it, err := s.inventory.CreateItem(ctx, core.NewInventoryItem{
		SKU:      sku,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		Category: core.CategorySparePart,
	})
	if err != nil {
		t.Fatalf("Failed to seed item %s: %v", sku, err)
	}
	return it
}

func customerDetails(regNo, name string) core.CustomerDetails {
	return core.CustomerDetails{
		Name:         name,
		Mobile:       "9800000000",
		Address:      "12 Station Road",
		VehicleRegNo: regNo,
		VehicleModel: "Splendor Plus",
		EngineNo:     "ENG-" + regNo,
		FrameNo:      "FRM-" + regNo,
	}
}

func invoiceInput(regNo, name string, parts ...core.PartRequest) core.CompleteInvoiceInput {
	return core.CompleteInvoiceInput{
		Customer: customerDetails(regNo, name),
		Visit: core.ServiceVisit{
			Km:          12000,
			ServiceCost: decimal.NewFromInt(500),
			Description: "General service",
		},
		Parts: parts,
	}
}

func countRows(t *testing.T, ctx context.Context, s *services, table string) int {
	t.Helper()
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

func stockOf(t *testing.T, ctx context.Context, s *services, id uuid.UUID) int {
	t.Helper()
	it, err := s.inventory.GetItem(ctx, id)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	return it.Quantity
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestInvoice_ScenarioA_InsufficientStockCreatesNothing(t *testing.T) {
	s, ctx := setupTestDB(t)
	pads := seedItem(t, ctx, s, "BP-01", "Brake Pads", "450", 0)

	_, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA01AB1234", "Alice",
		core.PartRequest{ItemID: pads.ID, Quantity: 1}))
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}
	if !strings.Contains(err.Error(), "Brake Pads") {
		t.Errorf("error must name the item, got %q", err.Error())
	}

	for _, table := range []string{"customers", "service_records", "service_parts", "invoices"} {
		if n := countRows(t, ctx, s, table); n != 0 {
			t.Errorf("expected no rows in %s, got %d", table, n)
		}
	}
}

func TestInvoice_ScenarioB_SequentialNumbersPerDay(t *testing.T) {
	s, ctx := setupTestDB(t)
	today := core.DayKey(time.Now(), time.UTC)

	first, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA01AA0001", "Alice"))
	if err != nil {
		t.Fatalf("first invoice failed: %v", err)
	}
	second, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA01AA0002", "Bob"))
	if err != nil {
		t.Fatalf("second invoice failed: %v", err)
	}

	if want := "INV-" + today + "-001"; first.InvoiceNumber != want {
		t.Errorf("first number = %s, want %s", first.InvoiceNumber, want)
	}
	if want := "INV-" + today + "-002"; second.InvoiceNumber != want {
		t.Errorf("second number = %s, want %s", second.InvoiceNumber, want)
	}

	preview, err := s.invoices.PreviewNumber(ctx)
	if err != nil {
		t.Fatalf("PreviewNumber failed: %v", err)
	}
	if want := "INV-" + today + "-003"; preview != want {
		t.Errorf("preview = %s, want %s", preview, want)
	}
}

func TestInvoice_ScenarioC_ExistingCustomerUntouched(t *testing.T) {
	s, ctx := setupTestDB(t)

	alice, created, err := s.customers.FindOrCreate(ctx, customerDetails("ABC-1234", "Alice"))
	if err != nil || !created {
		t.Fatalf("seeding Alice failed: created=%v err=%v", created, err)
	}

	inv, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("abc-1234 ", "Bob"))
	if err != nil {
		t.Fatalf("CreateCompleteInvoice failed: %v", err)
	}
	if inv.Customer.ID != alice.ID {
		t.Errorf("expected existing customer %s, got %s", alice.ID, inv.Customer.ID)
	}
	if inv.Customer.Name != "Alice" {
		t.Errorf("customer name = %s, want Alice", inv.Customer.Name)
	}
	if n := countRows(t, ctx, s, "customers"); n != 1 {
		t.Errorf("expected 1 customer, got %d", n)
	}
}

func TestInvoice_ScenarioD_Totals(t *testing.T) {
	s, ctx := setupTestDB(t)
	chain := seedItem(t, ctx, s, "CH-01", "Drive Chain", "250", 5)

	in := invoiceInput("KA02CD5678", "Carol", core.PartRequest{ItemID: chain.ID, Quantity: 2})
	in.Visit.ServiceCost = decimal.NewFromInt(1500)
	in.Discount = decimal.NewFromInt(200)

	inv, err := s.invoices.CreateCompleteInvoice(ctx, in)
	if err != nil {
		t.Fatalf("CreateCompleteInvoice failed: %v", err)
	}
	if !inv.TotalAmount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("total = %s, want 2000", inv.TotalAmount)
	}
	if !inv.NetAmount.Equal(decimal.NewFromInt(1800)) {
		t.Errorf("net = %s, want 1800", inv.NetAmount)
	}
	if inv.Status != core.InvoicePending {
		t.Errorf("status = %s, want pending", inv.Status)
	}
	if got := stockOf(t, ctx, s, chain.ID); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}

	if len(inv.Service.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(inv.Service.Parts))
	}
	part := inv.Service.Parts[0]
	if part.Item == nil || part.Item.Name != "Drive Chain" {
		t.Errorf("part must be populated with item detail, got %+v", part.Item)
	}
	if part.PriceOverridden || !part.UnitPrice.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected catalog price 250, got %s (overridden=%v)", part.UnitPrice, part.PriceOverridden)
	}
}

func TestInvoice_AtomicityOnSecondOfThreeParts(t *testing.T) {
	s, ctx := setupTestDB(t)
	oil := seedItem(t, ctx, s, "OIL-1L", "Engine Oil", "380", 10)
	pads := seedItem(t, ctx, s, "BP-01", "Brake Pads", "450", 1)
	plug := seedItem(t, ctx, s, "SP-01", "Spark Plug", "120", 10)

	_, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA03EF0001", "Dan",
		core.PartRequest{ItemID: oil.ID, Quantity: 2},
		core.PartRequest{ItemID: pads.ID, Quantity: 2},
		core.PartRequest{ItemID: plug.ID, Quantity: 1},
	))
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}
	if !strings.Contains(err.Error(), "Brake Pads") {
		t.Errorf("expected first short item to be named, got %q", err.Error())
	}

	if got := stockOf(t, ctx, s, oil.ID); got != 10 {
		t.Errorf("oil stock = %d, want 10 (deduction must roll back)", got)
	}
	if got := stockOf(t, ctx, s, pads.ID); got != 1 {
		t.Errorf("pads stock = %d, want 1", got)
	}
	if n := countRows(t, ctx, s, "service_records"); n != 0 {
		t.Errorf("expected no service records, got %d", n)
	}
	if n := countRows(t, ctx, s, "invoices"); n != 0 {
		t.Errorf("expected no invoices, got %d", n)
	}
	var sales int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM inventory_movements WHERE movement_type = 'SALE'").Scan(&sales); err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if sales != 0 {
		t.Errorf("expected no SALE movements, got %d", sales)
	}
}

func TestInvoice_UnknownPart(t *testing.T) {
	s, ctx := setupTestDB(t)

	_, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA04GH0001", "Eve",
		core.PartRequest{ItemID: uuid.New(), Quantity: 1}))
	if !errors.Is(err, core.ErrPartNotFound) {
		t.Fatalf("expected PART_NOT_FOUND, got %v", err)
	}
	if !errors.Is(err, core.ErrNotFound) {
		t.Error("PART_NOT_FOUND must be of kind not found")
	}
}

func TestInvoice_NewCustomerNeedsDetails(t *testing.T) {
	s, ctx := setupTestDB(t)

	in := invoiceInput("KA05IJ0001", "")
	in.Customer.Mobile = ""
	_, err := s.invoices.CreateCompleteInvoice(ctx, in)
	if !errors.Is(err, core.ErrCustomerDetailsInvalid) {
		t.Fatalf("expected CUSTOMER_DETAILS_INVALID, got %v", err)
	}
	if !strings.Contains(err.Error(), "name") || !strings.Contains(err.Error(), "mobile") {
		t.Errorf("error should list missing fields, got %q", err.Error())
	}
}

func TestInvoice_PriceOverrideIsAudited(t *testing.T) {
	s, ctx := setupTestDB(t)
	oil := seedItem(t, ctx, s, "OIL-1L", "Engine Oil", "380", 4)

	override := decimal.NewFromInt(300)
	inv, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA06KL0001", "Frank",
		core.PartRequest{ItemID: oil.ID, Quantity: 1, UnitPrice: &override}))
	if err != nil {
		t.Fatalf("CreateCompleteInvoice failed: %v", err)
	}

	part := inv.Service.Parts[0]
	if !part.PriceOverridden {
		t.Error("expected override flag")
	}
	if !part.UnitPrice.Equal(override) || !part.CatalogUnitPrice.Equal(decimal.NewFromInt(380)) {
		t.Errorf("unit %s catalog %s, want 300 and 380", part.UnitPrice, part.CatalogUnitPrice)
	}
	if !inv.TotalAmount.Equal(decimal.NewFromInt(800)) {
		t.Errorf("total = %s, want 800", inv.TotalAmount)
	}

	item, err := s.inventory.GetItem(ctx, oil.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !item.Price.Equal(decimal.NewFromInt(380)) {
		t.Errorf("catalog price changed to %s", item.Price)
	}
}

func TestInvoice_ConcurrentOversell(t *testing.T) {
	s, ctx := setupTestDB(t)
	pads := seedItem(t, ctx, s, "BP-01", "Brake Pads", "450", 5)

	const attempts = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput(fmt.Sprintf("KA07MN%04d", i), "Rider",
				core.PartRequest{ItemID: pads.ID, Quantity: 1}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, core.ErrInsufficientStock):
			default:
				t.Errorf("attempt %d: unexpected error %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("expected exactly 5 successful invoices, got %d", succeeded)
	}
	if got := stockOf(t, ctx, s, pads.ID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

func TestInvoice_ConcurrentNumbering(t *testing.T) {
	s, ctx := setupTestDB(t)
	today := core.DayKey(time.Now(), time.UTC)

	const attempts = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput(fmt.Sprintf("KA08OP%04d", i), "Rider"))
			if err != nil {
				t.Errorf("attempt %d failed: %v", i, err)
				return
			}
			mu.Lock()
			numbers = append(numbers, inv.InvoiceNumber)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	sort.Strings(numbers)
	if len(numbers) != attempts {
		t.Fatalf("expected %d invoices, got %d", attempts, len(numbers))
	}
	for i, n := range numbers {
		if want := core.FormatInvoiceNumber(today, i+1); n != want {
			t.Errorf("numbers[%d] = %s, want %s", i, n, want)
		}
	}
}

func TestInvoice_NumberingContinuesFromExistingInvoices(t *testing.T) {
	s, ctx := setupTestDB(t)
	today := core.DayKey(time.Now(), time.UTC)

	first, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA09QR0001", "Gina"))
	if err != nil {
		t.Fatalf("first invoice failed: %v", err)
	}
	// Simulate invoices issued before the counter existed: bump an invoice
	// number past the counter and drop the counter row.
	if _, err := s.pool.Exec(ctx, `UPDATE invoices SET invoice_number = $1 WHERE id = $2`,
		core.FormatInvoiceNumber(today, 41), first.ID); err != nil {
		t.Fatalf("rewrite number: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM invoice_sequences`); err != nil {
		t.Fatalf("drop counter: %v", err)
	}

	next, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA09QR0002", "Hank"))
	if err != nil {
		t.Fatalf("next invoice failed: %v", err)
	}
	if want := core.FormatInvoiceNumber(today, 42); next.InvoiceNumber != want {
		t.Errorf("number = %s, want %s", next.InvoiceNumber, want)
	}
}

func TestInvoice_CollisionRetriesOnce(t *testing.T) {
	s, ctx := setupTestDB(t)
	today := core.DayKey(time.Now(), time.UTC)

	first, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA10ST0001", "Ivy"))
	if err != nil {
		t.Fatalf("first invoice failed: %v", err)
	}
	// Counter says 1 but number 002 is already taken, so the next allocation collides.
	if _, err := s.pool.Exec(ctx, `UPDATE invoices SET invoice_number = $1 WHERE id = $2`,
		core.FormatInvoiceNumber(today, 2), first.ID); err != nil {
		t.Fatalf("rewrite number: %v", err)
	}

	next, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA10ST0002", "Jack"))
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if want := core.FormatInvoiceNumber(today, 3); next.InvoiceNumber != want {
		t.Errorf("number = %s, want %s", next.InvoiceNumber, want)
	}
}

func TestInvoice_ForExistingService(t *testing.T) {
	s, ctx := setupTestDB(t)
	oil := seedItem(t, ctx, s, "OIL-1L", "Engine Oil", "380", 4)
	cust, _, err := s.customers.FindOrCreate(ctx, customerDetails("KA11UV0001", "Kim"))
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	rec, err := s.records.CreateService(ctx, core.ServiceInput{
		CustomerID: cust.ID,
		Visit:      core.ServiceVisit{Km: 3000, ServiceCost: decimal.NewFromInt(200), Description: "Oil change"},
		Parts:      []core.PartRequest{{ItemID: oil.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}
	if got := stockOf(t, ctx, s, oil.ID); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}

	inv, err := s.invoices.CreateInvoiceForService(ctx, rec.ID, decimal.NewFromInt(80))
	if err != nil {
		t.Fatalf("CreateInvoiceForService failed: %v", err)
	}
	if !inv.TotalAmount.Equal(decimal.NewFromInt(580)) || !inv.NetAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total %s net %s, want 580 and 500", inv.TotalAmount, inv.NetAmount)
	}

	_, err = s.invoices.CreateInvoiceForService(ctx, rec.ID, decimal.Zero)
	if !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected DUPLICATE for second invoice, got %v", err)
	}
}

func TestInvoice_GetListAndStatus(t *testing.T) {
	s, ctx := setupTestDB(t)

	inv, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA12WX0001", "Liam"))
	if err != nil {
		t.Fatalf("CreateCompleteInvoice failed: %v", err)
	}

	byNumber, err := s.invoices.GetInvoice(ctx, inv.InvoiceNumber)
	if err != nil {
		t.Fatalf("GetInvoice by number failed: %v", err)
	}
	byID, err := s.invoices.GetInvoice(ctx, inv.ID.String())
	if err != nil {
		t.Fatalf("GetInvoice by id failed: %v", err)
	}
	if byNumber.ID != byID.ID || byID.Customer == nil || byID.Service == nil {
		t.Errorf("expected the same populated invoice, got %+v / %+v", byNumber, byID)
	}

	if _, err := s.invoices.GetInvoice(ctx, "INV-19990101-001"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	if _, err := s.invoices.UpdateStatus(ctx, inv.InvoiceNumber, "cancelled"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}
	paid, err := s.invoices.UpdateStatus(ctx, inv.InvoiceNumber, core.InvoicePaid)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if paid.Status != core.InvoicePaid {
		t.Errorf("status = %s, want paid", paid.Status)
	}

	list, err := s.invoices.ListInvoices(ctx, core.InvoiceFilter{Status: core.InvoicePaid})
	if err != nil {
		t.Fatalf("ListInvoices failed: %v", err)
	}
	if len(list) != 1 || list[0].VehicleRegNo != "KA12WX0001" {
		t.Errorf("unexpected paid list: %+v", list)
	}
	pending, err := s.invoices.ListInvoices(ctx, core.InvoiceFilter{Status: core.InvoicePending})
	if err != nil {
		t.Fatalf("ListInvoices failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending invoices, got %d", len(pending))
	}

	history, err := s.invoices.ListCustomerInvoices(ctx, inv.CustomerID)
	if err != nil {
		t.Fatalf("ListCustomerInvoices failed: %v", err)
	}
	if len(history) != 1 || history[0].ServiceKm != 12000 {
		t.Errorf("unexpected history: %+v", history)
	}

	revenue, err := s.reporting.RevenueByPeriod(ctx, core.PeriodYear)
	if err != nil {
		t.Fatalf("RevenueByPeriod failed: %v", err)
	}
	if len(revenue) != 1 || revenue[0].InvoiceCount != 1 || !revenue[0].TotalRevenue.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected revenue: %+v", revenue)
	}
	freq, err := s.reporting.ServiceFrequency(ctx, 0)
	if err != nil {
		t.Fatalf("ServiceFrequency failed: %v", err)
	}
	if len(freq) != 1 || freq[0].Count != 1 {
		t.Errorf("unexpected frequency: %+v", freq)
	}
}

func TestInvoice_StoredRowsReproduceTotals(t *testing.T) {
	s, ctx := setupTestDB(t)
	washer := seedItem(t, ctx, s, "WS-01", "Washer", "0.40", 10)
	pads := seedItem(t, ctx, s, "BP-01", "Brake Pads", "449.99", 2)

	override := decimal.RequireFromString("0.33")
	in := invoiceInput("KA13YZ0001", "Lena",
		core.PartRequest{ItemID: washer.ID, Quantity: 3, UnitPrice: &override},
		core.PartRequest{ItemID: pads.ID, Quantity: 2},
	)
	in.Visit.ServiceCost = decimal.RequireFromString("10.05")
	in.Discount = decimal.RequireFromString("0.05")

	inv, err := s.invoices.CreateCompleteInvoice(ctx, in)
	if err != nil {
		t.Fatalf("CreateCompleteInvoice failed: %v", err)
	}

	var cost, total, discount, net, lines decimal.Decimal
	if err := s.pool.QueryRow(ctx, `
		SELECT r.service_cost, i.total_amount, i.discount, i.net_amount,
		       COALESCE((SELECT SUM(p.quantity * p.unit_price) FROM service_parts p WHERE p.service_id = r.id), 0)
		FROM invoices i JOIN service_records r ON r.id = i.service_id
		WHERE i.id = $1
	`, inv.ID).Scan(&cost, &total, &discount, &net, &lines); err != nil {
		t.Fatalf("read stored invoice: %v", err)
	}
	if !total.Equal(cost.Add(lines)) {
		t.Errorf("stored total %s != service cost %s + parts %s", total, cost, lines)
	}
	if !net.Equal(total.Sub(discount)) {
		t.Errorf("stored net %s != total %s - discount %s", net, total, discount)
	}
	if !total.Equal(inv.TotalAmount) {
		t.Errorf("returned total %s differs from stored %s", inv.TotalAmount, total)
	}
	if want := decimal.RequireFromString("911.02"); !total.Equal(want) {
		t.Errorf("total = %s, want %s", total, want)
	}
}

func TestInvoice_SubCentOverrideRejectedWithoutSideEffects(t *testing.T) {
	s, ctx := setupTestDB(t)
	washer := seedItem(t, ctx, s, "WS-01", "Washer", "0.40", 10)

	override := decimal.RequireFromString("0.333")
	_, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA13YZ0002", "Milo",
		core.PartRequest{ItemID: washer.ID, Quantity: 3, UnitPrice: &override}))
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if got := stockOf(t, ctx, s, washer.ID); got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
	if n := countRows(t, ctx, s, "invoices"); n != 0 {
		t.Errorf("invoices = %d, want 0", n)
	}
}

// takenNumberAllocator keeps handing out a number that is already issued.
type takenNumberAllocator struct {
	core.InvoiceNumberAllocator
	number  string
	resyncs int
}

func (a *takenNumberAllocator) AllocateTx(context.Context, pgx.Tx, string) (string, error) {
	return a.number, nil
}

func (a *takenNumberAllocator) ResyncTx(context.Context, pgx.Tx, string) (string, error) {
	a.resyncs++
	return a.number, nil
}

func TestInvoice_SecondCollisionIsAllocationConflict(t *testing.T) {
	s, ctx := setupTestDB(t)
	plug := seedItem(t, ctx, s, "SP-01", "Spark Plug", "120", 5)

	first, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput("KA14AA0001", "Nora"))
	if err != nil {
		t.Fatalf("first invoice failed: %v", err)
	}

	alloc := &takenNumberAllocator{InvoiceNumberAllocator: s.numbers, number: first.InvoiceNumber}
	invoices := core.NewInvoiceService(s.pool, s.customers, s.inventory, s.records, alloc, nil)

	_, err = invoices.CreateCompleteInvoice(ctx, invoiceInput("KA14AA0002", "Omar",
		core.PartRequest{ItemID: plug.ID, Quantity: 2}))
	if !errors.Is(err, core.ErrAllocationConflict) {
		t.Fatalf("expected ALLOCATION_CONFLICT, got %v", err)
	}
	if alloc.resyncs != 1 {
		t.Errorf("resyncs = %d, want exactly one retry", alloc.resyncs)
	}

	if got := stockOf(t, ctx, s, plug.ID); got != 5 {
		t.Errorf("stock = %d, want 5 after rollback", got)
	}
	for table, want := range map[string]int{"invoices": 1, "service_records": 1, "customers": 1, "service_parts": 0} {
		if n := countRows(t, ctx, s, table); n != want {
			t.Errorf("%s = %d, want %d after rollback", table, n, want)
		}
	}
}

func TestInvoice_IssuedAtFollowsNumberOrder(t *testing.T) {
	s, ctx := setupTestDB(t)

	const attempts = 8
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.invoices.CreateCompleteInvoice(ctx, invoiceInput(fmt.Sprintf("KA15BB%04d", i), "Rider")); err != nil {
				t.Errorf("attempt %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	rows, err := s.pool.Query(ctx, `SELECT invoice_number FROM invoices ORDER BY issued_at, invoice_number`)
	if err != nil {
		t.Fatalf("query invoices: %v", err)
	}
	defer rows.Close()
	var byTime []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("scan: %v", err)
		}
		byTime = append(byTime, n)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}

	byNumber := append([]string(nil), byTime...)
	sort.Strings(byNumber)
	if strings.Join(byTime, ",") != strings.Join(byNumber, ",") {
		t.Errorf("issued_at order %v disagrees with number order %v", byTime, byNumber)
	}
}
