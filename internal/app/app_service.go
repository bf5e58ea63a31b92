package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"service-center/internal/core"
	"service-center/internal/report"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options carries the configuration the application layer needs.
type Options struct {
	Location          *time.Location
	AdminUsername     string
	AdminPasswordHash string
	LowStockThreshold int
}

type appService struct {
	pool              *pgxpool.Pool
	customerService   core.CustomerService
	inventoryService  core.InventoryService
	recordService     core.ServiceRecordService
	invoiceService    core.InvoiceService
	reportingService  core.ReportingService
	loc               *time.Location
	adminUsername     string
	adminPasswordHash string
	lowStockThreshold int
	now               func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	customerService core.CustomerService,
	inventoryService core.InventoryService,
	recordService core.ServiceRecordService,
	invoiceService core.InvoiceService,
	reportingService core.ReportingService,
	opts Options,
) ApplicationService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &appService{
		pool:              pool,
		customerService:   customerService,
		inventoryService:  inventoryService,
		recordService:     recordService,
		invoiceService:    invoiceService,
		reportingService:  reportingService,
		loc:               opts.Location,
		adminUsername:     opts.AdminUsername,
		adminPasswordHash: opts.AdminPasswordHash,
		lowStockThreshold: opts.LowStockThreshold,
		now:               time.Now,
	}
}

// parseID turns a path or body id into a UUID, reporting what kind of id was malformed.
func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, &core.Error{Kind: core.ErrValidation, Code: core.CodeValidation,
			Message: fmt.Sprintf("invalid %s id %q", kind, raw), Err: err}
	}
	return id, nil
}

func toPartRequests(parts []SparePartRequest) ([]core.PartRequest, error) {
	out := make([]core.PartRequest, 0, len(parts))
	for _, p := range parts {
		id, err := parseID("item", p.Item)
		if err != nil {
			return nil, err
		}
		out = append(out, core.PartRequest{ItemID: id, Quantity: p.Quantity, UnitPrice: p.UnitPrice})
	}
	return out, nil
}

// parseDay accepts YYYY-MM-DD (start of that day in the business time zone)
// or an RFC 3339 timestamp.
func (s *appService) parseDay(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, s.loc); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	return nil, &core.Error{Kind: core.ErrValidation, Code: core.CodeValidation,
		Message: fmt.Sprintf("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", field)}
}

func (s *appService) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ── Invoices ──────────────────────────────────────────────────────────────────

func (s *appService) CreateCompleteInvoice(ctx context.Context, req CompleteInvoiceRequest) (*core.Invoice, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	parts, err := toPartRequests(req.ServiceDetails.SparePartsUsed)
	if err != nil {
		return nil, err
	}

	c := req.CustomerDetails
	return s.invoiceService.CreateCompleteInvoice(ctx, core.CompleteInvoiceInput{
		Customer: core.CustomerDetails{
			Name:         c.Name,
			Mobile:       c.Mobile,
			Address:      c.Address,
			VehicleRegNo: c.VehicleRegNo,
			VehicleModel: c.VehicleModel,
			EngineNo:     c.EngineNo,
			FrameNo:      c.FrameNo,
		},
		Visit: core.ServiceVisit{
			Km:          req.ServiceDetails.Km,
			ServiceCost: req.ServiceDetails.ServiceCost,
			Description: req.ServiceDetails.Description,
		},
		Parts:    parts,
		Discount: req.Discount,
	})
}

func (s *appService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*core.Invoice, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	serviceID, err := parseID("service", req.ServiceID)
	if err != nil {
		return nil, err
	}
	return s.invoiceService.CreateInvoiceForService(ctx, serviceID, req.Discount)
}

func (s *appService) GetInvoice(ctx context.Context, ref string) (*core.Invoice, error) {
	return s.invoiceService.GetInvoice(ctx, ref)
}

func (s *appService) invoiceFilter(req InvoiceListRequest) (core.InvoiceFilter, error) {
	if err := validateRequest(req); err != nil {
		return core.InvoiceFilter{}, err
	}
	from, err := s.parseDay("fromDate", req.FromDate)
	if err != nil {
		return core.InvoiceFilter{}, err
	}
	to, err := s.parseDay("toDate", req.ToDate)
	if err != nil {
		return core.InvoiceFilter{}, err
	}
	// A bare date as the upper bound includes the whole day.
	if to != nil && !strings.Contains(req.ToDate, "T") {
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
	}
	return core.InvoiceFilter{Status: core.InvoiceStatus(req.Status), From: from, To: to}, nil
}

func (s *appService) ListInvoices(ctx context.Context, req InvoiceListRequest) (*InvoiceListResult, error) {
	filter, err := s.invoiceFilter(req)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoiceService.ListInvoices(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

func (s *appService) ListCustomerInvoices(ctx context.Context, customerID string) (*InvoiceListResult, error) {
	id, err := parseID("customer", customerID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoiceService.ListCustomerInvoices(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

func (s *appService) UpdateInvoiceStatus(ctx context.Context, ref string, req UpdateStatusRequest) (*core.Invoice, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.invoiceService.UpdateStatus(ctx, ref, core.InvoiceStatus(req.Status))
}

func (s *appService) PreviewInvoiceNumber(ctx context.Context) (string, error) {
	return s.invoiceService.PreviewNumber(ctx)
}

func (s *appService) ExportInvoices(ctx context.Context, req InvoiceListRequest) (*ExportResult, error) {
	list, err := s.ListInvoices(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := report.InvoicesXLSX(list.Invoices, s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice export: %w", err)
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("invoices-%s.xlsx", s.now().In(s.loc).Format("20060102-150405")),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
		Count:       len(list.Invoices),
	}, nil
}

// ── Customers ─────────────────────────────────────────────────────────────────

func (s *appService) FindOrCreateCustomer(ctx context.Context, req CustomerDetailsRequest) (*CustomerResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	c, created, err := s.customerService.FindOrCreate(ctx, core.CustomerDetails{
		Name:         req.Name,
		Mobile:       req.Mobile,
		Address:      req.Address,
		VehicleRegNo: req.VehicleRegNo,
		VehicleModel: req.VehicleModel,
		EngineNo:     req.EngineNo,
		FrameNo:      req.FrameNo,
	})
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: c, Created: created}, nil
}

func (s *appService) ListCustomers(ctx context.Context, search string) ([]core.Customer, error) {
	return s.customerService.ListCustomers(ctx, search)
}

func (s *appService) GetCustomer(ctx context.Context, id string) (*core.Customer, error) {
	customerID, err := parseID("customer", id)
	if err != nil {
		return nil, err
	}
	return s.customerService.GetCustomer(ctx, customerID)
}

func (s *appService) UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest) (*core.Customer, error) {
	customerID, err := parseID("customer", id)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.customerService.UpdateCustomer(ctx, customerID, core.CustomerPatch{
		Name:         req.Name,
		Mobile:       req.Mobile,
		Address:      req.Address,
		VehicleRegNo: req.VehicleRegNo,
		VehicleModel: req.VehicleModel,
		EngineNo:     req.EngineNo,
		FrameNo:      req.FrameNo,
	})
}

// ── Inventory ─────────────────────────────────────────────────────────────────

func (s *appService) ListInventory(ctx context.Context, req InventoryListRequest) ([]core.InventoryItem, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.inventoryService.ListItems(ctx, core.InventoryFilter{
		Category: core.InventoryCategory(req.Category),
		Search:   req.Search,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		InStock:  req.InStock,
	})
}

func (s *appService) GetInventoryItem(ctx context.Context, id string) (*core.InventoryItem, error) {
	itemID, err := parseID("item", id)
	if err != nil {
		return nil, err
	}
	return s.inventoryService.GetItem(ctx, itemID)
}

func (s *appService) CreateInventoryItem(ctx context.Context, req CreateItemRequest) (*core.InventoryItem, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.inventoryService.CreateItem(ctx, core.NewInventoryItem{
		SKU:      req.SKU,
		Name:     req.Name,
		Price:    req.Price,
		Quantity: req.Quantity,
		Category: core.InventoryCategory(req.Category),
	})
}

func (s *appService) UpdateInventoryItem(ctx context.Context, id string, req UpdateItemRequest) (*core.InventoryItem, error) {
	itemID, err := parseID("item", id)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	patch := core.InventoryItemPatch{
		SKU:      req.SKU,
		Name:     req.Name,
		Price:    req.Price,
		Quantity: req.Quantity,
	}
	if req.Category != nil {
		cat := core.InventoryCategory(*req.Category)
		patch.Category = &cat
	}
	return s.inventoryService.UpdateItem(ctx, itemID, patch)
}

func (s *appService) DeleteInventoryItem(ctx context.Context, id string) error {
	itemID, err := parseID("item", id)
	if err != nil {
		return err
	}
	return s.inventoryService.DeleteItem(ctx, itemID)
}

func (s *appService) RestockInventoryItem(ctx context.Context, id string, req RestockRequest) (*RestockResult, error) {
	itemID, err := parseID("item", id)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	item, err := s.inventoryService.Restock(ctx, itemID, req.Quantity)
	if err != nil {
		return nil, err
	}
	return &RestockResult{
		Message:  fmt.Sprintf("Restocked %d units of %s", req.Quantity, item.Name),
		Item:     item,
		Quantity: item.Quantity,
	}, nil
}

func (s *appService) GetStockMovements(ctx context.Context, id string) ([]core.StockMovement, error) {
	itemID, err := parseID("item", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.inventoryService.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.inventoryService.Movements(ctx, itemID)
}

func (s *appService) LowStock(ctx context.Context, threshold int) ([]core.InventoryItem, error) {
	if threshold < 0 {
		threshold = s.lowStockThreshold
	}
	return s.inventoryService.LowStock(ctx, threshold)
}

// ── Services ──────────────────────────────────────────────────────────────────

func (s *appService) CreateService(ctx context.Context, req CreateServiceRequest) (*core.ServiceRecord, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	customerID, err := parseID("customer", req.CustomerID)
	if err != nil {
		return nil, err
	}
	parts, err := toPartRequests(req.SparePartsUsed)
	if err != nil {
		return nil, err
	}
	visitDate, err := s.parseDay("date", req.Date)
	if err != nil {
		return nil, err
	}

	visit := core.ServiceVisit{Km: req.Km, ServiceCost: req.ServiceCost, Description: req.Description}
	if visitDate != nil {
		visit.VisitDate = *visitDate
	}
	return s.recordService.CreateService(ctx, core.ServiceInput{CustomerID: customerID, Visit: visit, Parts: parts})
}

func (s *appService) GetService(ctx context.Context, id string) (*core.ServiceRecord, error) {
	serviceID, err := parseID("service", id)
	if err != nil {
		return nil, err
	}
	return s.recordService.GetServiceRecord(ctx, serviceID)
}

// ── Analytics ─────────────────────────────────────────────────────────────────

func (s *appService) RevenueAnalytics(ctx context.Context, period string) ([]core.RevenueBucket, error) {
	return s.reportingService.RevenueByPeriod(ctx, core.RevenuePeriod(strings.ToLower(strings.TrimSpace(period))))
}

func (s *appService) ServiceFrequency(ctx context.Context, months int) ([]core.ServiceFrequencyBucket, error) {
	return s.reportingService.ServiceFrequency(ctx, months)
}
