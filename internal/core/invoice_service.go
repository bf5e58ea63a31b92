package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"service-center/internal/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceStage marks how far an invoice creation got before it committed or aborted.
type InvoiceStage string

const (
	StageStart            InvoiceStage = "START"
	StageCustomerResolved InvoiceStage = "CUSTOMER_RESOLVED"
	StagePartsDeducted    InvoiceStage = "PARTS_DEDUCTED"
	StageServiceCreated   InvoiceStage = "SERVICE_CREATED"
	StageNumberAllocated  InvoiceStage = "NUMBER_ALLOCATED"
	StageInvoiceCreated   InvoiceStage = "INVOICE_CREATED"
	StageCommitted        InvoiceStage = "COMMITTED"
	StageAborted          InvoiceStage = "ABORTED"
)

// InvoiceMetrics receives invoice outcome events.
type InvoiceMetrics interface {
	InvoiceCreated()
	InvoiceFailed(code string)
	InvoiceNumberRetried()
}

type nopInvoiceMetrics struct{}

func (nopInvoiceMetrics) InvoiceCreated()       {}
func (nopInvoiceMetrics) InvoiceFailed(string)  {}
func (nopInvoiceMetrics) InvoiceNumberRetried() {}

// InvoiceService bills service visits.
type InvoiceService interface {
	// CreateCompleteInvoice resolves the customer, deducts every part in order,
	// stores the service record and issues a numbered invoice in a single
	// transaction. Any failure leaves no trace apart from a customer that
	// already existed.
	CreateCompleteInvoice(ctx context.Context, in CompleteInvoiceInput) (*Invoice, error)
	// CreateInvoiceForService bills a visit recorded earlier. A service can be invoiced once.
	CreateInvoiceForService(ctx context.Context, serviceID uuid.UUID, discount decimal.Decimal) (*Invoice, error)
	// GetInvoice accepts an invoice id or an invoice number.
	GetInvoice(ctx context.Context, ref string) (*Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceSummary, error)
	ListCustomerInvoices(ctx context.Context, customerID uuid.UUID) ([]InvoiceSummary, error)
	UpdateStatus(ctx context.Context, ref string, status InvoiceStatus) (*Invoice, error)
	// PreviewNumber shows the number the next invoice would likely get today.
	PreviewNumber(ctx context.Context) (string, error)
}

type invoiceService struct {
	pool      *pgxpool.Pool
	customers CustomerService
	inventory InventoryService
	records   ServiceRecordService
	numbers   InvoiceNumberAllocator
	metrics   InvoiceMetrics
	now       func() time.Time
}

// NewInvoiceService wires the orchestrator. metrics may be nil.
func NewInvoiceService(pool *pgxpool.Pool, customers CustomerService, inventory InventoryService,
	records ServiceRecordService, numbers InvoiceNumberAllocator, metrics InvoiceMetrics) InvoiceService {
	if metrics == nil {
		metrics = nopInvoiceMetrics{}
	}
	return &invoiceService{
		pool:      pool,
		customers: customers,
		inventory: inventory,
		records:   records,
		numbers:   numbers,
		metrics:   metrics,
		now:       time.Now,
	}
}

// InvoiceTotals returns total = serviceCost + Σ parts and net = total − discount.
// A discount above the total is rejected so the net amount is never negative.
func InvoiceTotals(serviceCost decimal.Decimal, parts []ConsumedPart, discount decimal.Decimal) (total, net decimal.Decimal, err error) {
	total = serviceCost
	for _, p := range parts {
		total = total.Add(p.LineTotal())
	}
	if err := checkMoney("invoice total", total); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if err := checkMoney("discount", discount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if discount.GreaterThan(total) {
		return decimal.Zero, decimal.Zero, validationError("discount %s exceeds invoice total %s",
			discount.StringFixed(2), total.StringFixed(2))
	}
	return total, total.Sub(discount), nil
}

func validateCompleteInput(in CompleteInvoiceInput) error {
	if NormalizeRegNo(in.Customer.VehicleRegNo) == "" {
		return customerDetailsError("vehicleRegNo is required")
	}
	if err := validateVisit(in.Visit); err != nil {
		return err
	}
	if err := checkMoney("discount", in.Discount); err != nil {
		return err
	}
	return validateParts(in.Parts)
}

func (s *invoiceService) CreateCompleteInvoice(ctx context.Context, in CompleteInvoiceInput) (*Invoice, error) {
	log := logger.FromContext(ctx).With(zap.String("vehicle_reg_no", NormalizeRegNo(in.Customer.VehicleRegNo)))
	stage := StageStart

	fail := func(err error) (*Invoice, error) {
		code := ErrorCode(err)
		s.metrics.InvoiceFailed(code)
		log.Warn("invoice creation aborted",
			zap.String("stage", string(stage)),
			zap.String("next_stage", string(StageAborted)),
			zap.String("code", code),
			zap.Error(err))
		return nil, err
	}

	if err := validateCompleteInput(in); err != nil {
		return fail(err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fail(storageError("failed to begin transaction", err))
	}
	defer tx.Rollback(ctx)

	customer, created, err := s.customers.FindOrCreateTx(ctx, tx, in.Customer)
	if err != nil {
		return fail(err)
	}
	stage = StageCustomerResolved

	// Parts are deducted strictly in request order so the first short item is the one reported.
	consumed := make([]ConsumedPart, 0, len(in.Parts))
	for _, p := range in.Parts {
		cp, err := s.inventory.ConsumeTx(ctx, tx, p.ItemID, p.Quantity, p.UnitPrice)
		if err != nil {
			return fail(err)
		}
		consumed = append(consumed, *cp)
	}
	stage = StagePartsDeducted

	total, net, err := InvoiceTotals(in.Visit.ServiceCost, consumed, in.Discount)
	if err != nil {
		return fail(err)
	}

	record, err := s.records.CreateTx(ctx, tx, customer.ID, in.Visit, consumed)
	if err != nil {
		return fail(err)
	}
	stage = StageServiceCreated

	inv, err := s.issueTx(ctx, tx, &stage, customer.ID, record.ID, total, in.Discount, net)
	if err != nil {
		return fail(err)
	}

	inv.Customer = customer
	if inv.Service, err = loadServiceRecord(ctx, tx, record.ID); err != nil {
		return fail(err)
	}
	inv.Service.Customer = nil

	if err := tx.Commit(ctx); err != nil {
		return fail(storageError("failed to commit invoice", err))
	}
	stage = StageCommitted

	s.metrics.InvoiceCreated()
	log.Info("invoice created",
		zap.String("stage", string(stage)),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Bool("new_customer", created),
		zap.Int("parts", len(consumed)),
		zap.String("net_amount", net.StringFixed(2)))
	return inv, nil
}

func (s *invoiceService) CreateInvoiceForService(ctx context.Context, serviceID uuid.UUID, discount decimal.Decimal) (*Invoice, error) {
	log := logger.FromContext(ctx).With(zap.String("service_id", serviceID.String()))
	stage := StageStart

	fail := func(err error) (*Invoice, error) {
		code := ErrorCode(err)
		s.metrics.InvoiceFailed(code)
		log.Warn("invoice creation aborted", zap.String("stage", string(stage)), zap.String("code", code), zap.Error(err))
		return nil, err
	}

	if err := checkMoney("discount", discount); err != nil {
		return fail(err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fail(storageError("failed to begin transaction", err))
	}
	defer tx.Rollback(ctx)

	record, err := loadServiceRecord(ctx, tx, serviceID)
	if err != nil {
		return fail(err)
	}
	stage = StageServiceCreated

	total := record.ServiceCost.Add(record.PartsTotal())
	if err := checkMoney("invoice total", total); err != nil {
		return fail(err)
	}
	if discount.GreaterThan(total) {
		return fail(validationError("discount %s exceeds invoice total %s", discount.StringFixed(2), total.StringFixed(2)))
	}
	net := total.Sub(discount)

	inv, err := s.issueTx(ctx, tx, &stage, record.CustomerID, record.ID, total, discount, net)
	if err != nil {
		return fail(err)
	}
	inv.Customer = record.Customer
	record.Customer = nil
	inv.Service = record

	if err := tx.Commit(ctx); err != nil {
		return fail(storageError("failed to commit invoice", err))
	}
	stage = StageCommitted

	s.metrics.InvoiceCreated()
	log.Info("invoice created", zap.String("stage", string(stage)), zap.String("invoice_number", inv.InvoiceNumber))
	return inv, nil
}

// issueTx allocates the day's next number and inserts the invoice. The insert
// runs in a savepoint; a collision on the number rolls back only the
// savepoint, resyncs the counter and retries once.
//
// issued_at is read after the counter row is locked, so within a day it
// orders invoices the same way their suffixes do.
func (s *invoiceService) issueTx(ctx context.Context, tx pgx.Tx, stage *InvoiceStage,
	customerID, serviceID uuid.UUID, total, discount, net decimal.Decimal) (*Invoice, error) {
	requested := s.now()
	dayKey := s.numbers.DayKey(requested)

	number, err := s.numbers.AllocateTx(ctx, tx, dayKey)
	if err != nil {
		return nil, err
	}
	*stage = StageNumberAllocated

	issuedAt := s.now()
	if s.numbers.DayKey(issuedAt) != dayKey {
		// Waited past midnight; the number belongs to the earlier day.
		issuedAt = requested
	}

	insert := func(number string) (*Invoice, error) {
		return insertInvoiceSavepoint(ctx, tx, number, customerID, serviceID, total, discount, net, issuedAt)
	}

	inv, err := insert(number)
	if err != nil && isUniqueViolation(err, "invoices_invoice_number_key") {
		s.metrics.InvoiceNumberRetried()
		logger.FromContext(ctx).Warn("invoice number collision, resyncing counter",
			zap.String("invoice_number", number), zap.String("day", dayKey))

		if number, err = s.numbers.ResyncTx(ctx, tx, dayKey); err != nil {
			return nil, err
		}
		inv, err = insert(number)
		if err != nil && isUniqueViolation(err, "invoices_invoice_number_key") {
			return nil, &Error{Kind: ErrConflict, Code: CodeAllocationConflict,
				Message: fmt.Sprintf("could not allocate a unique invoice number for %s, please retry", dayKey), Err: err}
		}
	}
	if err != nil {
		if isUniqueViolation(err, "invoices_service_id_key") {
			return nil, &Error{Kind: ErrConflict, Code: CodeDuplicate,
				Message: "Invoice already exists for this service", Err: err}
		}
		return nil, storageError("failed to create invoice", err)
	}
	*stage = StageInvoiceCreated
	return inv, nil
}

func insertInvoiceSavepoint(ctx context.Context, tx pgx.Tx, number string, customerID, serviceID uuid.UUID,
	total, discount, net decimal.Decimal, issuedAt time.Time) (*Invoice, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sp.Rollback(ctx)

	inv, err := scanInvoice(sp.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, customer_id, service_id, total_amount, discount, net_amount, issued_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+invoiceColumns,
		number, customerID, serviceID, total, discount, net, issuedAt, InvoicePending))
	if err != nil {
		return nil, err
	}
	if err := sp.Commit(ctx); err != nil {
		return nil, err
	}
	return inv, nil
}

const invoiceColumns = `id, invoice_number, customer_id, service_id, total_amount, discount, net_amount, issued_at, status`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	if err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.ServiceID,
		&inv.TotalAmount, &inv.Discount, &inv.NetAmount, &inv.IssuedAt, &inv.Status); err != nil {
		return nil, err
	}
	return &inv, nil
}

// loadInvoice resolves ref as an id or an invoice number and populates the
// customer and the service with its parts.
func loadInvoice(ctx context.Context, q pgxQuerier, ref string) (*Invoice, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, validationError("invoice reference is required")
	}

	var row pgx.Row
	if id, err := uuid.Parse(ref); err == nil {
		row = q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	} else {
		row = q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = $1`, strings.ToUpper(ref))
	}
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("Invoice not found")
		}
		return nil, storageError("failed to fetch invoice", err)
	}

	if inv.Service, err = loadServiceRecord(ctx, q, inv.ServiceID); err != nil {
		return nil, err
	}
	inv.Customer = inv.Service.Customer
	inv.Service.Customer = nil
	return inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, ref string) (*Invoice, error) {
	return loadInvoice(ctx, s.pool, ref)
}

const invoiceSummarySelect = `
	SELECT i.id, i.invoice_number, i.customer_id, i.service_id, i.total_amount, i.discount,
	       i.net_amount, i.issued_at, i.status,
	       c.name, c.vehicle_reg_no,
	       sr.visit_date, sr.km, sr.service_cost, sr.description
	FROM invoices i
	JOIN customers c ON c.id = i.customer_id
	JOIN service_records sr ON sr.id = i.service_id`

func (s *invoiceService) querySummaries(ctx context.Context, where string, args []any) ([]InvoiceSummary, error) {
	query := invoiceSummarySelect
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY i.issued_at DESC, i.invoice_number DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("failed to query invoices", err)
	}
	defer rows.Close()

	out := []InvoiceSummary{}
	for rows.Next() {
		var v InvoiceSummary
		if err := rows.Scan(&v.ID, &v.InvoiceNumber, &v.CustomerID, &v.ServiceID, &v.TotalAmount, &v.Discount,
			&v.NetAmount, &v.IssuedAt, &v.Status, &v.CustomerName, &v.VehicleRegNo,
			&v.ServiceDate, &v.ServiceKm, &v.ServiceCost, &v.ServiceDescription); err != nil {
			return nil, storageError("failed to scan invoice", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read invoices", err)
	}
	return out, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceSummary, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, validationError("invalid status %q: must be pending or paid", filter.Status)
		}
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("i.status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("i.issued_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("i.issued_at <= $%d", len(args)))
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, validationError("toDate must not be before fromDate")
	}
	return s.querySummaries(ctx, strings.Join(conds, " AND "), args)
}

func (s *invoiceService) ListCustomerInvoices(ctx context.Context, customerID uuid.UUID) ([]InvoiceSummary, error) {
	return s.querySummaries(ctx, "i.customer_id = $1", []any{customerID})
}

func (s *invoiceService) UpdateStatus(ctx context.Context, ref string, status InvoiceStatus) (*Invoice, error) {
	if !status.Valid() {
		return nil, validationError("invalid status %q: must be pending or paid", status)
	}

	current, err := loadInvoice(ctx, s.pool, ref)
	if err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx, `UPDATE invoices SET status = $2 WHERE id = $1`, current.ID, status)
	if err != nil {
		return nil, storageError("failed to update invoice status", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFoundError("Invoice not found")
	}
	current.Status = status
	return current, nil
}

func (s *invoiceService) PreviewNumber(ctx context.Context) (string, error) {
	return s.numbers.Preview(ctx, s.numbers.DayKey(s.now()))
}
