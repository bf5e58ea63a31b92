package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ServiceRecordService stores service visits and the parts sold on them.
type ServiceRecordService interface {
	// CreateTx persists a visit and its already-deducted parts inside tx. Parts
	// keep the order given, numbered from 1.
	CreateTx(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, visit ServiceVisit, parts []ConsumedPart) (*ServiceRecord, error)
	// CreateService records a visit for an existing customer without billing
	// it: parts are deducted and the record stored in one transaction.
	CreateService(ctx context.Context, in ServiceInput) (*ServiceRecord, error)
	GetServiceRecord(ctx context.Context, id uuid.UUID) (*ServiceRecord, error)
}

type serviceRecordService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
}

func NewServiceRecordService(pool *pgxpool.Pool, inventory InventoryService) ServiceRecordService {
	return &serviceRecordService{pool: pool, inventory: inventory}
}

func validateVisit(v ServiceVisit) error {
	if err := checkCount("km", v.Km, 0); err != nil {
		return err
	}
	if err := checkMoney("service cost", v.ServiceCost); err != nil {
		return err
	}
	if strings.TrimSpace(v.Description) == "" {
		return validationError("service description is required")
	}
	return nil
}

func validateParts(parts []PartRequest) error {
	for i, p := range parts {
		if p.ItemID == uuid.Nil {
			return validationError("spare part %d: item is required", i+1)
		}
		if err := checkCount(fmt.Sprintf("spare part %d: quantity", i+1), p.Quantity, 1); err != nil {
			return err
		}
		if p.UnitPrice != nil {
			if err := checkMoney(fmt.Sprintf("spare part %d: unit price", i+1), *p.UnitPrice); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *serviceRecordService) CreateTx(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, visit ServiceVisit, parts []ConsumedPart) (*ServiceRecord, error) {
	var visitDate *time.Time
	if !visit.VisitDate.IsZero() {
		visitDate = &visit.VisitDate
	}

	rec := &ServiceRecord{
		CustomerID:  customerID,
		Km:          visit.Km,
		ServiceCost: visit.ServiceCost,
		Description: strings.TrimSpace(visit.Description),
		Parts:       make([]ServicePart, 0, len(parts)),
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO service_records (customer_id, visit_date, km, service_cost, description)
		VALUES ($1, COALESCE($2, NOW()), $3, $4, $5)
		RETURNING id, visit_date, created_at
	`, customerID, visitDate, rec.Km, rec.ServiceCost, rec.Description).Scan(&rec.ID, &rec.VisitDate, &rec.CreatedAt)
	if err != nil {
		return nil, storageError("failed to create service record", err)
	}

	if len(parts) == 0 {
		return rec, nil
	}

	batch := &pgx.Batch{}
	for i, p := range parts {
		itemID := p.ItemID
		batch.Queue(`
			INSERT INTO service_parts
				(service_id, line_number, item_id, item_sku, item_name, quantity,
				 unit_price, catalog_unit_price, price_overridden)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, rec.ID, i+1, itemID, p.SKU, p.Name, p.Quantity, p.UnitPrice, p.CatalogUnitPrice, p.PriceOverridden)
		rec.Parts = append(rec.Parts, ServicePart{
			LineNumber:       i + 1,
			ItemID:           &itemID,
			SKU:              p.SKU,
			Name:             p.Name,
			Quantity:         p.Quantity,
			UnitPrice:        p.UnitPrice,
			CatalogUnitPrice: p.CatalogUnitPrice,
			PriceOverridden:  p.PriceOverridden,
		})
	}

	br := tx.SendBatch(ctx, batch)
	for range parts {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return nil, storageError("failed to store service parts", err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, storageError("failed to store service parts", err)
	}
	return rec, nil
}

func (s *serviceRecordService) CreateService(ctx context.Context, in ServiceInput) (*ServiceRecord, error) {
	if in.CustomerID == uuid.Nil {
		return nil, validationError("customer is required")
	}
	if err := validateVisit(in.Visit); err != nil {
		return nil, err
	}
	if err := validateParts(in.Parts); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	customer, err := loadCustomer(ctx, tx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	consumed := make([]ConsumedPart, 0, len(in.Parts))
	for _, p := range in.Parts {
		cp, err := s.inventory.ConsumeTx(ctx, tx, p.ItemID, p.Quantity, p.UnitPrice)
		if err != nil {
			return nil, err
		}
		consumed = append(consumed, *cp)
	}

	rec, err := s.CreateTx(ctx, tx, customer.ID, in.Visit, consumed)
	if err != nil {
		return nil, err
	}
	populated, err := loadServiceRecord(ctx, tx, rec.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("failed to commit service record", err)
	}
	return populated, nil
}

func (s *serviceRecordService) GetServiceRecord(ctx context.Context, id uuid.UUID) (*ServiceRecord, error) {
	return loadServiceRecord(ctx, s.pool, id)
}

// loadServiceRecord reads a record with its customer and parts. Each part
// carries the current catalog entry when the item still exists.
func loadServiceRecord(ctx context.Context, q pgxQuerier, id uuid.UUID) (*ServiceRecord, error) {
	var rec ServiceRecord
	err := q.QueryRow(ctx, `
		SELECT id, customer_id, visit_date, km, service_cost, description, created_at
		FROM service_records
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.CustomerID, &rec.VisitDate, &rec.Km, &rec.ServiceCost, &rec.Description, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("Service not found")
		}
		return nil, storageError("failed to fetch service record", err)
	}

	customer, err := loadCustomer(ctx, q, rec.CustomerID)
	if err != nil {
		return nil, err
	}
	rec.Customer = customer

	rows, err := q.Query(ctx, `
		SELECT sp.line_number, sp.item_id, sp.item_sku, sp.item_name, sp.quantity,
		       sp.unit_price, sp.catalog_unit_price, sp.price_overridden,
		       ii.id, ii.sku, ii.name, ii.price, ii.quantity, ii.category, ii.created_at, ii.updated_at
		FROM service_parts sp
		LEFT JOIN inventory_items ii ON ii.id = sp.item_id
		WHERE sp.service_id = $1
		ORDER BY sp.line_number
	`, id)
	if err != nil {
		return nil, storageError("failed to query service parts", err)
	}
	defer rows.Close()

	rec.Parts = []ServicePart{}
	for rows.Next() {
		var (
			p                          ServicePart
			itemID                     *uuid.UUID
			itemSKU, itemName, itemCat *string
			itemPrice                  decimal.NullDecimal
			itemQty                    *int
			itemCreated, itemUpdated   *time.Time
		)
		if err := rows.Scan(&p.LineNumber, &p.ItemID, &p.SKU, &p.Name, &p.Quantity,
			&p.UnitPrice, &p.CatalogUnitPrice, &p.PriceOverridden,
			&itemID, &itemSKU, &itemName, &itemPrice, &itemQty, &itemCat,
			&itemCreated, &itemUpdated); err != nil {
			return nil, storageError("failed to scan service part", err)
		}
		if itemID != nil {
			p.Item = &InventoryItem{
				ID:        *itemID,
				SKU:       *itemSKU,
				Name:      *itemName,
				Price:     itemPrice.Decimal,
				Quantity:  *itemQty,
				Category:  InventoryCategory(*itemCat),
				CreatedAt: *itemCreated,
				UpdatedAt: *itemUpdated,
			}
		}
		rec.Parts = append(rec.Parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read service parts", err)
	}
	return &rec, nil
}
