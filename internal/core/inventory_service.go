package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InventoryService owns spare-part stock: the catalog, every quantity change,
// and the audit trail of movements behind them.
type InventoryService interface {
	// Standalone operations (manage their own transactions).
	CreateItem(ctx context.Context, in NewInventoryItem) (*InventoryItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	ListItems(ctx context.Context, filter InventoryFilter) ([]InventoryItem, error)
	// UpdateItem applies a patch. The SKU is immutable; quantity edits are
	// recorded as ADJUSTMENT movements.
	UpdateItem(ctx context.Context, id uuid.UUID, patch InventoryItemPatch) (*InventoryItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	Restock(ctx context.Context, id uuid.UUID, quantity int) (*InventoryItem, error)
	// LowStock lists items whose quantity is at or below threshold.
	LowStock(ctx context.Context, threshold int) ([]InventoryItem, error)
	Movements(ctx context.Context, id uuid.UUID) ([]StockMovement, error)

	// ConsumeTx locks the item row, checks live stock, deducts quantity and
	// records a SALE movement, all inside the caller's transaction. The unit
	// price charged is overridePrice when non-nil, else the current catalog
	// price; the catalog price itself is never changed.
	ConsumeTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, quantity int, overridePrice *decimal.Decimal) (*ConsumedPart, error)
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

const inventoryColumns = `id, sku, name, price, quantity, category, created_at, updated_at`

func scanInventoryItem(row pgx.Row) (*InventoryItem, error) {
	var it InventoryItem
	if err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Price, &it.Quantity, &it.Category, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

func collectInventoryItems(rows pgx.Rows) ([]InventoryItem, error) {
	defer rows.Close()
	items := []InventoryItem{}
	for rows.Next() {
		it, err := scanInventoryItem(rows)
		if err != nil {
			return nil, storageError("failed to scan inventory item", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read inventory items", err)
	}
	return items, nil
}

func validateNewItem(in NewInventoryItem) error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.SKU) == "" {
		missing = append(missing, "sku")
	}
	if in.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return validationError("missing required fields: %s", strings.Join(missing, ", "))
	}
	if !in.Category.Valid() {
		return validationError("invalid category %q: must be spare-part or consumable", in.Category)
	}
	if err := checkMoney("price", in.Price); err != nil {
		return err
	}
	return checkCount("quantity", in.Quantity, 0)
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) CreateItem(ctx context.Context, in NewInventoryItem) (*InventoryItem, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateNewItem(in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	it, err := scanInventoryItem(tx.QueryRow(ctx, `
		INSERT INTO inventory_items (sku, name, price, quantity, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+inventoryColumns,
		in.SKU, in.Name, in.Price, in.Quantity, in.Category))
	if err != nil {
		if isUniqueViolation(err, "inventory_items_sku_key") {
			return nil, &Error{Kind: ErrConflict, Code: CodeDuplicate,
				Message: fmt.Sprintf("Item with SKU %s already exists", in.SKU), Err: err}
		}
		return nil, storageError("failed to create inventory item", err)
	}

	if it.Quantity > 0 {
		if err := recordMovement(ctx, tx, it.ID, MovementRestock, it.Quantity, it.Price, "opening stock"); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("failed to commit inventory item", err)
	}
	return it, nil
}

func (s *inventoryService) GetItem(ctx context.Context, id uuid.UUID) (*InventoryItem, error) {
	it, err := scanInventoryItem(s.pool.QueryRow(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("Inventory item not found")
		}
		return nil, storageError("failed to fetch inventory item", err)
	}
	return it, nil
}

func (s *inventoryService) ListItems(ctx context.Context, filter InventoryFilter) ([]InventoryItem, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		if !filter.Category.Valid() {
			return nil, validationError("invalid category %q: must be spare-part or consumable", filter.Category)
		}
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := arg("%" + q + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR sku ILIKE %s)", p, p))
	}
	if filter.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*filter.MaxPrice))
	}
	if filter.InStock {
		conds = append(conds, "quantity > 0")
	}

	query := `SELECT ` + inventoryColumns + ` FROM inventory_items`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name, sku"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("failed to query inventory items", err)
	}
	return collectInventoryItems(rows)
}

func (s *inventoryService) UpdateItem(ctx context.Context, id uuid.UUID, patch InventoryItemPatch) (*InventoryItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanInventoryItem(tx.QueryRow(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("Inventory item not found")
		}
		return nil, storageError("failed to lock inventory item", err)
	}

	if patch.SKU != nil && strings.TrimSpace(*patch.SKU) != current.SKU {
		return nil, validationError("SKU cannot be changed")
	}

	next := NewInventoryItem{
		SKU:      current.SKU,
		Name:     current.Name,
		Price:    current.Price,
		Quantity: current.Quantity,
		Category: current.Category,
	}
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Price != nil {
		next.Price = *patch.Price
	}
	if patch.Quantity != nil {
		next.Quantity = *patch.Quantity
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}
	if err := validateNewItem(next); err != nil {
		return nil, err
	}

	updated, err := scanInventoryItem(tx.QueryRow(ctx, `
		UPDATE inventory_items
		SET name = $2, price = $3, quantity = $4, category = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+inventoryColumns,
		id, next.Name, next.Price, next.Quantity, next.Category))
	if err != nil {
		return nil, storageError("failed to update inventory item", err)
	}

	if delta := updated.Quantity - current.Quantity; delta != 0 {
		if err := recordMovement(ctx, tx, id, MovementAdjustment, delta, updated.Price, "manual edit"); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("failed to commit inventory update", err)
	}
	return updated, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return storageError("failed to delete inventory item", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundError("Inventory item not found")
	}
	return nil
}

func (s *inventoryService) Restock(ctx context.Context, id uuid.UUID, quantity int) (*InventoryItem, error) {
	if err := checkCount("restock quantity", quantity, 1); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	it, err := scanInventoryItem(tx.QueryRow(ctx, `
		UPDATE inventory_items
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+inventoryColumns,
		id, quantity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("Inventory item not found")
		}
		return nil, storageError("failed to restock inventory item", err)
	}

	if err := recordMovement(ctx, tx, id, MovementRestock, quantity, it.Price, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("failed to commit restock", err)
	}
	return it, nil
}

func (s *inventoryService) LowStock(ctx context.Context, threshold int) ([]InventoryItem, error) {
	if threshold < 0 {
		return nil, validationError("threshold cannot be negative")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory_items
		WHERE quantity <= $1
		ORDER BY quantity, name
	`, threshold)
	if err != nil {
		return nil, storageError("failed to query low stock items", err)
	}
	return collectInventoryItems(rows)
}

func (s *inventoryService) Movements(ctx context.Context, id uuid.UUID) ([]StockMovement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, movement_type, quantity, unit_price, notes, created_at
		FROM inventory_movements
		WHERE item_id = $1
		ORDER BY created_at DESC, id DESC
	`, id)
	if err != nil {
		return nil, storageError("failed to query stock movements", err)
	}
	defer rows.Close()

	movements := []StockMovement{}
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Type, &m.Quantity, &m.UnitPrice, &m.Notes, &m.CreatedAt); err != nil {
			return nil, storageError("failed to scan stock movement", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read stock movements", err)
	}
	return movements, nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *inventoryService) ConsumeTx(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, quantity int, overridePrice *decimal.Decimal) (*ConsumedPart, error) {
	if err := checkCount(fmt.Sprintf("quantity for item %s", itemID), quantity, 1); err != nil {
		return nil, err
	}
	if overridePrice != nil {
		if err := checkMoney(fmt.Sprintf("unit price for item %s", itemID), *overridePrice); err != nil {
			return nil, err
		}
	}

	var (
		sku, name string
		price     decimal.Decimal
		available int
	)
	// The row lock is held until the caller's transaction ends, so concurrent
	// consumers of the same item serialise here and each sees the live quantity.
	err := tx.QueryRow(ctx, `
		SELECT sku, name, price, quantity
		FROM inventory_items
		WHERE id = $1
		FOR UPDATE
	`, itemID).Scan(&sku, &name, &price, &available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &Error{Kind: ErrNotFound, Code: CodePartNotFound, Message: fmt.Sprintf("Item %s not found", itemID)}
		}
		return nil, storageError("failed to lock inventory item", err)
	}

	if available < quantity {
		return nil, &Error{Kind: ErrConflict, Code: CodeInsufficientStock,
			Message: fmt.Sprintf("Insufficient stock for %s: available %d, requested %d", name, available, quantity)}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_items
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1
	`, itemID, quantity); err != nil {
		return nil, storageError("failed to deduct stock", err)
	}

	part := &ConsumedPart{
		ItemID:           itemID,
		SKU:              sku,
		Name:             name,
		Quantity:         quantity,
		UnitPrice:        price,
		CatalogUnitPrice: price,
	}
	if overridePrice != nil {
		part.UnitPrice = *overridePrice
		part.PriceOverridden = true
	}

	if err := recordMovement(ctx, tx, itemID, MovementSale, -quantity, part.UnitPrice, ""); err != nil {
		return nil, err
	}
	return part, nil
}

func recordMovement(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, kind MovementType, quantity int, unitPrice decimal.Decimal, notes string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_movements (item_id, movement_type, quantity, unit_price, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, itemID, kind, quantity, unitPrice, notes)
	if err != nil {
		return storageError("failed to record stock movement", err)
	}
	return nil
}
