package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerService is the directory of vehicle owners. The registration number
// is the natural key: one vehicle, one customer record.
type CustomerService interface {
	// FindOrCreateTx returns the customer registered to d.VehicleRegNo, creating
	// it from d when none exists. An existing profile is never modified.
	// created reports whether a new row was inserted.
	FindOrCreateTx(ctx context.Context, tx pgx.Tx, d CustomerDetails) (c *Customer, created bool, err error)
	FindOrCreate(ctx context.Context, d CustomerDetails) (*Customer, bool, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	// ListCustomers matches search case-insensitively against name, mobile and
	// registration number. Newest first.
	ListCustomers(ctx context.Context, search string) ([]Customer, error)
	// UpdateCustomer applies a patch. The registration number cannot change.
	UpdateCustomer(ctx context.Context, id uuid.UUID, patch CustomerPatch) (*Customer, error)
}

type customerService struct {
	pool *pgxpool.Pool
}

func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

// NormalizeRegNo is the canonical form registration numbers are stored and matched in.
func NormalizeRegNo(regNo string) string {
	return strings.ToUpper(strings.TrimSpace(regNo))
}

const customerColumns = `id, name, mobile, address, vehicle_reg_no, vehicle_model, engine_no, frame_no, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Mobile, &c.Address, &c.VehicleRegNo,
		&c.VehicleModel, &c.EngineNo, &c.FrameNo, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func loadCustomer(ctx context.Context, q pgxQuerier, id uuid.UUID) (*Customer, error) {
	c, err := scanCustomer(q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("Customer not found")
		}
		return nil, storageError("failed to fetch customer", err)
	}
	return c, nil
}

// missingCustomerFields lists the profile fields a new customer needs but d lacks.
func missingCustomerFields(d CustomerDetails) []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("name", d.Name)
	check("mobile", d.Mobile)
	check("address", d.Address)
	check("vehicleModel", d.VehicleModel)
	check("engineNo", d.EngineNo)
	check("frameNo", d.FrameNo)
	return missing
}

func (s *customerService) FindOrCreateTx(ctx context.Context, tx pgx.Tx, d CustomerDetails) (*Customer, bool, error) {
	regNo := NormalizeRegNo(d.VehicleRegNo)
	if regNo == "" {
		return nil, false, customerDetailsError("vehicleRegNo is required")
	}

	byRegNo := `SELECT ` + customerColumns + ` FROM customers WHERE vehicle_reg_no = $1`

	c, err := scanCustomer(tx.QueryRow(ctx, byRegNo, regNo))
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, storageError("failed to look up customer", err)
	}

	if missing := missingCustomerFields(d); len(missing) > 0 {
		return nil, false, customerDetailsError("missing required customer fields for new vehicle %s: %s",
			regNo, strings.Join(missing, ", "))
	}

	// DO NOTHING leaves a concurrently inserted profile untouched; the follow-up
	// SELECT runs on a fresh snapshot and sees the winner's row.
	c, err = scanCustomer(tx.QueryRow(ctx, `
		INSERT INTO customers (name, mobile, address, vehicle_reg_no, vehicle_model, engine_no, frame_no)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (vehicle_reg_no) DO NOTHING
		RETURNING `+customerColumns,
		strings.TrimSpace(d.Name), strings.TrimSpace(d.Mobile), strings.TrimSpace(d.Address), regNo,
		strings.TrimSpace(d.VehicleModel), strings.TrimSpace(d.EngineNo), strings.TrimSpace(d.FrameNo)))
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, storageError("failed to create customer", err)
	}

	c, err = scanCustomer(tx.QueryRow(ctx, byRegNo, regNo))
	if err != nil {
		return nil, false, storageError("failed to re-read customer", err)
	}
	return c, false, nil
}

func (s *customerService) FindOrCreate(ctx context.Context, d CustomerDetails) (*Customer, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, storageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	c, created, err := s.FindOrCreateTx(ctx, tx, d)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, storageError("failed to commit customer", err)
	}
	return c, created, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return loadCustomer(ctx, s.pool, id)
}

func (s *customerService) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if q := strings.TrimSpace(search); q != "" {
		query += ` WHERE name ILIKE $1 OR mobile ILIKE $1 OR vehicle_reg_no ILIKE $1`
		args = append(args, "%"+q+"%")
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("failed to query customers", err)
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, storageError("failed to scan customer", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read customers", err)
	}
	return customers, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id uuid.UUID, patch CustomerPatch) (*Customer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanCustomer(tx.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("Customer not found")
		}
		return nil, storageError("failed to lock customer", err)
	}

	if patch.VehicleRegNo != nil && NormalizeRegNo(*patch.VehicleRegNo) != current.VehicleRegNo {
		return nil, validationError("vehicle registration number cannot be changed")
	}

	next := CustomerDetails{
		Name:         current.Name,
		Mobile:       current.Mobile,
		Address:      current.Address,
		VehicleRegNo: current.VehicleRegNo,
		VehicleModel: current.VehicleModel,
		EngineNo:     current.EngineNo,
		FrameNo:      current.FrameNo,
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	apply(&next.Name, patch.Name)
	apply(&next.Mobile, patch.Mobile)
	apply(&next.Address, patch.Address)
	apply(&next.VehicleModel, patch.VehicleModel)
	apply(&next.EngineNo, patch.EngineNo)
	apply(&next.FrameNo, patch.FrameNo)
	if missing := missingCustomerFields(next); len(missing) > 0 {
		return nil, customerDetailsError("customer fields cannot be blank: %s", strings.Join(missing, ", "))
	}

	updated, err := scanCustomer(tx.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, mobile = $3, address = $4, vehicle_model = $5, engine_no = $6, frame_no = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+customerColumns,
		id, next.Name, next.Mobile, next.Address, next.VehicleModel, next.EngineNo, next.FrameNo))
	if err != nil {
		return nil, storageError("failed to update customer", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError(fmt.Sprintf("failed to commit customer %s", id), err)
	}
	return updated, nil
}
