package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const invoiceNumberPrefix = "INV"

// DayKey renders t's calendar day in loc as YYYYMMDD.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("20060102")
}

// InvoicePrefix is the shared prefix of every invoice number issued on dayKey.
func InvoicePrefix(dayKey string) string {
	return invoiceNumberPrefix + "-" + dayKey + "-"
}

// FormatInvoiceNumber renders INV-<dayKey>-<n>, zero-padding n to three digits.
// Suffixes from 1000 upward simply render wider.
func FormatInvoiceNumber(dayKey string, n int) string {
	return fmt.Sprintf("%s%03d", InvoicePrefix(dayKey), n)
}

// ParseInvoiceNumber splits an invoice number into its day key and suffix.
func ParseInvoiceNumber(number string) (dayKey string, n int, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] != invoiceNumberPrefix {
		return "", 0, fmt.Errorf("malformed invoice number %q", number)
	}
	if _, err := time.Parse("20060102", parts[1]); err != nil {
		return "", 0, fmt.Errorf("malformed invoice number %q: bad date", number)
	}
	if len(parts[2]) < 3 {
		return "", 0, fmt.Errorf("malformed invoice number %q: suffix too short", number)
	}
	n, err = strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("malformed invoice number %q: bad suffix", number)
	}
	return parts[1], n, nil
}

// InvoiceNumberAllocator hands out INV-YYYYMMDD-NNN numbers from a per-day
// counter row. The counter is seeded from the highest suffix already issued
// that day, so it picks up invoices written before the counter existed.
type InvoiceNumberAllocator interface {
	// DayKey is the business day of t.
	DayKey(t time.Time) string
	// AllocateTx increments the day's counter inside tx and returns the new number.
	// The counter row stays locked until tx ends, so concurrent callers queue.
	AllocateTx(ctx context.Context, tx pgx.Tx, dayKey string) (string, error)
	// ResyncTx moves the counter past both its own value and the highest issued
	// suffix. Used after a number collision.
	ResyncTx(ctx context.Context, tx pgx.Tx, dayKey string) (string, error)
	// Preview returns the number the next allocation would most likely get. It reserves nothing.
	Preview(ctx context.Context, dayKey string) (string, error)
}

type invoiceNumberAllocator struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

func NewInvoiceNumberAllocator(pool *pgxpool.Pool, loc *time.Location) InvoiceNumberAllocator {
	if loc == nil {
		loc = time.UTC
	}
	return &invoiceNumberAllocator{pool: pool, loc: loc}
}

func (a *invoiceNumberAllocator) DayKey(t time.Time) string {
	return DayKey(t, a.loc)
}

// issuedMaxSQL selects the highest numeric suffix issued under prefix $2 (a
// LIKE pattern), where $3 is the 1-based offset of the suffix.
const issuedMaxSQL = `
	SELECT COALESCE(MAX(CAST(substring(invoice_number FROM $3::int) AS INTEGER)), 0)
	FROM invoices
	WHERE invoice_number LIKE $2
	  AND substring(invoice_number FROM $3::int) ~ '^[0-9]+$'`

func (a *invoiceNumberAllocator) AllocateTx(ctx context.Context, tx pgx.Tx, dayKey string) (string, error) {
	prefix := InvoicePrefix(dayKey)
	var n int
	err := tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (day_key, last_number)
		SELECT $1, issued.max_suffix + 1
		FROM (`+issuedMaxSQL+`) AS issued(max_suffix)
		ON CONFLICT (day_key) DO UPDATE
		SET last_number = invoice_sequences.last_number + 1,
		    updated_at = NOW()
		RETURNING last_number
	`, dayKey, prefix+"%", len(prefix)+1).Scan(&n)
	if err != nil {
		return "", storageError("failed to allocate invoice number", err)
	}
	return FormatInvoiceNumber(dayKey, n), nil
}

func (a *invoiceNumberAllocator) ResyncTx(ctx context.Context, tx pgx.Tx, dayKey string) (string, error) {
	prefix := InvoicePrefix(dayKey)
	var n int
	err := tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (day_key, last_number)
		SELECT $1, issued.max_suffix + 1
		FROM (`+issuedMaxSQL+`) AS issued(max_suffix)
		ON CONFLICT (day_key) DO UPDATE
		SET last_number = GREATEST(invoice_sequences.last_number, EXCLUDED.last_number - 1) + 1,
		    updated_at = NOW()
		RETURNING last_number
	`, dayKey, prefix+"%", len(prefix)+1).Scan(&n)
	if err != nil {
		return "", storageError("failed to resync invoice number", err)
	}
	return FormatInvoiceNumber(dayKey, n), nil
}

func (a *invoiceNumberAllocator) Preview(ctx context.Context, dayKey string) (string, error) {
	prefix := InvoicePrefix(dayKey)
	var n int
	err := a.pool.QueryRow(ctx, `
		SELECT GREATEST(
			COALESCE((SELECT last_number FROM invoice_sequences WHERE day_key = $1), 0),
			(`+issuedMaxSQL+`)
		) + 1
	`, dayKey, prefix+"%", len(prefix)+1).Scan(&n)
	if err != nil {
		return "", storageError("failed to preview invoice number", err)
	}
	return FormatInvoiceNumber(dayKey, n), nil
}
