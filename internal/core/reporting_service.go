package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Report types ──────────────────────────────────────────────────────────────

// RevenuePeriod is the bucket width of a revenue report.
type RevenuePeriod string

const (
	PeriodWeek  RevenuePeriod = "week"
	PeriodMonth RevenuePeriod = "month"
	PeriodYear  RevenuePeriod = "year"
)

// DefaultFrequencyMonths is the look-back window of ServiceFrequency when none is given.
const DefaultFrequencyMonths = 6

// ReportingService aggregates invoices and visits for the dashboard.
type ReportingService interface {
	// RevenueByPeriod sums net amounts of invoices issued in the current
	// calendar year, per week, month or year, oldest bucket first.
	RevenueByPeriod(ctx context.Context, period RevenuePeriod) ([]RevenueBucket, error)
	// ServiceFrequency counts visits per month over the last months months.
	ServiceFrequency(ctx context.Context, months int) ([]ServiceFrequencyBucket, error)
}

type reportingService struct {
	pool *pgxpool.Pool
	loc  *time.Location
	now  func() time.Time
}

// NewReportingService buckets by calendar in loc.
func NewReportingService(pool *pgxpool.Pool, loc *time.Location) ReportingService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportingService{pool: pool, loc: loc, now: time.Now}
}

func (s *reportingService) RevenueByPeriod(ctx context.Context, period RevenuePeriod) ([]RevenueBucket, error) {
	if period == "" {
		period = PeriodMonth
	}

	var monthExpr, weekExpr string
	switch period {
	case PeriodMonth:
		monthExpr, weekExpr = "EXTRACT(MONTH FROM local_ts)::int", "0"
	case PeriodWeek:
		monthExpr, weekExpr = "0", "EXTRACT(WEEK FROM local_ts)::int"
	case PeriodYear:
		monthExpr, weekExpr = "0", "0"
	default:
		return nil, validationError("invalid period %q: must be week, month or year", period)
	}

	now := s.now().In(s.loc)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, s.loc)

	query := fmt.Sprintf(`
		SELECT EXTRACT(YEAR FROM local_ts)::int AS y, %s AS m, %s AS w,
		       COALESCE(SUM(net_amount), 0), COUNT(*)
		FROM (
			SELECT issued_at AT TIME ZONE $2::text AS local_ts, net_amount
			FROM invoices
			WHERE issued_at >= $1
		) inv
		GROUP BY y, m, w
		ORDER BY y, m, w
	`, monthExpr, weekExpr)

	rows, err := s.pool.Query(ctx, query, yearStart, s.loc.String())
	if err != nil {
		return nil, storageError("failed to query revenue", err)
	}
	defer rows.Close()

	buckets := []RevenueBucket{}
	for rows.Next() {
		var b RevenueBucket
		if err := rows.Scan(&b.Year, &b.Month, &b.Week, &b.TotalRevenue, &b.InvoiceCount); err != nil {
			return nil, storageError("failed to scan revenue bucket", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read revenue", err)
	}
	return buckets, nil
}

func (s *reportingService) ServiceFrequency(ctx context.Context, months int) ([]ServiceFrequencyBucket, error) {
	if months == 0 {
		months = DefaultFrequencyMonths
	}
	if months < 0 || months > 120 {
		return nil, validationError("months must be between 1 and 120")
	}
	cutoff := s.now().In(s.loc).AddDate(0, -months, 0)

	rows, err := s.pool.Query(ctx, `
		SELECT EXTRACT(YEAR FROM local_ts)::int AS y, EXTRACT(MONTH FROM local_ts)::int AS m, COUNT(*)
		FROM (
			SELECT visit_date AT TIME ZONE $2::text AS local_ts
			FROM service_records
			WHERE visit_date >= $1
		) sr
		GROUP BY y, m
		ORDER BY y, m
	`, cutoff, s.loc.String())
	if err != nil {
		return nil, storageError("failed to query service frequency", err)
	}
	defer rows.Close()

	buckets := []ServiceFrequencyBucket{}
	for rows.Next() {
		var b ServiceFrequencyBucket
		if err := rows.Scan(&b.Year, &b.Month, &b.Count); err != nil {
			return nil, storageError("failed to scan service frequency", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read service frequency", err)
	}
	return buckets, nil
}
