package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// Column limits. Money is NUMERIC(12,2); counts are INTEGER.
const (
	MoneyScale = 2
	MaxCount   = math.MaxInt32
)

// MaxMoney is the smallest amount that no longer fits NUMERIC(12,2).
var MaxMoney = decimal.New(1, 10)

// checkMoney rejects amounts that the database would round or refuse, so
// every total computed here equals the one recomputed from stored rows.
func checkMoney(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return validationError("%s cannot be negative", field)
	}
	if !d.Equal(d.Truncate(MoneyScale)) {
		return validationError("%s must have at most %d decimal places", field, MoneyScale)
	}
	if d.GreaterThanOrEqual(MaxMoney) {
		return validationError("%s must be less than %s", field, MaxMoney.String())
	}
	return nil
}

func checkCount(field string, n, min int) error {
	if n < min {
		return validationError("%s must be at least %d", field, min)
	}
	if n > MaxCount {
		return validationError("%s must be at most %d", field, MaxCount)
	}
	return nil
}
