package document

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthsBetween counts billing months from..to. A started month counts as
// a whole month and the result is never below 1.
func MonthsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 1
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	anchor := from.AddDate(0, months, 0)
	for months > 0 && anchor.After(to) {
		months--
		anchor = from.AddDate(0, months, 0)
	}
	if anchor.Before(to) {
		months++
	}
	if months < 1 {
		months = 1
	}
	return months
}

// RentTotal is monthly rent times MonthsBetween(from, to)
func RentTotal(monthly decimal.Decimal, from, to time.Time) decimal.Decimal {
	return monthly.Mul(decimal.NewFromInt(int64(MonthsBetween(from, to))))
}
