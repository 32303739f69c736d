// Package core holds the transaction domain model and the aggregation
// engine. Everything here is pure computation over in-memory values;
// no I/O happens in this package.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a monetary token as it appears in confirmation
// messages into an exact decimal value.
//
// It strips comma grouping separators and requires a strictly positive
// result. Amounts are kept as exact decimals; no rounding policy is
// applied at parse time.
//
// Examples:
//
//	ParseAmount("1,500")    -> 1500, nil
//	ParseAmount("2000.50")  -> 2000.5, nil
//	ParseAmount("0")        -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only bare positive values appear in messages.
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatShillings renders an amount for user-facing text, e.g. "Ksh 1500".
// Whole amounts drop the fractional part; fractional amounts keep two
// decimal places.
func FormatShillings(d decimal.Decimal) string {
	if d.IsInteger() {
		return "Ksh " + d.StringFixed(0)
	}
	return "Ksh " + d.StringFixed(2)
}
