// Package core holds the budgets domain: category summaries, the category
// matcher, progress tiers and the analysis that produces snapshots.
//
// This file contains amount parsing and formatting helpers.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount into a decimal rounded to cents.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted and the
// value is rounded half-up to two places. Zero is valid (a budget may be
// zero); negative or non-numeric input returns ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// FormatRupees renders an amount the way the budgets page shows it.
func FormatRupees(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}
