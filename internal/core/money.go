// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and formatting them back for messages shown to the user.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes formatted amounts.
const CurrencySymbol = "₹"

// currencyMarkers are the prefixes accepted in front of an amount. Longer
// markers come first so "Rs." wins over "Rs".
var currencyMarkers = []string{"inr", "rs.", "rs", "₹"}

// ParseAmount converts a loosely formatted amount to a decimal.
//
// It trims whitespace, drops a leading currency marker (Rs., Rs, INR, ₹) and
// strips thousands separators. Only non-negative values with at most one
// decimal point are accepted; anything else returns ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("450")        -> 450
//	ParseAmount("Rs. 1,200")  -> 1200
//	ParseAmount("₹12.50")     -> 12.50
//	ParseAmount("-3")         -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = StripCurrency(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	if strings.HasSuffix(s, ".") {
		s = strings.TrimSuffix(s, ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// StripCurrency removes one leading currency marker and the whitespace after it.
func StripCurrency(s string) string {
	lower := strings.ToLower(s)
	for _, m := range currencyMarkers {
		if strings.HasPrefix(lower, m) {
			return strings.TrimSpace(s[len(m):])
		}
	}
	return s
}

// FormatMoney renders an amount for user-facing text, e.g. "₹450" or "₹12.50".
func FormatMoney(d decimal.Decimal) string {
	d = d.Round(2)
	if d.IsInteger() {
		return CurrencySymbol + d.String()
	}
	return CurrencySymbol + d.StringFixed(2)
}
