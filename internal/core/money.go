// Package core provides money parsing and handling utilities.
//
// This file contains the parsing of user supplied amounts and VAT
// percentages and the display formatting of derived amounts.
package core

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = money.EUR

// Presets are the VAT rates offered by the input form.
var Presets = []float64{0.06, 0.13, 0.24}

// DefaultVATRate is preselected when no rate is given.
const DefaultVATRate = 0.24

// ParseAmount converts a decimal string to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidPrice for empty, signed or malformed input.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidPrice
func ParseAmount(s string) (float64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	return d.InexactFloat64(), nil
}

// ParseVATPercent converts a percentage such as "24" or "6,5" into a
// fractional rate.
func ParseVATPercent(s string) (float64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, ErrInvalidVATRate
	}
	return d.Div(decimal.NewFromInt(100)).InexactFloat64(), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidPrice
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only unsigned values allowed
		return decimal.Zero, ErrInvalidPrice
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// Round2 rounds half away from zero to two decimals, the precision used for
// display.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatMoney renders an amount in the given currency, e.g. "€12.34".
// Non-finite amounts render as "n/a".
func FormatMoney(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	cur := money.GetCurrency(currency)
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// FormatPercent renders a fractional rate as a whole percentage, e.g. "24%".
func FormatPercent(rate float64) string {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(rate).Shift(2).Round(0).String() + "%"
}
