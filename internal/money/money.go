// Package money converts between user-facing decimal amounts and the signed
// integer minor units (cents) stored everywhere else. Amounts are never kept
// as floating point past these helpers.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const minorPerMajor = 100

var (
	ErrNonFinite     = errors.New("amount is not a finite number")
	ErrOutOfRange    = errors.New("amount out of range")
	ErrInvalidAmount = errors.New("invalid amount")
)

var (
	hundred  = decimal.NewFromInt(minorPerMajor)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ToMinorUnits multiplies amount by 100 and rounds half away from zero.
// The float is read through its shortest decimal representation, so 1.005
// becomes 101 rather than 100.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrNonFinite
	}
	return FromDecimal(decimal.NewFromFloat(amount))
}

// FromMinorUnits divides by 100. ToMinorUnits(FromMinorUnits(x)) == x holds
// for |x| < 1e15; use Decimal for an exact conversion of any int64.
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / minorPerMajor
}

// Decimal is the exact major-unit value of minor.
func Decimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FromDecimal converts a major-unit decimal to minor units, rounding half
// away from zero.
func FromDecimal(amount decimal.Decimal) (int64, error) {
	scaled := amount.Mul(hundred).Round(0)
	if scaled.GreaterThan(maxMinor) || scaled.LessThan(minMinor) {
		return 0, ErrOutOfRange
	}
	return scaled.IntPart(), nil
}

// ParseMinorUnits parses a decimal literal such as "1,234.56" or "-12.5"
// into minor units. Commas and spaces are treated as thousands separators.
func ParseMinorUnits(literal string) (int64, error) {
	cleaned := strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(literal))
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidAmount, literal, err)
	}
	return FromDecimal(d)
}

// Format renders minor units as "<CUR> 1234.56".
func Format(minor int64, currency string) string {
	return fmt.Sprintf("%s %s", currency, Decimal(minor).StringFixed(2))
}
