// Package types provides common types used across Tally.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenDecimals is the number of decimal places of the settlement token.
// All Amount values are denominated in the smallest (base) unit.
const TokenDecimals = 8

// tokenScale is 10^TokenDecimals.
const tokenScale = 100_000_000

// Amount is a quantity of the settlement token in base units.
// All arithmetic is integer-only, never floating point.
//
// Examples:
//   - Units(100) = 100 base units
//   - Tokens(1)  = 1.00000000 whole tokens (10^8 base units)
type Amount int64

// Units creates an Amount from base units.
func Units(n int64) Amount { return Amount(n) }

// Tokens creates an Amount from whole tokens.
func Tokens(n int64) Amount { return Amount(n * tokenScale) }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a - b. No underflow check: call sites that require
// sufficiency verify the balance before debiting.
func (a Amount) Sub(b Amount) Amount { return a - b }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative reports whether the amount is less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Units returns the raw base-unit value.
func (a Amount) Units() int64 { return int64(a) }

// Tokens returns the amount in whole tokens as a float64. Lossy for
// very large values; intended for metrics and display, never for
// ledger arithmetic.
func (a Amount) Tokens() float64 { return float64(a) / tokenScale }

// Format returns the whole-token decimal representation,
// e.g. Units(150000000).Format() == "1.50000000".
func (a Amount) Format() string {
	v := int64(a)
	neg := v < 0
	if neg {
		v = -v
	}

	s := fmt.Sprintf("%d.%0*d", v/tokenScale, TokenDecimals, v%tokenScale)
	if neg {
		return "-" + s
	}
	return s
}

// String implements fmt.Stringer.
func (a Amount) String() string { return a.Format() }

// ParseAmount parses a whole-token decimal string ("1.5", "0.00000001")
// into an Amount. Fractional digits beyond TokenDecimals are rejected.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("types: parse amount: empty string")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > TokenDecimals {
		return 0, fmt.Errorf("types: parse amount %q: more than %d decimal places", s, TokenDecimals)
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("types: parse amount %q: %w", s, err)
	}

	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac+strings.Repeat("0", TokenDecimals-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("types: parse amount %q: %w", s, err)
		}
	}

	v := w*tokenScale + f
	if neg {
		v = -v
	}
	return Amount(v), nil
}

// SumAmounts returns the sum of the given amounts.
func SumAmounts(values ...Amount) Amount {
	var total Amount
	for _, v := range values {
		total += v
	}
	return total
}
