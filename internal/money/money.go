// Package money implements fixed-precision currency amounts.
//
// Amounts are stored as an integer count of minor units (cents), so all
// arithmetic is exact. Splitting an amount never loses or invents a cent:
// any remainder is handed out one minor unit at a time in a stable order.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is a signed amount in minor units (cents).
type Money int64

// FromUnits builds a Money from a raw count of minor units.
func FromUnits(units int64) Money {
	return Money(units)
}

// Units returns the raw count of minor units.
func (m Money) Units() int64 {
	return int64(m)
}

func (m Money) Add(n Money) Money { return m + n }
func (m Money) Sub(n Money) Money { return m - n }
func (m Money) Neg() Money        { return -m }

// Abs returns the magnitude of the amount.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsPositive() bool { return m > 0 }
func (m Money) IsNegative() bool { return m < 0 }

// Cmp returns -1, 0, or 1 comparing m to n.
func (m Money) Cmp(n Money) int {
	switch {
	case m < n:
		return -1
	case m > n:
		return 1
	}
	return 0
}

// Split divides the amount into n parts that sum exactly to m. The
// remainder of the integer division is distributed one minor unit at a
// time to the first parts, so the result is deterministic for a given
// input order.
func (m Money) Split(n int) ([]Money, error) {
	if n <= 0 {
		return nil, fmt.Errorf("cannot split into %d parts", n)
	}
	base := m / Money(n)
	rem := int64(m % Money(n))
	step := Money(1)
	if rem < 0 {
		step = -1
		rem = -rem
	}
	parts := make([]Money, n)
	for i := range parts {
		parts[i] = base
		if int64(i) < rem {
			parts[i] += step
		}
	}
	return parts, nil
}

// Percent returns the given share of the amount in basis points
// (100 bp = 1%), truncated toward zero. Callers that need exact
// reconciliation must account for the truncated residue themselves.
// The intermediate product m*basisPoints must fit in an int64; amounts
// beyond that bound are rejected rather than silently wrapped.
func (m Money) Percent(basisPoints int64) (Money, error) {
	bp := basisPoints
	if bp < 0 {
		bp = -bp
	}
	if bp != 0 && m.Abs().Units() > math.MaxInt64/bp {
		return 0, fmt.Errorf("amount %s at %d bp out of range", m, basisPoints)
	}
	return Money(int64(m) * basisPoints / 10000), nil
}

// Parse converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place. Negative values
// are rejected; zero is allowed.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	// Guard the *100 below.
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	return Money(iv*100 + frac), nil
}

// MustParse is Parse for tests and constants; it panics on error.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String renders the amount in canonical decimal form, e.g. "12.34" or
// "-0.05".
func (m Money) String() string {
	units := int64(m)
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/100, units%100)
}
