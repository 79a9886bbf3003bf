// Package core holds the pure domain types for the savings tracker:
// envelopes, goals, challenges and the money arithmetic they share.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied decimal string to Money with
// half-up rounding on the third decimal place. Both "12.34" and "12,34"
// are accepted. Only strictly positive amounts are valid.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		// Round(2) guarantees an integral cent value; anything else
		// means the input was outside the representable range.
		return Money{}, ErrInvalidAmount
	}
	if cents.Cmp(decimal.NewFromInt(maxCents)) > 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// maxCents keeps parsed amounts comfortably inside int64 cent arithmetic.
const maxCents = int64(1) << 50

// Dollars creates Money from a whole-dollar figure.
func Dollars(d int64) Money {
	return Money{Cents: d * 100}
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// Mul scales the amount by an integer factor.
func (m Money) Mul(n int64) Money {
	return Money{Cents: m.Cents * n}
}

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }

// LessThan reports m < other.
func (m Money) LessThan(other Money) bool {
	return m.Cents < other.Cents
}

// Validate accepts only strictly positive amounts, the rule every
// mutating operation applies to its input.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// String formats the amount as dollars, e.g. "$12.34" or "-$0.50".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
