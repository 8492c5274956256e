package domain

import (
	"github.com/shopspring/decimal"
)

// Money is a decimal amount that serializes as a JSON number.
// decimal.Decimal quotes its JSON output by default, which clients of the
// report endpoint do not expect.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MustMoney parses s and panics on malformed input. Intended for tests and constants.
func MustMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

// MarshalJSON renders the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts both numbers and quoted strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}
