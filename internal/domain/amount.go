package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is an immutable monetary value: an exact decimal number plus an
// ISO 4217 currency code. All arithmetic goes through decimal comparison,
// never float.
type Amount struct {
	Number       decimal.Decimal `json:"number"`
	CurrencyCode string          `json:"currency_code"`
}

// NewAmount parses a decimal string (e.g. "10.00") into an Amount.
func NewAmount(number, currencyCode string) (Amount, error) {
	n, err := decimal.NewFromString(number)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", number, err)
	}
	if currencyCode == "" {
		return Amount{}, fmt.Errorf("currency code is required")
	}
	return Amount{Number: n, CurrencyCode: currencyCode}, nil
}

// MustAmount is NewAmount that panics on bad input. Intended for tests
// and literals.
func MustAmount(number, currencyCode string) Amount {
	a, err := NewAmount(number, currencyCode)
	if err != nil {
		panic(err)
	}
	return a
}

// ZeroAmount returns the zero value in the given currency.
func ZeroAmount(currencyCode string) Amount {
	return Amount{Number: decimal.Zero, CurrencyCode: currencyCode}
}

// Add returns a + b. The currencies must match.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.CurrencyCode != b.CurrencyCode {
		return Amount{}, fmt.Errorf("currency mismatch: %s vs %s", a.CurrencyCode, b.CurrencyCode)
	}
	return Amount{Number: a.Number.Add(b.Number), CurrencyCode: a.CurrencyCode}, nil
}

// LessThan reports whether a < b, ignoring currency.
func (a Amount) LessThan(b Amount) bool {
	return a.Number.LessThan(b.Number)
}

// GreaterThan reports whether a > b, ignoring currency.
func (a Amount) GreaterThan(b Amount) bool {
	return a.Number.GreaterThan(b.Number)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.Number.IsPositive()
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.Number.IsZero()
}

// Equal reports value and currency equality.
func (a Amount) Equal(b Amount) bool {
	return a.CurrencyCode == b.CurrencyCode && a.Number.Equal(b.Number)
}

// String formats the amount as "10.00 USD".
func (a Amount) String() string {
	return a.Number.String() + " " + a.CurrencyCode
}
