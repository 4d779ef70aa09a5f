// Package money implements the exact monetary amount used across the ledger.
// Amounts are stored in integer minor units (cents) with a currency tag so
// that arithmetic and comparisons are never subject to floating point drift.
// shopspring/decimal is used only at the boundary (parsing and display).
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// minorDigits is the number of decimal digits represented by one minor unit.
// All supported currencies (ARS, BRL, USD) use 2.
const minorDigits = 2

var (
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrPrecision        = errors.New("money: amount has sub-cent precision")
)

// Money is an exact amount in minor units of a single currency.
// The zero value is 0 units of the empty currency and is only useful
// as a starting accumulator.
type Money struct {
	Units    int64  `json:"units"`
	Currency string `json:"currency"`
}

func New(units int64, currency string) Money {
	return Money{Units: units, Currency: currency}
}

func Zero(currency string) Money {
	return Money{Currency: currency}
}

// FromDecimal converts a boundary decimal (e.g. "150.25") into minor units.
// Amounts with more precision than one cent are rejected rather than rounded:
// silently rounding user input hides till discrepancies.
func FromDecimal(d decimal.Decimal, currency string) (Money, error) {
	scaled := d.Shift(minorDigits)
	if !scaled.IsInteger() {
		return Money{}, fmt.Errorf("%w: %s", ErrPrecision, d.String())
	}
	return Money{Units: scaled.IntPart(), Currency: currency}, nil
}

// Decimal returns the major-unit decimal representation (e.g. 15025 → "150.25").
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Units, 0).Shift(-minorDigits)
}

func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Units: m.Units + o.Units, Currency: pickCurrency(m, o)}, nil
}

func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Units: m.Units - o.Units, Currency: pickCurrency(m, o)}, nil
}

func (m Money) Neg() Money {
	return Money{Units: -m.Units, Currency: m.Currency}
}

func (m Money) Abs() Money {
	if m.Units < 0 {
		return m.Neg()
	}
	return m
}

func (m Money) IsZero() bool     { return m.Units == 0 }
func (m Money) IsNegative() bool { return m.Units < 0 }
func (m Money) IsPositive() bool { return m.Units > 0 }

// Cmp returns -1, 0 or +1 comparing m against o. Comparing amounts of
// different currencies is a programming error and fails loudly.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency(o); err != nil {
		return 0, err
	}
	switch {
	case m.Units < o.Units:
		return -1, nil
	case m.Units > o.Units:
		return 1, nil
	default:
		return 0, nil
	}
}

func (m Money) String() string {
	return m.Decimal().StringFixed(minorDigits) + " " + m.Currency
}

func pickCurrency(m, o Money) string {
	if m.Currency != "" {
		return m.Currency
	}
	return o.Currency
}

func (m Money) sameCurrency(o Money) error {
	// An accumulator that has never been added to carries no currency yet.
	if m.Currency != o.Currency && m.Currency != "" && o.Currency != "" {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return nil
}
