package vending

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

const (
	moneyPrecision = 19
	centsExponent  = -2
)

var ErrInvalidAmount = errors.New("invalid amount")

// money is the decimal context for all balance arithmetic.
var money = apd.BaseContext.WithPrecision(moneyPrecision) //nolint:gochecknoglobals

// ParseMoney parses a decimal amount such as "1.50".
func ParseMoney(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidAmount, s, err)
	}

	return d, nil
}

// MustParseMoney is ParseMoney for literals. It panics on malformed input.
func MustParseMoney(s string) *apd.Decimal {
	d, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}

	return d
}

// FormatMoney renders d as dollars with exactly two decimals, e.g. "$1.50".
func FormatMoney(d *apd.Decimal) string {
	if d == nil {
		return "$0.00"
	}

	var cents apd.Decimal

	if _, err := money.Quantize(&cents, d, centsExponent); err != nil {
		return "$" + d.Text('f')
	}

	return "$" + cents.Text('f')
}

func copyMoney(d *apd.Decimal) *apd.Decimal {
	return new(apd.Decimal).Set(d)
}
