package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is one of the currencies the store accepts payment in.
type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// minor unit exponent per accepted currency
var acceptedCurrencies = map[Currency]int32{
	CurrencyGBP: 2,
	CurrencyUSD: 2,
	CurrencyEUR: 2,
}

// NormalizeCurrency maps a gateway currency code ("gbp", "GBP") onto the
// accepted set.
func NormalizeCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := acceptedCurrencies[c]; !ok {
		return "", fmt.Errorf("unsupported currency %q", code)
	}
	return c, nil
}

// FromMinorUnits converts an integer amount in minor units (pence, cents)
// into the store's decimal representation.
func (c Currency) FromMinorUnits(amount int64) decimal.Decimal {
	exp, ok := acceptedCurrencies[c]
	if !ok {
		exp = 2
	}
	return decimal.New(amount, -exp)
}
