// Package rates holds the fiat cross-rate table used for purchase
// conversion. The rates are a fixed snapshot; a production deployment
// replaces this with a real price oracle.
package rates

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Vib-UX/dca-bitcoin/domain"
)

// ErrUnsupportedCurrency is returned for currencies outside the table.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Snapshot constants:
//	1 BTC = 86,087.97 USD
//	1 BTC = 7,824,520.40 INR
//	1 BTC = 1,437,050,334.00 IDR
var (
	defaultUSDPerBTC = decimal.RequireFromString("86087.97")
	defaultUSDRates  = map[domain.Currency]decimal.Decimal{
		domain.CurrencyUSD: decimal.NewFromInt(1),
		domain.CurrencyIDR: decimal.RequireFromString("16694.39"), // 1,437,050,334 / 86,087.97
		domain.CurrencyINR: decimal.RequireFromString("90.88"),    // 7,824,520.40 / 86,087.97
	}
	// Conversions quote against the 24h price, spot × 0.95.
	discount24h = decimal.RequireFromString("0.95")
)

// Table quotes BTC prices and fiat cross-rates.
type Table struct {
	usdPerBTC decimal.Decimal
	usdRates  map[domain.Currency]decimal.Decimal
}

// NewTable returns the default snapshot table.
func NewTable() *Table {
	return &Table{usdPerBTC: defaultUSDPerBTC, usdRates: defaultUSDRates}
}

// NewTableWith builds a table from a custom spot price and rate map.
func NewTableWith(usdPerBTC decimal.Decimal, usdRates map[domain.Currency]decimal.Decimal) *Table {
	return &Table{usdPerBTC: usdPerBTC, usdRates: usdRates}
}

// USDRate returns how many units of the currency one USD buys.
func (t *Table) USDRate(c domain.Currency) (decimal.Decimal, error) {
	r, ok := t.usdRates[c]
	if !ok {
		return decimal.Decimal{}, ErrUnsupportedCurrency
	}
	return r, nil
}

// SpotPrice returns the BTC spot price quoted in the given currency.
func (t *Table) SpotPrice(c domain.Currency) (decimal.Decimal, error) {
	r, err := t.USDRate(c)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return t.usdPerBTC.Mul(r), nil
}

// Price24h returns the 24-hour BTC price quoted in the given currency.
// Purchases convert at this price.
func (t *Table) Price24h(c domain.Currency) (decimal.Decimal, error) {
	spot, err := t.SpotPrice(c)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return spot.Mul(discount24h), nil
}

// ToUSD converts a fiat amount into USD.
func (t *Table) ToUSD(amount decimal.Decimal, c domain.Currency) (decimal.Decimal, error) {
	r, err := t.USDRate(c)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Div(r), nil
}
