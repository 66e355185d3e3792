package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stats summarizes a purchase history for the portfolio view.
type Stats struct {
	TotalBTC      decimal.Decimal
	TotalFiat     decimal.Decimal // in the requested currency only
	AveragePrice  decimal.Decimal // TotalFiat / TotalBTC
	PurchaseCount int
	FirstPurchase time.Time
	LastPurchase  time.Time
}

// ComputeStats aggregates purchases. TotalFiat and AveragePrice only count
// purchases denominated in the given currency; TotalBTC counts all.
func ComputeStats(purchases []Purchase, currency Currency) Stats {
	var s Stats
	s.PurchaseCount = len(purchases)
	for _, p := range purchases {
		s.TotalBTC = s.TotalBTC.Add(p.BTCAmount)
		if p.Currency == currency {
			s.TotalFiat = s.TotalFiat.Add(p.FiatAmount)
		}
		if s.FirstPurchase.IsZero() || p.Timestamp.Before(s.FirstPurchase) {
			s.FirstPurchase = p.Timestamp
		}
		if p.Timestamp.After(s.LastPurchase) {
			s.LastPurchase = p.Timestamp
		}
	}
	if s.TotalBTC.IsPositive() {
		s.AveragePrice = s.TotalFiat.Div(s.TotalBTC)
	}
	return s
}

// OrderStats summarizes the marketplace order book.
type OrderStats struct {
	TotalOrders int
	TotalBTC    decimal.Decimal
	TotalUSD    decimal.Decimal // USD-denominated orders only
	Currencies  []Currency      // distinct, in first-seen order
}

// ComputeOrderStats aggregates marketplace orders. TotalUSD only counts
// USD-denominated orders; TotalBTC counts all.
func ComputeOrderStats(orders []MarketOrder) OrderStats {
	s := OrderStats{TotalOrders: len(orders)}
	seen := make(map[Currency]struct{})
	for _, o := range orders {
		s.TotalBTC = s.TotalBTC.Add(o.BTCAmount)
		if o.Currency == CurrencyUSD {
			s.TotalUSD = s.TotalUSD.Add(o.FiatAmount)
		}
		if _, ok := seen[o.Currency]; !ok {
			seen[o.Currency] = struct{}{}
			s.Currencies = append(s.Currencies, o.Currency)
		}
	}
	return s
}

// FilterByCurrency returns the orders denominated in the given currency.
func FilterByCurrency(orders []MarketOrder, currency Currency) []MarketOrder {
	out := make([]MarketOrder, 0, len(orders))
	for _, o := range orders {
		if o.Currency == currency {
			out = append(out, o)
		}
	}
	return out
}

// FilterByPriceRange returns the orders whose BTC price lies in
// [min, max] inclusive.
func FilterByPriceRange(orders []MarketOrder, min, max decimal.Decimal) []MarketOrder {
	out := make([]MarketOrder, 0, len(orders))
	for _, o := range orders {
		if o.BTCPrice.GreaterThanOrEqual(min) && o.BTCPrice.LessThanOrEqual(max) {
			out = append(out, o)
		}
	}
	return out
}
