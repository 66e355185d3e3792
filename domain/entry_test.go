package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchaseAt(key string, ts time.Time) Purchase {
	return Purchase{
		FiatAmount: decimal.NewFromInt(10),
		Currency:   CurrencyUSD,
		BTCAmount:  decimal.RequireFromString("0.0001"),
		BTCPrice:   decimal.NewFromInt(100_000),
		Timestamp:  ts,
		Key:        key,
	}
}

func TestMergeSupersedesLocalEntries(t *testing.T) {
	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	local := []Entry{
		{Record: purchaseAt("dca-1", base), CreatedAt: base},
		{Record: purchaseAt("dca-2", base.Add(time.Minute)), CreatedAt: base.Add(time.Minute)},
	}
	fetched := []Entry{
		{ID: "ev1", Author: "alice", Record: purchaseAt("dca-1", base), CreatedAt: base, ConfirmedAt: base.Add(2 * time.Second)},
	}

	view := Merge(local, fetched)
	require.Len(t, view, 2)
	// The confirmed copy of dca-1 replaces the local one; dca-2 stays local.
	assert.Equal(t, "", view[0].ID)
	assert.Equal(t, "dca-2", view[0].Record.UniquenessKey())
	assert.Equal(t, "ev1", view[1].ID)
}

func TestMergeDropsDuplicateIDs(t *testing.T) {
	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	e := Entry{ID: "ev1", Record: purchaseAt("dca-1", base), ConfirmedAt: base}

	view := Merge(nil, []Entry{e, e, e})
	require.Len(t, view, 1)
}

func TestMergeOrderingDeterministic(t *testing.T) {
	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	fetched := []Entry{
		{ID: "bbb", Record: purchaseAt("dca-b", base), ConfirmedAt: base},
		{ID: "aaa", Record: purchaseAt("dca-a", base), ConfirmedAt: base},
		{ID: "ccc", Record: purchaseAt("dca-c", base.Add(time.Hour)), ConfirmedAt: base.Add(time.Hour)},
	}
	local := []Entry{
		{Record: purchaseAt("dca-l", base.Add(30 * time.Minute)), CreatedAt: base.Add(30 * time.Minute)},
	}

	first := Merge(local, fetched)
	second := Merge(local, fetched)
	require.Equal(t, first, second)

	// Effective time descending; equal timestamps break ties by id asc.
	require.Len(t, first, 4)
	assert.Equal(t, "ccc", first[0].ID)
	assert.Equal(t, "dca-l", first[1].Record.UniquenessKey())
	assert.Equal(t, "aaa", first[2].ID)
	assert.Equal(t, "bbb", first[3].ID)
}

func TestEffectiveTime(t *testing.T) {
	created := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	confirmed := created.Add(5 * time.Second)

	local := Entry{Record: purchaseAt("k", created), CreatedAt: created}
	assert.True(t, local.EffectiveTime().Equal(created))
	assert.False(t, local.Confirmed())

	remote := Entry{ID: "x", Record: purchaseAt("k", created), CreatedAt: created, ConfirmedAt: confirmed}
	assert.True(t, remote.EffectiveTime().Equal(confirmed))
	assert.True(t, remote.Confirmed())
}

func TestComputeStats(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	purchases := []Purchase{
		{FiatAmount: decimal.NewFromInt(100), Currency: CurrencyUSD, BTCAmount: decimal.RequireFromString("0.001"), Timestamp: base},
		{FiatAmount: decimal.NewFromInt(200), Currency: CurrencyUSD, BTCAmount: decimal.RequireFromString("0.002"), Timestamp: base.AddDate(0, 1, 0)},
		{FiatAmount: decimal.NewFromInt(1_000_000), Currency: CurrencyIDR, BTCAmount: decimal.RequireFromString("0.0007"), Timestamp: base.AddDate(0, 2, 0)},
	}

	s := ComputeStats(purchases, CurrencyUSD)
	assert.Equal(t, 3, s.PurchaseCount)
	assert.True(t, s.TotalBTC.Equal(decimal.RequireFromString("0.0037")), s.TotalBTC.String())
	assert.True(t, s.TotalFiat.Equal(decimal.NewFromInt(300)), s.TotalFiat.String())
	assert.True(t, s.AveragePrice.Equal(decimal.NewFromInt(300).Div(decimal.RequireFromString("0.0037"))))
	assert.True(t, s.FirstPurchase.Equal(base))
	assert.True(t, s.LastPurchase.Equal(base.AddDate(0, 2, 0)))
}

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(nil, CurrencyUSD)
	assert.Zero(t, s.PurchaseCount)
	assert.True(t, s.TotalBTC.IsZero())
	assert.True(t, s.AveragePrice.IsZero())
}

func TestComputeOrderStats(t *testing.T) {
	orders := []MarketOrder{
		{Currency: CurrencyUSD, FiatAmount: decimal.NewFromInt(100), BTCAmount: decimal.RequireFromString("0.001")},
		{Currency: CurrencyUSD, FiatAmount: decimal.NewFromInt(50), BTCAmount: decimal.RequireFromString("0.0005")},
		{Currency: CurrencyIDR, FiatAmount: decimal.NewFromInt(1_000_000), BTCAmount: decimal.RequireFromString("0.0007")},
	}

	s := ComputeOrderStats(orders)
	assert.Equal(t, 3, s.TotalOrders)
	assert.True(t, s.TotalBTC.Equal(decimal.RequireFromString("0.0022")), s.TotalBTC.String())
	assert.True(t, s.TotalUSD.Equal(decimal.NewFromInt(150)), s.TotalUSD.String())
	assert.Equal(t, []Currency{CurrencyUSD, CurrencyIDR}, s.Currencies)

	empty := ComputeOrderStats(nil)
	assert.Zero(t, empty.TotalOrders)
	assert.True(t, empty.TotalBTC.IsZero())
	assert.Empty(t, empty.Currencies)
}

func TestOrderFilters(t *testing.T) {
	orders := []MarketOrder{
		{Currency: CurrencyUSD, BTCPrice: decimal.NewFromInt(80_000)},
		{Currency: CurrencyUSD, BTCPrice: decimal.NewFromInt(90_000)},
		{Currency: CurrencyIDR, BTCPrice: decimal.NewFromInt(85_000)},
	}

	usd := FilterByCurrency(orders, CurrencyUSD)
	assert.Len(t, usd, 2)

	ranged := FilterByPriceRange(orders, decimal.NewFromInt(82_000), decimal.NewFromInt(90_000))
	assert.Len(t, ranged, 2)
}
