package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the fiat denomination of a purchase or order.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyIDR Currency = "IDR"
	CurrencyINR Currency = "INR"
)

// OrderStatus tracks the lifecycle of a marketplace order.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// Record is a logical application-level record independent of its wire
// encoding. The ledger is append-only: a published record is never edited
// in place — "mutation" is a new StatusUpdate referencing it by id.
type Record interface {
	// RecordKind returns the event kind identifier this record encodes to.
	RecordKind() int
	// UniquenessKey returns the record's replaceable-event key (the "d"
	// tag value). Empty for records that are not replaceable.
	UniquenessKey() string
}

// Purchase is a completed DCA buy: fiat in, BTC out, delivered to a
// Silent Payment address. The address is an opaque recipient identifier.
type Purchase struct {
	FiatAmount           decimal.Decimal
	Currency             Currency
	BTCAmount            decimal.Decimal
	BTCPrice             decimal.Decimal
	SilentPaymentAddress string
	Timestamp            time.Time
	Key                  string // replaceable-event key, "dca-<unix ms>"
}

func (p Purchase) RecordKind() int       { return KindPurchase }
func (p Purchase) UniquenessKey() string { return p.Key }

// MarketOrder is an open P2P buy order on the shared marketplace. It
// carries everything a peer needs to fill it: the invoice to pay and the
// terms of the trade.
type MarketOrder struct {
	FiatAmount           decimal.Decimal
	Currency             Currency
	BTCAmount            decimal.Decimal
	BTCPrice             decimal.Decimal
	SilentPaymentAddress string
	Invoice              string
	PaymentHash          string
	ExpiresAt            time.Time
	Status               OrderStatus
	Timestamp            time.Time
	Key                  string // replaceable-event key, "order-<unix ms>"
}

func (o MarketOrder) RecordKind() int       { return KindMarketOrder }
func (o MarketOrder) UniquenessKey() string { return o.Key }

// Expired reports whether the order can no longer be filled.
func (o MarketOrder) Expired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}

// StatusUpdate references an existing order by event id and records a
// status transition. Extra carries settlement details (preimage, txid)
// opaque to the ledger.
type StatusUpdate struct {
	OrderID   string
	Status    OrderStatus
	Extra     map[string]string
	Timestamp time.Time
}

func (s StatusUpdate) RecordKind() int       { return KindStatusUpdate }
func (s StatusUpdate) UniquenessKey() string { return "" }

// Event kinds in the parameterized-replaceable custom range. Consumers
// outside this module rely on these ids and the tag names being stable.
const (
	KindPurchase     = 31111
	KindMarketOrder  = 31112
	KindStatusUpdate = 31113
)
