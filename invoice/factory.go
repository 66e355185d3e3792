// Package invoice generates, derives and decodes payment descriptors.
//
// The generated destinations look like BOLT11 invoices but carry no real
// checksum or signature, and Decode is a loose pattern match, not a
// standards-accurate parser. Anything touching real value must go through
// a Backend (see backend.go) instead.
package invoice

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vib-UX/dca-bitcoin/domain"
)

// ErrInvalidAmount is returned for non-positive amounts or prices.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrMalformedDescriptor is returned when a destination string does not
// match the invoice grammar.
var ErrMalformedDescriptor = errors.New("malformed payment descriptor")

// DefaultExpiry is how long a generated invoice stays payable.
const DefaultExpiry = 3600 * time.Second

var satsPerBTC = decimal.NewFromInt(100_000_000)

// Descriptor describes one payable invoice.
type Descriptor struct {
	Destination string // invoice string or payment address
	AmountSats  uint64
	Memo        string
	PaymentHash string // hex
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Metadata    map[string]string
}

// Validate checks the descriptor invariants.
func (d *Descriptor) Validate() error {
	if d.Destination == "" {
		return fmt.Errorf("%w: empty destination", ErrMalformedDescriptor)
	}
	if d.AmountSats == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidAmount)
	}
	if !d.ExpiresAt.After(d.CreatedAt) {
		return fmt.Errorf("%w: expiry before creation", ErrMalformedDescriptor)
	}
	return nil
}

// Expired reports whether the invoice can still be paid.
func (d *Descriptor) Expired(now time.Time) bool {
	return !d.ExpiresAt.After(now)
}

// BTCAmount converts the sat amount back to BTC.
func (d *Descriptor) BTCAmount() decimal.Decimal {
	return decimal.NewFromInt(int64(d.AmountSats)).Div(satsPerBTC)
}

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// Create generates a synthetic invoice: a random 32-byte payment hash and
// a valid-looking destination string. It fails only when the entropy
// source is unavailable.
func Create(amountSats uint64, memo string, metadata map[string]string) (*Descriptor, error) {
	if amountSats == 0 {
		return nil, fmt.Errorf("%w: zero sats", ErrInvalidAmount)
	}

	var hash [32]byte
	if _, err := rand.Read(hash[:]); err != nil {
		return nil, fmt.Errorf("entropy source unavailable: %w", err)
	}

	var payload [50]byte
	if _, err := rand.Read(payload[:]); err != nil {
		return nil, fmt.Errorf("entropy source unavailable: %w", err)
	}
	for i, b := range payload {
		payload[i] = bech32Charset[int(b)%len(bech32Charset)]
	}

	now := time.Now()
	return &Descriptor{
		Destination: fmt.Sprintf("lnbc%dn1p%s", amountSats, payload[:]),
		AmountSats:  amountSats,
		Memo:        memo,
		PaymentHash: hex.EncodeToString(hash[:]),
		CreatedAt:   now,
		ExpiresAt:   now.Add(DefaultExpiry),
		Metadata:    metadata,
	}, nil
}

// SatsFromFiat converts a fiat amount at the given BTC price (quoted in
// the same fiat currency) into whole satoshis, rounding down.
func SatsFromFiat(fiatAmount, btcPrice decimal.Decimal) (uint64, error) {
	if !btcPrice.IsPositive() || !fiatAmount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	sats := fiatAmount.Div(btcPrice).Mul(satsPerBTC).Floor()
	if !sats.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return uint64(sats.IntPart()), nil
}

// FromFiat derives a purchase invoice from fiat terms. The BTC price must
// be quoted in the same currency as the fiat amount.
func FromFiat(fiatAmount decimal.Decimal, currency domain.Currency, btcPrice decimal.Decimal, silentPaymentAddress string) (*Descriptor, error) {
	amountSats, err := SatsFromFiat(fiatAmount, btcPrice)
	if err != nil {
		return nil, err
	}
	btcAmount := fiatAmount.Div(btcPrice)

	memo := fmt.Sprintf("DCA Order: %s %s -> %s BTC",
		fiatAmount.String(), currency, btcAmount.StringFixed(8))

	return Create(amountSats, memo, map[string]string{
		"type":                 "dca_order",
		"fiatAmount":           fiatAmount.String(),
		"currency":             string(currency),
		"btcAmount":            btcAmount.String(),
		"btcPrice":             btcPrice.String(),
		"silentPaymentAddress": silentPaymentAddress,
	})
}

// ForStableChannel derives a deposit invoice for a stable channel.
func ForStableChannel(btcAmount decimal.Decimal) (*Descriptor, error) {
	if !btcAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amountSats := uint64(btcAmount.Mul(satsPerBTC).Floor().IntPart())
	if amountSats == 0 {
		return nil, ErrInvalidAmount
	}
	memo := fmt.Sprintf("Stable Channel Deposit: %s BTC", btcAmount.StringFixed(8))
	return Create(amountSats, memo, map[string]string{
		"type":      "stable_channel",
		"btcAmount": btcAmount.String(),
	})
}

var invoicePattern = regexp.MustCompile(`^lnbc(\d+)n1p(.+)$`)

// Decode parses a destination string back into a descriptor. This is a
// lossy, best-effort parse of the constrained grammar above; it does not
// verify checksums and must not be relied on for real value transfer.
func Decode(destination string) (*Descriptor, error) {
	m := invoicePattern.FindStringSubmatch(destination)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedDescriptor, destination)
	}
	var amountSats uint64
	if _, err := fmt.Sscanf(m[1], "%d", &amountSats); err != nil {
		return nil, fmt.Errorf("%w: bad amount: %v", ErrMalformedDescriptor, err)
	}
	return &Descriptor{
		Destination: destination,
		AmountSats:  amountSats,
		PaymentHash: m[2],
	}, nil
}
