package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vib-UX/dca-bitcoin/domain"
)

// appTag marks every event this module publishes so relays and other
// clients can filter them without deserializing content.
const appTag = "dca-bitcoin"

// Wire payloads. Field names are a fixed wire format shared with other
// clients of the same event kinds — do not rename.
type purchaseContent struct {
	FiatAmount           decimal.Decimal `json:"fiatAmount"`
	Currency             string          `json:"currency"`
	BTCAmount            decimal.Decimal `json:"btcAmount"`
	BTCPrice             decimal.Decimal `json:"btcPrice"`
	Timestamp            int64           `json:"timestamp"` // unix ms
	SilentPaymentAddress string          `json:"silentPaymentAddress"`
}

type orderContent struct {
	purchaseContent
	Invoice     string `json:"invoice"`
	PaymentHash string `json:"paymentHash"`
	Expiry      int64  `json:"expiry"` // unix seconds
	Status      string `json:"status"`
}

// Encode converts a domain record into its signed-event envelope. Tags
// carry redundant, independently queryable copies of the key fields.
func Encode(rec domain.Record) (*RawEvent, error) {
	switch r := rec.(type) {
	case domain.Purchase:
		return encodePurchase(r)
	case domain.MarketOrder:
		return encodeOrder(r)
	case domain.StatusUpdate:
		return encodeStatusUpdate(r)
	default:
		return nil, fmt.Errorf("unsupported record type %T", rec)
	}
}

func encodePurchase(p domain.Purchase) (*RawEvent, error) {
	key := p.Key
	if key == "" {
		key = fmt.Sprintf("dca-%d", p.Timestamp.UnixMilli())
	}
	content, err := json.Marshal(purchaseContent{
		FiatAmount:           p.FiatAmount,
		Currency:             string(p.Currency),
		BTCAmount:            p.BTCAmount,
		BTCPrice:             p.BTCPrice,
		Timestamp:            p.Timestamp.UnixMilli(),
		SilentPaymentAddress: p.SilentPaymentAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal purchase: %w", err)
	}
	return &RawEvent{
		Kind:    domain.KindPurchase,
		Content: string(content),
		Tags: [][]string{
			{"d", key},
			{"currency", string(p.Currency)},
			{"btc_amount", p.BTCAmount.String()},
			{"btc_price", p.BTCPrice.String()},
			{"app", appTag},
		},
	}, nil
}

func encodeOrder(o domain.MarketOrder) (*RawEvent, error) {
	key := o.Key
	if key == "" {
		key = fmt.Sprintf("order-%d", o.Timestamp.UnixMilli())
	}
	content, err := json.Marshal(orderContent{
		purchaseContent: purchaseContent{
			FiatAmount:           o.FiatAmount,
			Currency:             string(o.Currency),
			BTCAmount:            o.BTCAmount,
			BTCPrice:             o.BTCPrice,
			Timestamp:            o.Timestamp.UnixMilli(),
			SilentPaymentAddress: o.SilentPaymentAddress,
		},
		Invoice:     o.Invoice,
		PaymentHash: o.PaymentHash,
		Expiry:      o.ExpiresAt.Unix(),
		Status:      string(o.Status),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}
	return &RawEvent{
		Kind:    domain.KindMarketOrder,
		Content: string(content),
		Tags: [][]string{
			{"d", key},
			{"currency", string(o.Currency)},
			{"btc_amount", o.BTCAmount.String()},
			{"fiat_amount", o.FiatAmount.String()},
			{"btc_price", o.BTCPrice.String()},
			{"invoice", o.Invoice},
			{"payment_hash", o.PaymentHash},
			{"expiry", fmt.Sprintf("%d", o.ExpiresAt.Unix())},
			{"status", string(o.Status)},
			{"t", "dca"},
			{"t", "p2p"},
			{"app", appTag},
		},
	}, nil
}

func encodeStatusUpdate(s domain.StatusUpdate) (*RawEvent, error) {
	payload := map[string]any{
		"orderId":   s.OrderID,
		"status":    string(s.Status),
		"timestamp": s.Timestamp.UnixMilli(),
	}
	for k, v := range s.Extra {
		payload[k] = v
	}
	content, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal status update: %w", err)
	}
	return &RawEvent{
		Kind:    domain.KindStatusUpdate,
		Content: string(content),
		Tags: [][]string{
			{"e", s.OrderID},
			{"status", string(s.Status)},
			{"app", appTag},
		},
	}, nil
}

// Decode converts a fetched envelope back into a domain record. Malformed
// content or an unrecognized kind yields a *DecodeError; callers drop the
// record and continue.
func Decode(ev *RawEvent) (domain.Record, error) {
	switch ev.Kind {
	case domain.KindPurchase:
		var c purchaseContent
		if err := json.Unmarshal([]byte(ev.Content), &c); err != nil {
			return nil, &DecodeError{Kind: ev.Kind, Reason: "malformed content", Err: err}
		}
		return domain.Purchase{
			FiatAmount:           c.FiatAmount,
			Currency:             domain.Currency(c.Currency),
			BTCAmount:            c.BTCAmount,
			BTCPrice:             c.BTCPrice,
			SilentPaymentAddress: c.SilentPaymentAddress,
			Timestamp:            time.UnixMilli(c.Timestamp).UTC(),
			Key:                  ev.Tag("d"),
		}, nil

	case domain.KindMarketOrder:
		var c orderContent
		if err := json.Unmarshal([]byte(ev.Content), &c); err != nil {
			return nil, &DecodeError{Kind: ev.Kind, Reason: "malformed content", Err: err}
		}
		return domain.MarketOrder{
			FiatAmount:           c.FiatAmount,
			Currency:             domain.Currency(c.Currency),
			BTCAmount:            c.BTCAmount,
			BTCPrice:             c.BTCPrice,
			SilentPaymentAddress: c.SilentPaymentAddress,
			Invoice:              c.Invoice,
			PaymentHash:          c.PaymentHash,
			ExpiresAt:            time.Unix(c.Expiry, 0).UTC(),
			Status:               domain.OrderStatus(c.Status),
			Timestamp:            time.UnixMilli(c.Timestamp).UTC(),
			Key:                  ev.Tag("d"),
		}, nil

	case domain.KindStatusUpdate:
		var payload map[string]json.RawMessage
		if err := json.Unmarshal([]byte(ev.Content), &payload); err != nil {
			return nil, &DecodeError{Kind: ev.Kind, Reason: "malformed content", Err: err}
		}
		var s domain.StatusUpdate
		var status string
		var ts int64
		if err := unmarshalField(payload, "orderId", &s.OrderID); err != nil {
			return nil, &DecodeError{Kind: ev.Kind, Reason: "missing orderId", Err: err}
		}
		if err := unmarshalField(payload, "status", &status); err != nil {
			return nil, &DecodeError{Kind: ev.Kind, Reason: "missing status", Err: err}
		}
		if err := unmarshalField(payload, "timestamp", &ts); err != nil {
			return nil, &DecodeError{Kind: ev.Kind, Reason: "missing timestamp", Err: err}
		}
		s.Status = domain.OrderStatus(status)
		s.Timestamp = time.UnixMilli(ts).UTC()
		delete(payload, "orderId")
		delete(payload, "status")
		delete(payload, "timestamp")
		if len(payload) > 0 {
			s.Extra = make(map[string]string, len(payload))
			for k, raw := range payload {
				var v string
				if err := json.Unmarshal(raw, &v); err != nil {
					v = string(raw)
				}
				s.Extra[k] = v
			}
		}
		return s, nil

	default:
		return nil, &DecodeError{Kind: ev.Kind, Reason: "unrecognized kind"}
	}
}

func unmarshalField(payload map[string]json.RawMessage, name string, dst any) error {
	raw, ok := payload[name]
	if !ok {
		return fmt.Errorf("field %q absent", name)
	}
	return json.Unmarshal(raw, dst)
}
