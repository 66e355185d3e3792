package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Vib-UX/dca-bitcoin/domain"
)

// Default fetch limits, matching what the history and marketplace views
// request.
const (
	PurchaseFetchLimit = 100
	OrderFetchLimit    = 50
)

// kindProfile is the relay profile-metadata kind carrying the lightning
// address fields.
const kindProfile = 0

// Service is the event-sourced ledger: it publishes domain records through
// the codec and gateway, and turns fetched raw events back into a clean,
// ordered view.
type Service struct {
	gateway Gateway

	mu     sync.RWMutex
	signer Signer

	now     func() time.Time
	dropped atomic.Int64
}

// NewService creates a ledger service. The signer may be nil; publishing
// then fails with ErrUnauthenticated until SetSigner is called.
func NewService(gateway Gateway, signer Signer) *Service {
	return &Service{
		gateway: gateway,
		signer:  signer,
		now:     time.Now,
	}
}

// SetSigner installs or replaces the signing capability (wallet login).
func (s *Service) SetSigner(signer Signer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signer = signer
}

func (s *Service) currentSigner() Signer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signer
}

// DroppedDecodes reports how many fetched events were discarded as
// undecodable since the service was created.
func (s *Service) DroppedDecodes() int64 { return s.dropped.Load() }

// Publish signs the record and sends it to the relay network. The record
// becomes visible to subsequent fetches only after relay propagation;
// no read-after-write guarantee is made.
func (s *Service) Publish(ctx context.Context, rec domain.Record) (string, error) {
	signer := s.currentSigner()
	if signer == nil {
		return "", ErrUnauthenticated
	}

	if !s.gateway.Connect(ctx) {
		return "", &PublishError{Err: fmt.Errorf("relay connection failed")}
	}

	ev, err := Encode(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	ev.CreatedAt = s.now().Unix()

	if err := signer.Sign(ctx, ev); err != nil {
		return "", fmt.Errorf("sign event: %w", err)
	}

	slog.Info("📤 [Ledger] Publishing record", "kind", ev.Kind, "id", ev.ID)
	id, err := s.gateway.Publish(ctx, ev)
	if err != nil {
		return "", err
	}
	slog.Info("✅ [Ledger] Record published", "id", id)
	return id, nil
}

// UpdateOrderStatus publishes a status-update record referencing the order
// by event id. The ledger is append-only: this supersedes the order's
// status without touching the original event.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, extra map[string]string) (string, error) {
	return s.Publish(ctx, domain.StatusUpdate{
		OrderID:   orderID,
		Status:    status,
		Extra:     extra,
		Timestamp: s.now(),
	})
}

// FetchPurchases returns the author's purchase history, newest first.
// An empty author fetches purchases from all authors.
func (s *Service) FetchPurchases(ctx context.Context, author string) ([]domain.Entry, error) {
	f := Filter{Kinds: []int{domain.KindPurchase}, Limit: PurchaseFetchLimit}
	if author != "" {
		f.Authors = []string{author}
	}
	return s.fetch(ctx, f)
}

// FetchOrders returns current marketplace orders, newest first. Orders
// whose expiry has passed are discarded even when relays still serve them.
func (s *Service) FetchOrders(ctx context.Context) ([]domain.Entry, error) {
	entries, err := s.fetch(ctx, Filter{Kinds: []int{domain.KindMarketOrder}, Limit: OrderFetchLimit})
	if err != nil {
		return nil, err
	}
	now := s.now()
	live := entries[:0]
	for _, e := range entries {
		if o, ok := e.Record.(domain.MarketOrder); ok && o.Expired(now) {
			continue
		}
		live = append(live, e)
	}
	return live, nil
}

// FetchStatusUpdates returns status updates referencing the given order,
// newest first. Relay filters cannot select on the reference tag, so the
// narrowing happens here.
func (s *Service) FetchStatusUpdates(ctx context.Context, orderID string) ([]domain.Entry, error) {
	entries, err := s.fetch(ctx, Filter{Kinds: []int{domain.KindStatusUpdate}, Limit: OrderFetchLimit})
	if err != nil {
		return nil, err
	}
	matched := entries[:0]
	for _, e := range entries {
		if u, ok := e.Record.(domain.StatusUpdate); ok && u.OrderID == orderID {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// FetchLightningAddress returns the lightning address from the author's
// profile event, preferring lud16 over the legacy lud06 field. Authors
// without a profile or without an address yield "" with no error.
func (s *Service) FetchLightningAddress(ctx context.Context, pubkey string) (string, error) {
	if !s.gateway.Connect(ctx) {
		return "", fmt.Errorf("relay connection failed")
	}
	raw, err := s.gateway.Query(ctx, Filter{Kinds: []int{kindProfile}, Authors: []string{pubkey}, Limit: 1})
	if err != nil {
		return "", fmt.Errorf("query profile: %w", err)
	}
	if len(raw) == 0 {
		return "", nil
	}

	newest := raw[0]
	for _, ev := range raw[1:] {
		if ev.CreatedAt > newest.CreatedAt {
			newest = ev
		}
	}
	var profile struct {
		Lud16 string `json:"lud16"`
		Lud06 string `json:"lud06"`
	}
	if err := json.Unmarshal([]byte(newest.Content), &profile); err != nil {
		return "", &DecodeError{Kind: kindProfile, Reason: "malformed profile", Err: err}
	}
	if profile.Lud16 != "" {
		return profile.Lud16, nil
	}
	return profile.Lud06, nil
}

// MergeWithLocal combines locally-optimistic entries with fetched ones
// into a single deterministic view. See domain.Merge for the rules.
func (s *Service) MergeWithLocal(local, fetched []domain.Entry) domain.View {
	return domain.Merge(local, fetched)
}

// ApplyStatusUpdates overrides each order's status with the newest update
// referencing it. Updates for unknown orders are ignored.
func ApplyStatusUpdates(orders []domain.Entry, updates []domain.Entry) []domain.Entry {
	latest := make(map[string]domain.Entry)
	for _, e := range updates {
		u, ok := e.Record.(domain.StatusUpdate)
		if !ok {
			continue
		}
		if prev, seen := latest[u.OrderID]; !seen || e.EffectiveTime().After(prev.EffectiveTime()) {
			latest[u.OrderID] = e
		}
	}
	out := make([]domain.Entry, len(orders))
	for i, e := range orders {
		if o, ok := e.Record.(domain.MarketOrder); ok {
			if upd, found := latest[e.ID]; found {
				o.Status = upd.Record.(domain.StatusUpdate).Status
				e.Record = o
			}
		}
		out[i] = e
	}
	return out
}

// fetch runs the query/decode/dedupe/order pipeline shared by all reads.
func (s *Service) fetch(ctx context.Context, f Filter) ([]domain.Entry, error) {
	if !s.gateway.Connect(ctx) {
		return nil, fmt.Errorf("relay connection failed")
	}

	raw, err := s.gateway.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query relays: %w", err)
	}

	byID := make(map[string]domain.Entry, len(raw))
	for i := range raw {
		ev := &raw[i]
		rec, err := Decode(ev)
		if err != nil {
			s.dropped.Add(1)
			slog.Warn("⚠️ [Ledger] Dropping undecodable event", "id", ev.ID, "kind", ev.Kind, "err", err)
			continue
		}
		entry := domain.Entry{
			ID:          ev.ID,
			Author:      ev.Pubkey,
			Record:      rec,
			CreatedAt:   time.Unix(ev.CreatedAt, 0).UTC(),
			ConfirmedAt: time.Unix(ev.CreatedAt, 0).UTC(),
		}
		if prev, dup := byID[ev.ID]; !dup || entry.ConfirmedAt.After(prev.ConfirmedAt) {
			byID[ev.ID] = entry
		}
	}

	entries := make([]domain.Entry, 0, len(byID))
	for _, e := range byID {
		entries = append(entries, e)
	}
	// Merge owns the ordering contract; reuse it for plain fetches.
	return domain.Merge(nil, entries), nil
}
