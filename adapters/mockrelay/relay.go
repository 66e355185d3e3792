// Package mockrelay provides an in-memory relay for tests and demos.
package mockrelay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Vib-UX/dca-bitcoin/ledger"
)

// Relay implements relay.Conn over an in-memory event store.
type Relay struct {
	url string

	mu      sync.RWMutex
	events  map[string]ledger.RawEvent
	order   []string // insertion order, for stable query output
	offline bool
	reject  bool

	connectDelay time.Duration
	connects     int
}

// New creates an empty in-memory relay.
func New(url string) *Relay {
	return &Relay{url: url, events: make(map[string]ledger.RawEvent)}
}

func (r *Relay) URL() string { return r.url }

// Connect succeeds unless the relay is set offline. An optional delay
// simulates a slow handshake.
func (r *Relay) Connect(ctx context.Context) error {
	r.mu.Lock()
	delay := r.connectDelay
	offline := r.offline
	r.connects++
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	if offline {
		return fmt.Errorf("relay %s offline", r.url)
	}
	return nil
}

func (r *Relay) Close() error { return nil }

// Publish stores the event, overwriting any previous copy with the same
// id.
func (r *Relay) Publish(_ context.Context, ev *ledger.RawEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return fmt.Errorf("relay %s rejected event", r.url)
	}
	if _, seen := r.events[ev.ID]; !seen {
		r.order = append(r.order, ev.ID)
	}
	r.events[ev.ID] = *ev
	slog.Debug("🗄️ [MockRelay] Stored event", "url", r.url, "id", ev.ID, "kind", ev.Kind)
	return nil
}

// Query returns stored events matching the filter, newest insertions
// last, capped at the filter limit.
func (r *Relay) Query(_ context.Context, f ledger.Filter) ([]ledger.RawEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.offline {
		return nil, fmt.Errorf("relay %s offline", r.url)
	}

	var out []ledger.RawEvent
	for _, id := range r.order {
		ev := r.events[id]
		if !matchKind(f.Kinds, ev.Kind) {
			continue
		}
		if len(f.Authors) > 0 && !matchAuthor(f.Authors, ev.Pubkey) {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func matchKind(kinds []int, kind int) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func matchAuthor(authors []string, pubkey string) bool {
	for _, a := range authors {
		if a == pubkey {
			return true
		}
	}
	return false
}

// Seed injects an event directly into the store, bypassing Publish.
func (r *Relay) Seed(ev ledger.RawEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.events[ev.ID]; !seen {
		r.order = append(r.order, ev.ID)
	}
	r.events[ev.ID] = ev
}

// SetOffline makes Connect and Query fail.
func (r *Relay) SetOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = offline
}

// SetRejectPublish makes Publish fail while leaving queries working.
func (r *Relay) SetRejectPublish(reject bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reject = reject
}

// SetConnectDelay delays Connect to exercise in-flight connect waits.
func (r *Relay) SetConnectDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectDelay = d
}

// Connects reports how many Connect calls the relay has seen.
func (r *Relay) Connects() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connects
}

// EventCount reports how many events the relay stores.
func (r *Relay) EventCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
