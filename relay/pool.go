package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Vib-UX/dca-bitcoin/ledger"
)

// ErrNotConnected is returned by Publish and Query before a successful
// Connect.
var ErrNotConnected = errors.New("not connected to any relay")

type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateConnected
)

// PoolConfig tunes the pool. Zero values select the defaults.
type PoolConfig struct {
	// PollInterval and PollBudget bound how long a concurrent Connect
	// call waits for an in-flight attempt. Defaults: 100ms × 50.
	PollInterval time.Duration
	PollBudget   int
	// PublishTimeout bounds how long Publish waits for relay
	// acknowledgements. Default: 10s.
	PublishTimeout time.Duration
}

func (c *PoolConfig) withDefaults() PoolConfig {
	out := *c
	if out.PollInterval <= 0 {
		out.PollInterval = 100 * time.Millisecond
	}
	if out.PollBudget <= 0 {
		out.PollBudget = 50
	}
	if out.PublishTimeout <= 0 {
		out.PublishTimeout = 10 * time.Second
	}
	return out
}

// Pool implements ledger.Gateway over a fixed set of relay connections.
// Connection state is process-wide: construct one pool at startup and
// tear it down on shutdown.
type Pool struct {
	cfg PoolConfig

	mu     sync.Mutex
	conns  []Conn
	active []Conn // subset of conns that connected successfully
	state  connState
}

// NewPool creates a pool over the given relay connections. No connection
// is attempted until Connect.
func NewPool(conns []Conn, cfg PoolConfig) *Pool {
	return &Pool{cfg: cfg.withDefaults(), conns: conns}
}

// Connect is idempotent: already connected returns true immediately, and
// a call arriving while another attempt is in flight waits for that
// attempt instead of starting a second one. Returns false on failure
// without an error; callers decide whether to retry.
func (p *Pool) Connect(ctx context.Context) bool {
	p.mu.Lock()
	switch p.state {
	case stateConnected:
		p.mu.Unlock()
		return true
	case stateConnecting:
		p.mu.Unlock()
		return p.awaitConnect(ctx)
	}
	p.state = stateConnecting
	conns := p.conns
	p.mu.Unlock()

	slog.Info("🔄 [RelayPool] Connecting to relays", "count", len(conns))
	var active []Conn
	for _, c := range conns {
		if err := c.Connect(ctx); err != nil {
			slog.Warn("⚠️ [RelayPool] Relay unreachable", "url", c.URL(), "err", err)
			continue
		}
		active = append(active, c)
	}

	p.mu.Lock()
	p.active = active
	if len(active) > 0 {
		p.state = stateConnected
	} else {
		p.state = stateIdle
	}
	ok := p.state == stateConnected
	p.mu.Unlock()

	if ok {
		slog.Info("✅ [RelayPool] Connected", "active", len(active))
	} else {
		slog.Error("❌ [RelayPool] Failed to connect to any relay")
	}
	return ok
}

// awaitConnect polls the in-flight attempt's outcome within the budget.
func (p *Pool) awaitConnect(ctx context.Context) bool {
	for i := 0; i < p.cfg.PollBudget; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.cfg.PollInterval):
		}
		p.mu.Lock()
		state := p.state
		p.mu.Unlock()
		if state != stateConnecting {
			return state == stateConnected
		}
	}
	return false
}

// Close tears the pool down. Subsequent publishes and queries fail until
// Connect is called again.
func (p *Pool) Close() error {
	p.mu.Lock()
	active := p.active
	p.active = nil
	p.state = stateIdle
	p.mu.Unlock()

	var firstErr error
	for _, c := range active {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Pool) activeConns() []Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != stateConnected {
		return nil
	}
	out := make([]Conn, len(p.active))
	copy(out, p.active)
	return out
}

// Publish sends the event to every active relay. Partial acknowledgement
// is a success; publish is satisfied by at-least-one relay.
func (p *Pool) Publish(ctx context.Context, ev *ledger.RawEvent) (string, error) {
	conns := p.activeConns()
	if len(conns) == 0 {
		return "", &ledger.PublishError{Err: ErrNotConnected}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		acked   int
		lastErr error
	)
	for _, c := range conns {
		wg.Add(1)
		go func(c Conn) {
			defer wg.Done()
			err := c.Publish(ctx, ev)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				slog.Warn("⚠️ [RelayPool] Publish rejected", "url", c.URL(), "err", err)
				return
			}
			acked++
		}(c)
	}
	wg.Wait()

	if acked == 0 {
		return "", &ledger.PublishError{Relays: len(conns), Err: lastErr}
	}
	slog.Info("📤 [RelayPool] Event accepted", "id", ev.ID, "acks", acked, "relays", len(conns))
	return ev.ID, nil
}

// Query fans the filter out to every active relay and concatenates the
// batches. No ordering or deduplication: that is the ledger's job.
func (p *Pool) Query(ctx context.Context, f ledger.Filter) ([]ledger.RawEvent, error) {
	conns := p.activeConns()
	if len(conns) == 0 {
		return nil, ErrNotConnected
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []ledger.RawEvent
		failed  int
		lastErr error
	)
	for _, c := range conns {
		wg.Add(1)
		go func(c Conn) {
			defer wg.Done()
			evs, err := c.Query(ctx, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				lastErr = err
				slog.Warn("⚠️ [RelayPool] Query failed", "url", c.URL(), "err", err)
				return
			}
			results = append(results, evs...)
		}(c)
	}
	wg.Wait()

	if failed == len(conns) {
		return nil, lastErr
	}
	return results, nil
}
