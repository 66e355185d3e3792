// Package payment implements the request/response protocol to the wallet
// host: a fire-and-forget request correlated with an asynchronous,
// possibly-absent response, under a timeout, exactly once.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vib-UX/dca-bitcoin/invoice"
)

// DefaultTimeout is how long a session waits for a host response.
const DefaultTimeout = 30 * time.Second

// SessionStatus is the lifecycle state of one payment exchange.
type SessionStatus string

const (
	StatusPending          SessionStatus = "pending"
	StatusAwaitingResponse SessionStatus = "awaiting-response"
	StatusCompleted        SessionStatus = "completed"
	StatusFailed           SessionStatus = "failed"
	StatusTimedOut         SessionStatus = "timed-out"
)

// Session is the ephemeral state of one in-flight exchange. It is owned
// exclusively by the Channel that created it and never revived after a
// terminal transition.
type session struct {
	id         string
	descriptor *invoice.Descriptor
	startedAt  time.Time

	mu        sync.Mutex
	status    SessionStatus
	completed bool // completion guard: set once, before any callback fires
	timer     *time.Timer
	onResult  func(Result)
}

// terminate moves the session to a terminal state exactly once. It
// returns the callback to invoke (nil when the guard was already set or
// on silent abandonment). The timer is always stopped.
func (s *session) terminate(status SessionStatus, silent bool) (func(Result), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return nil, false
	}
	s.completed = true
	s.status = status
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if silent {
		return nil, true
	}
	return s.onResult, true
}

// Channel owns payment sessions and the host transport. One Channel per
// process: it consumes the transport's shared message stream and
// dispatches responses to sessions by correlation id.
type Channel struct {
	transport HostTransport
	timeout   time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// NewChannel creates a payment channel over the given transport. A
// non-positive timeout selects DefaultTimeout.
func NewChannel(transport HostTransport, timeout time.Duration) *Channel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Channel{
		transport: transport,
		timeout:   timeout,
		sessions:  make(map[string]*session),
	}
}

// Start consumes host messages until the context is cancelled or the
// transport closes its channel. Non-blocking.
func (c *Channel) Start(ctx context.Context) {
	go func() {
		slog.Info("🔌 [PaymentChannel] Listening for host messages")
		for {
			select {
			case <-ctx.Done():
				slog.Info("🔌 [PaymentChannel] Context cancelled, stopping")
				return
			case msg, ok := <-c.transport.Messages():
				if !ok {
					slog.Warn("⚠️ [PaymentChannel] Host message stream closed")
					return
				}
				c.handleMessage(msg)
			}
		}
	}()
}

// Request sends one payment request to the host (at-most-once) and
// registers onResult to receive the session's single terminal outcome:
// success, decline, or timeout. It returns the session id, usable with
// Abandon.
func (c *Channel) Request(desc *invoice.Descriptor, nostrPubkey string, onResult func(Result)) (string, error) {
	if err := desc.Validate(); err != nil {
		return "", err
	}

	s := &session{
		id:         uuid.NewString(),
		descriptor: desc,
		startedAt:  time.Now(),
		status:     StatusPending,
		onResult:   onResult,
	}

	c.mu.Lock()
	c.sessions[s.id] = s
	c.mu.Unlock()

	req := Request{
		Address:       desc.Destination,
		AmountSats:    desc.AmountSats,
		NostrPubkey:   nostrPubkey,
		CorrelationID: s.id,
	}
	slog.Info("💳 [PaymentChannel] Sending payment request",
		"session", s.id, "amount_sats", req.AmountSats)

	if err := c.transport.Send(req); err != nil {
		c.remove(s.id)
		return "", fmt.Errorf("send payment request: %w", err)
	}

	s.mu.Lock()
	if !s.completed {
		s.status = StatusAwaitingResponse
		s.timer = time.AfterFunc(c.timeout, func() { c.timeoutSession(s.id) })
	}
	s.mu.Unlock()

	return s.id, nil
}

// Abandon releases a session before a terminal outcome: the timer is
// cancelled, the session deregistered, and any in-flight response becomes
// inert. No callback fires.
func (c *Channel) Abandon(sessionID string) {
	c.mu.Lock()
	s := c.sessions[sessionID]
	c.mu.Unlock()
	if s == nil {
		return
	}
	if _, ok := s.terminate(StatusFailed, true); ok {
		slog.Info("💳 [PaymentChannel] Session abandoned", "session", sessionID)
	}
	c.remove(sessionID)
}

// SessionStatus reports the session's current state, or "" for unknown
// sessions.
func (c *Channel) SessionStatus(sessionID string) SessionStatus {
	c.mu.Lock()
	s := c.sessions[sessionID]
	c.mu.Unlock()
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (c *Channel) remove(sessionID string) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}

// handleMessage dispatches a host message to its session. Messages that
// are not payment responses, or whose correlation id is unknown, are
// ignored: late responses after a terminal transition land here too and
// become no-ops.
func (c *Channel) handleMessage(msg Message) {
	if msg.Kind != ResponseKind {
		return
	}
	c.mu.Lock()
	s := c.sessions[msg.Data.CorrelationID]
	c.mu.Unlock()
	if s == nil {
		slog.Debug("💳 [PaymentChannel] Ignoring unmatched response",
			"correlation_id", msg.Data.CorrelationID)
		return
	}

	if msg.Data.Status {
		cb, ok := s.terminate(StatusCompleted, false)
		if !ok {
			return
		}
		c.remove(s.id)
		slog.Info("✅ [PaymentChannel] Payment successful", "session", s.id)
		if cb != nil {
			cb(Result{
				Success:    true,
				PreImage:   msg.Data.PreImage,
				AmountSats: s.descriptor.AmountSats,
			})
		}
		return
	}

	reason := msg.Data.Error
	if reason == "" {
		reason = "Payment declined or failed"
	}
	cb, ok := s.terminate(StatusFailed, false)
	if !ok {
		return
	}
	c.remove(s.id)
	slog.Info("❌ [PaymentChannel] Payment declined", "session", s.id, "reason", reason)
	if cb != nil {
		cb(Result{
			Success:    false,
			Reason:     reason,
			AmountSats: s.descriptor.AmountSats,
		})
	}
}

// timeoutSession fires when the timer elapses with the guard unset.
func (c *Channel) timeoutSession(sessionID string) {
	c.mu.Lock()
	s := c.sessions[sessionID]
	c.mu.Unlock()
	if s == nil {
		return
	}
	cb, ok := s.terminate(StatusTimedOut, false)
	if !ok {
		return
	}
	c.remove(sessionID)
	slog.Warn("⏰ [PaymentChannel] Payment timed out", "session", sessionID)
	if cb != nil {
		cb(Result{
			Success:    false,
			Reason:     "timeout",
			AmountSats: s.descriptor.AmountSats,
		})
	}
}
