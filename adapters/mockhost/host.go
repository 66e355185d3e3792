// Package mockhost simulates the wallet host for tests and demos: it
// receives payment requests and answers them on the shared message
// channel after a configurable latency.
package mockhost

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Vib-UX/dca-bitcoin/payment"
)

type responseMode int

const (
	modeManual responseMode = iota
	modeApprove
	modeDecline
	modeSilent // never answers; exercises the timeout path
)

// Host implements payment.HostTransport.
type Host struct {
	msgs chan payment.Message

	mu            sync.Mutex
	mode          responseMode
	latency       time.Duration
	preimage      string
	declineReason string
	sent          []payment.Request
}

// New creates a host in manual mode: requests are recorded and answered
// only via RespondSuccess/RespondFailure.
func New() *Host {
	return &Host{msgs: make(chan payment.Message, 16)}
}

// Send records the request and, in an automatic mode, schedules the
// response.
func (h *Host) Send(req payment.Request) error {
	h.mu.Lock()
	h.sent = append(h.sent, req)
	mode, latency := h.mode, h.latency
	preimage, reason := h.preimage, h.declineReason
	h.mu.Unlock()

	slog.Info("🧪 [MockHost] Payment request received",
		"correlation_id", req.CorrelationID, "amount_sats", req.AmountSats)

	switch mode {
	case modeApprove:
		go func() {
			time.Sleep(latency)
			h.RespondSuccess(req.CorrelationID, preimage)
		}()
	case modeDecline:
		go func() {
			time.Sleep(latency)
			h.RespondFailure(req.CorrelationID, reason)
		}()
	}
	return nil
}

// Messages returns the shared inbound channel.
func (h *Host) Messages() <-chan payment.Message { return h.msgs }

// Capabilities implements payment.CapabilityReporter.
func (h *Host) Capabilities() payment.Capabilities {
	return payment.Capabilities{NativePayments: true}
}

// RespondSuccess delivers a successful payment response.
func (h *Host) RespondSuccess(correlationID, preimage string) {
	h.Inject(payment.Message{
		Kind: payment.ResponseKind,
		Data: payment.ResponseData{
			Status:        true,
			PreImage:      preimage,
			CorrelationID: correlationID,
		},
	})
}

// RespondFailure delivers a declined payment response.
func (h *Host) RespondFailure(correlationID, reason string) {
	h.Inject(payment.Message{
		Kind: payment.ResponseKind,
		Data: payment.ResponseData{
			Status:        false,
			Error:         reason,
			CorrelationID: correlationID,
		},
	})
}

// Inject puts an arbitrary message on the channel, matching or not.
func (h *Host) Inject(msg payment.Message) {
	h.msgs <- msg
}

// AutoApprove answers every request successfully after the latency.
func (h *Host) AutoApprove(latency time.Duration, preimage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mode, h.latency, h.preimage = modeApprove, latency, preimage
}

// AutoDecline answers every request with a failure after the latency.
func (h *Host) AutoDecline(latency time.Duration, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mode, h.latency, h.declineReason = modeDecline, latency, reason
}

// Silent makes the host swallow requests without answering.
func (h *Host) Silent() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mode = modeSilent
}

// SentRequests returns a copy of every request received so far.
func (h *Host) SentRequests() []payment.Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]payment.Request, len(h.sent))
	copy(out, h.sent)
	return out
}
