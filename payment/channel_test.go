package payment_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vib-UX/dca-bitcoin/adapters/mockhost"
	"github.com/Vib-UX/dca-bitcoin/invoice"
	"github.com/Vib-UX/dca-bitcoin/payment"
)

func testDescriptor(t *testing.T) *invoice.Descriptor {
	t.Helper()
	desc, err := invoice.Create(21_000, "test payment", nil)
	require.NoError(t, err)
	return desc
}

func startChannel(t *testing.T, host *mockhost.Host, timeout time.Duration) *payment.Channel {
	t.Helper()
	ch := payment.NewChannel(host, timeout)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch.Start(ctx)
	return ch
}

func TestAtMostOneTerminalOutcome(t *testing.T) {
	host := mockhost.New()
	ch := startChannel(t, host, 80*time.Millisecond)

	var calls atomic.Int32
	results := make(chan payment.Result, 8)
	id, err := ch.Request(testDescriptor(t), "", func(r payment.Result) {
		calls.Add(1)
		results <- r
	})
	require.NoError(t, err)

	// A success, a duplicate success, a late decline, then the timer.
	host.RespondSuccess(id, "preimage1")
	host.RespondSuccess(id, "preimage2")
	host.RespondFailure(id, "too late")

	first := <-results
	assert.True(t, first.Success)
	assert.Equal(t, "preimage1", first.PreImage)

	// Wait well past the timeout: nothing else may fire.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDeclineCarriesReason(t *testing.T) {
	host := mockhost.New()
	host.AutoDecline(10*time.Millisecond, "insufficient balance")
	ch := startChannel(t, host, time.Second)

	results := make(chan payment.Result, 1)
	_, err := ch.Request(testDescriptor(t), "", func(r payment.Result) { results <- r })
	require.NoError(t, err)

	r := <-results
	assert.False(t, r.Success)
	assert.Equal(t, "insufficient balance", r.Reason)
}

func TestDeclineWithoutErrorGetsDefaultReason(t *testing.T) {
	host := mockhost.New()
	ch := startChannel(t, host, time.Second)

	results := make(chan payment.Result, 1)
	id, err := ch.Request(testDescriptor(t), "", func(r payment.Result) { results <- r })
	require.NoError(t, err)

	host.RespondFailure(id, "")
	r := <-results
	assert.False(t, r.Success)
	assert.Equal(t, "Payment declined or failed", r.Reason)
}

func TestTimeoutFiresOnceWithinWindow(t *testing.T) {
	host := mockhost.New()
	host.Silent()
	const timeout = 100 * time.Millisecond
	ch := startChannel(t, host, timeout)

	results := make(chan payment.Result, 1)
	start := time.Now()
	_, err := ch.Request(testDescriptor(t), "", func(r payment.Result) { results <- r })
	require.NoError(t, err)

	r := <-results
	elapsed := time.Since(start)
	assert.False(t, r.Success)
	assert.Equal(t, "timeout", r.Reason)
	assert.GreaterOrEqual(t, elapsed, timeout, "timer fired early")
	assert.Less(t, elapsed, timeout+300*time.Millisecond)
}

func TestUnmatchedMessagesIgnored(t *testing.T) {
	host := mockhost.New()
	ch := startChannel(t, host, 100*time.Millisecond)

	var calls atomic.Int32
	results := make(chan payment.Result, 1)
	_, err := ch.Request(testDescriptor(t), "", func(r payment.Result) {
		calls.Add(1)
		results <- r
	})
	require.NoError(t, err)

	// Wrong kind, wrong correlation id, and a shapeless message.
	host.Inject(payment.Message{Kind: "user-data"})
	host.RespondSuccess("some-other-session", "x")
	host.Inject(payment.Message{})

	r := <-results
	assert.Equal(t, "timeout", r.Reason)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAbandonSuppressesAllOutcomes(t *testing.T) {
	host := mockhost.New()
	ch := startChannel(t, host, 50*time.Millisecond)

	var calls atomic.Int32
	id, err := ch.Request(testDescriptor(t), "", func(payment.Result) { calls.Add(1) })
	require.NoError(t, err)

	ch.Abandon(id)
	host.RespondSuccess(id, "late")
	time.Sleep(150 * time.Millisecond) // past the timer too

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, payment.SessionStatus(""), ch.SessionStatus(id))
}

func TestRequestValidatesDescriptor(t *testing.T) {
	host := mockhost.New()
	ch := startChannel(t, host, time.Second)

	_, err := ch.Request(&invoice.Descriptor{}, "", func(payment.Result) {})
	require.Error(t, err)
	assert.Empty(t, host.SentRequests())
}

func TestRequestCarriesCorrelationID(t *testing.T) {
	host := mockhost.New()
	ch := startChannel(t, host, time.Second)

	desc := testDescriptor(t)
	id, err := ch.Request(desc, "npubkey", func(payment.Result) {})
	require.NoError(t, err)

	sent := host.SentRequests()
	require.Len(t, sent, 1)
	assert.Equal(t, id, sent[0].CorrelationID)
	assert.Equal(t, desc.Destination, sent[0].Address)
	assert.Equal(t, desc.AmountSats, sent[0].AmountSats)
	assert.Equal(t, "npubkey", sent[0].NostrPubkey)
	assert.Equal(t, payment.StatusAwaitingResponse, ch.SessionStatus(id))
}

func TestHostCapabilities(t *testing.T) {
	caps := payment.HostCapabilities(mockhost.New())
	assert.True(t, caps.NativePayments)
}
