package relay

import (
	"context"

	"github.com/Vib-UX/dca-bitcoin/ledger"
)

// Conn is a single relay endpoint. Transport details (websocket framing,
// subscription bookkeeping) live behind this port; the pool only needs
// publish/query primitives and a connection lifecycle.
type Conn interface {
	URL() string
	Connect(ctx context.Context) error
	Publish(ctx context.Context, ev *ledger.RawEvent) error
	Query(ctx context.Context, f ledger.Filter) ([]ledger.RawEvent, error)
	Close() error
}

// DefaultRelays is the production relay set.
var DefaultRelays = []string{
	"wss://nostr-01.yakihonne.com",
	"wss://nostr-02.yakihonne.com",
	"wss://relay.damus.io",
	"wss://relay.nostr.band",
	"wss://nos.lol",
}
