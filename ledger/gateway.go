package ledger

import "context"

// RawEvent is the generic signed-event envelope published to relays.
// Field names follow the relay wire format.
type RawEvent struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"` // unix seconds
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Tag returns the value of the first tag with the given name, or "".
func (e *RawEvent) Tag(name string) string {
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == name {
			return t[1]
		}
	}
	return ""
}

// Filter selects events from relays. It is consumed as-is by the
// transport layer.
type Filter struct {
	Kinds   []int    `json:"kinds"`
	Authors []string `json:"authors,omitempty"`
	Limit   int      `json:"limit"`
}

// Gateway is the port to the relay network. Implementations own the
// connection lifecycle to a fixed set of relay endpoints.
type Gateway interface {
	// Connect is idempotent. Concurrent calls while an attempt is in
	// flight await that attempt's result. Returns false on failure
	// without an error; callers decide whether to retry.
	Connect(ctx context.Context) bool

	// Publish sends the event to all relays. At-least-one acknowledgement
	// is a success; total failure returns a *PublishError.
	Publish(ctx context.Context, ev *RawEvent) (string, error)

	// Query is a finite, non-restartable batch fetch. No ordering or
	// deduplication is guaranteed; that is the ledger's responsibility.
	Query(ctx context.Context, f Filter) ([]RawEvent, error)
}

// Signer is the capability provided by the host wallet or a local key:
// it fills in the event id, author pubkey and signature.
type Signer interface {
	Sign(ctx context.Context, ev *RawEvent) error
	PublicKey(ctx context.Context) (string, error)
}
