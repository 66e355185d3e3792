package payment

// ResponseKind tags inbound payment responses on the shared host message
// channel. Anything else on the channel is ignored.
const ResponseKind = "payment-response"

// Request is the outbound message to the wallet host. Field names are the
// host's wire format.
type Request struct {
	Address       string `json:"address"` // BOLT11 invoice or payment address
	AmountSats    uint64 `json:"amount"`
	NostrPubkey   string `json:"nostrPubkey,omitempty"`
	CorrelationID string `json:"correlationId"`
}

// Message is an inbound message from the host. The host multiplexes many
// message kinds on one channel; only ResponseKind with a matching
// correlation id reaches a session.
type Message struct {
	Kind string       `json:"kind"`
	Data ResponseData `json:"data"`
}

// ResponseData is the payload of a payment response.
type ResponseData struct {
	Status        bool   `json:"status"`
	PreImage      string `json:"preImage,omitempty"`
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Result is the single terminal outcome of a payment session.
type Result struct {
	Success    bool
	Reason     string // "timeout", decline reason, or empty on success
	PreImage   string
	AmountSats uint64
}

// Capabilities reports which payment paths the host exposes.
type Capabilities struct {
	NativePayments bool
	WebLN          bool
	NWC            bool
}
