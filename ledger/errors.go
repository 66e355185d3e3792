package ledger

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when a publish is attempted without an
// active signer. Recoverable: the caller should prompt for a wallet
// connection and retry.
var ErrUnauthenticated = errors.New("no active signer")

// PublishError reports that no relay acknowledged the event within the
// publish budget. Recoverable: the caller may retry or queue.
type PublishError struct {
	Relays int // relays attempted
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish rejected by all %d relays: %v", e.Relays, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// DecodeError reports a malformed remote event. It is contained at the
// codec boundary: fetches drop the record and continue.
type DecodeError struct {
	Kind   int
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode event kind %d: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode event kind %d: %s", e.Kind, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }
