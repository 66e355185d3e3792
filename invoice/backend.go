package invoice

import "context"

// Backend is a production invoice source: a Lightning node or service
// that mints and inspects real BOLT11 invoices. The synthetic factory in
// this package is the stand-in when no backend is configured.
type Backend interface {
	// CreateInvoice adds an invoice for the given amount and returns the
	// payment request string and the payment hash (hex).
	CreateInvoice(ctx context.Context, amountSats uint64, memo string) (payReq string, paymentHash string, err error)

	// DecodeInvoice parses a payment request with the node's
	// standards-compliant decoder.
	DecodeInvoice(ctx context.Context, payReq string) (*Descriptor, error)

	// InvoiceSettled reports whether the invoice with the given payment
	// hash (hex) has been paid.
	InvoiceSettled(ctx context.Context, paymentHash string) (bool, error)
}
