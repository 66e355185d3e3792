// Package lnurl requests BOLT11 invoices for LNURL-pay lightning
// addresses (name@domain). This is the path for paying arbitrary
// recipients: the address resolves to pay parameters and the callback
// mints an invoice for the requested amount. Minting invoices on the
// local node is a different capability, see clients/lnd.
package lnurl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidAddress is returned for strings that are not name@domain.
var ErrInvalidAddress = errors.New("invalid lightning address")

// ErrAmountOutOfRange is returned when the requested amount falls
// outside the recipient's sendable bounds.
var ErrAmountOutOfRange = errors.New("amount outside sendable range")

const msatsPerSat = 1000

// PayParams are the recipient's LNURL-pay parameters from the
// well-known endpoint. Sendable bounds are in millisatoshis.
type PayParams struct {
	Callback    string `json:"callback"`
	MinSendable int64  `json:"minSendable"`
	MaxSendable int64  `json:"maxSendable"`
	Metadata    string `json:"metadata"`
	Tag         string `json:"tag"`

	Status string `json:"status"`
	Reason string `json:"reason"`
}

type invoiceResponse struct {
	PR     string `json:"pr"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Client resolves lightning addresses and requests invoices from their
// LNURL-pay callbacks.
type Client struct {
	http   *http.Client
	scheme string
}

// NewClient creates a client. A nil httpClient selects a default with a
// 10 second timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: httpClient, scheme: "https"}
}

// NewInsecureClient uses plain HTTP for the well-known lookup. Local
// regtest setups and tests only.
func NewInsecureClient(httpClient *http.Client) *Client {
	c := NewClient(httpClient)
	c.scheme = "http"
	return c
}

// Resolve fetches the recipient's pay parameters from
// <domain>/.well-known/lnurlp/<name>.
func (c *Client) Resolve(ctx context.Context, address string) (*PayParams, error) {
	name, domain, ok := strings.Cut(address, "@")
	if !ok || name == "" || domain == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	endpoint := fmt.Sprintf("%s://%s/.well-known/lnurlp/%s", c.scheme, domain, name)
	slog.Info("⚡ [LNURL] Resolving lightning address", "address", address)

	var params PayParams
	if err := c.get(ctx, endpoint, &params); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", address, err)
	}
	if params.Status == "ERROR" {
		return nil, fmt.Errorf("resolve %s: %s", address, params.Reason)
	}
	if params.Tag != "" && params.Tag != "payRequest" {
		return nil, fmt.Errorf("resolve %s: endpoint is %q, not payRequest", address, params.Tag)
	}
	if params.Callback == "" {
		return nil, fmt.Errorf("%w: %q has no pay callback", ErrInvalidAddress, address)
	}
	return &params, nil
}

// RequestInvoice asks the callback for an invoice over the given amount.
// The comment is forwarded when non-empty.
func (c *Client) RequestInvoice(ctx context.Context, callback string, amountSats uint64, comment string) (string, error) {
	u, err := url.Parse(callback)
	if err != nil {
		return "", fmt.Errorf("parse callback: %w", err)
	}
	q := u.Query()
	q.Set("amount", strconv.FormatUint(amountSats*msatsPerSat, 10))
	if comment != "" {
		q.Set("comment", comment)
	}
	u.RawQuery = q.Encode()

	var resp invoiceResponse
	if err := c.get(ctx, u.String(), &resp); err != nil {
		return "", fmt.Errorf("request invoice: %w", err)
	}
	if resp.Status == "ERROR" {
		return "", fmt.Errorf("request invoice: %s", resp.Reason)
	}
	if resp.PR == "" {
		return "", fmt.Errorf("request invoice: callback returned no payment request")
	}
	slog.Info("⚡ [LNURL] Invoice received", "amount_sats", amountSats)
	return resp.PR, nil
}

// FetchInvoice resolves the address and requests an invoice in one step,
// enforcing the recipient's sendable bounds.
func (c *Client) FetchInvoice(ctx context.Context, address string, amountSats uint64, comment string) (string, error) {
	params, err := c.Resolve(ctx, address)
	if err != nil {
		return "", err
	}
	amountMsat := int64(amountSats) * msatsPerSat
	if params.MinSendable > 0 && amountMsat < params.MinSendable {
		return "", fmt.Errorf("%w: %d msat below minimum %d", ErrAmountOutOfRange, amountMsat, params.MinSendable)
	}
	if params.MaxSendable > 0 && amountMsat > params.MaxSendable {
		return "", fmt.Errorf("%w: %d msat above maximum %d", ErrAmountOutOfRange, amountMsat, params.MaxSendable)
	}
	return c.RequestInvoice(ctx, params.Callback, amountSats, comment)
}

func (c *Client) get(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
