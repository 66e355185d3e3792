package lnurl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// payServer simulates an LNURL-pay endpoint: the well-known lookup hands
// out a callback on the same server, and the callback mints invoices.
func payServer(t *testing.T) (*httptest.Server, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, mux
}

func address(srv *httptest.Server, name string) string {
	return name + "@" + strings.TrimPrefix(srv.URL, "http://")
}

func TestFetchInvoice(t *testing.T) {
	srv, mux := payServer(t)
	mux.HandleFunc("/.well-known/lnurlp/alice", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"callback":%q,"minSendable":1000,"maxSendable":100000000,"tag":"payRequest","metadata":"[[\"text/plain\",\"alice\"]]"}`,
			srv.URL+"/lnurlp/callback")
	})
	var gotAmount, gotComment string
	mux.HandleFunc("/lnurlp/callback", func(w http.ResponseWriter, r *http.Request) {
		gotAmount = r.URL.Query().Get("amount")
		gotComment = r.URL.Query().Get("comment")
		fmt.Fprint(w, `{"pr":"lnbc21000n1pexample","status":"OK"}`)
	})

	c := NewInsecureClient(srv.Client())
	pr, err := c.FetchInvoice(context.Background(), address(srv, "alice"), 21_000, "DCA buy")
	require.NoError(t, err)
	assert.Equal(t, "lnbc21000n1pexample", pr)
	assert.Equal(t, "21000000", gotAmount) // millisatoshis
	assert.Equal(t, "DCA buy", gotComment)
}

func TestResolve(t *testing.T) {
	srv, mux := payServer(t)
	mux.HandleFunc("/.well-known/lnurlp/bob", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"callback":"https://pay.example/cb","minSendable":1000,"maxSendable":500000000,"tag":"payRequest"}`)
	})

	c := NewInsecureClient(srv.Client())
	params, err := c.Resolve(context.Background(), address(srv, "bob"))
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cb", params.Callback)
	assert.Equal(t, int64(1000), params.MinSendable)
	assert.Equal(t, int64(500000000), params.MaxSendable)
}

func TestResolveRejectsMalformedAddress(t *testing.T) {
	c := NewClient(nil)
	for _, addr := range []string{"", "alice", "@wallet.example", "alice@"} {
		_, err := c.Resolve(context.Background(), addr)
		assert.ErrorIs(t, err, ErrInvalidAddress, addr)
	}
}

func TestResolveRejectsNonPayEndpoint(t *testing.T) {
	srv, mux := payServer(t)
	mux.HandleFunc("/.well-known/lnurlp/carol", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"callback":"https://pay.example/cb","tag":"withdrawRequest"}`)
	})

	c := NewInsecureClient(srv.Client())
	_, err := c.Resolve(context.Background(), address(srv, "carol"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payRequest")
}

func TestResolveRejectsMissingCallback(t *testing.T) {
	srv, mux := payServer(t)
	mux.HandleFunc("/.well-known/lnurlp/dave", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"tag":"payRequest"}`)
	})

	c := NewInsecureClient(srv.Client())
	_, err := c.Resolve(context.Background(), address(srv, "dave"))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestRequestInvoiceErrorStatus(t *testing.T) {
	srv, mux := payServer(t)
	mux.HandleFunc("/cb", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"ERROR","reason":"no route"}`)
	})

	c := NewInsecureClient(srv.Client())
	_, err := c.RequestInvoice(context.Background(), srv.URL+"/cb", 1000, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no route")
}

func TestFetchInvoiceEnforcesBounds(t *testing.T) {
	srv, mux := payServer(t)
	mux.HandleFunc("/.well-known/lnurlp/erin", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"callback":%q,"minSendable":10000,"maxSendable":20000,"tag":"payRequest"}`,
			srv.URL+"/cb")
	})
	mux.HandleFunc("/cb", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"pr":"lnbc15n1pexample"}`)
	})

	c := NewInsecureClient(srv.Client())
	ctx := context.Background()

	// 5 sats = 5000 msat, below the 10000 msat minimum.
	_, err := c.FetchInvoice(ctx, address(srv, "erin"), 5, "")
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	// 25 sats = 25000 msat, above the 20000 msat maximum.
	_, err = c.FetchInvoice(ctx, address(srv, "erin"), 25, "")
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	// 15 sats sits inside the bounds.
	pr, err := c.FetchInvoice(ctx, address(srv, "erin"), 15, "")
	require.NoError(t, err)
	assert.Equal(t, "lnbc15n1pexample", pr)
}
