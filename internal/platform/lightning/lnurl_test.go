package lightning

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAddress(t *testing.T) {
	name, domain, err := SplitAddress("alice@getalby.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
	assert.Equal(t, "getalby.com", domain)

	for _, bad := range []string{"", "alice", "@getalby.com", "alice@", "a@b@c"} {
		_, _, err := SplitAddress(bad)
		assert.Error(t, err, "address %q", bad)
	}
}

func TestEndpointURL(t *testing.T) {
	u, err := EndpointURL("alice@getalby.com", false)
	require.NoError(t, err)
	assert.Equal(t, "https://getalby.com/.well-known/lnurlp/alice", u)

	u, err = EndpointURL("alice@localhost:8099", true)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8099/.well-known/lnurlp/alice", u)
}

func payServer(t *testing.T, params string) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/.well-known/lnurlp/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(params))
	}))
	t.Cleanup(srv.Close)
	return srv, "alice@" + strings.TrimPrefix(srv.URL, "http://")
}

func TestResolveAddress(t *testing.T) {
	_, address := payServer(t, `{
		"callback": "https://example.com/cb",
		"minSendable": 1000,
		"maxSendable": 100000000,
		"metadata": "[[\"text/plain\",\"pay alice\"]]",
		"tag": "payRequest",
		"allowsNostr": true,
		"nostrPubkey": "abcd"
	}`)

	params, err := ResolveAddress(context.Background(), http.DefaultClient, address, true)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cb", params.Callback)
	assert.Equal(t, int64(1000), params.MinSendable)
	assert.Equal(t, int64(100000000), params.MaxSendable)
	assert.True(t, params.AllowsNostr)
}

func TestResolveAddressRejectsWrongTag(t *testing.T) {
	_, address := payServer(t, `{"callback":"https://example.com/cb","minSendable":1,"maxSendable":2,"tag":"withdrawRequest"}`)

	_, err := ResolveAddress(context.Background(), http.DefaultClient, address, true)
	assert.Error(t, err)
}

func TestResolveAddressRejectsBadRange(t *testing.T) {
	_, address := payServer(t, `{"callback":"https://example.com/cb","minSendable":5000,"maxSendable":1000,"tag":"payRequest"}`)

	_, err := ResolveAddress(context.Background(), http.DefaultClient, address, true)
	assert.Error(t, err)
}

func TestFetchInvoice(t *testing.T) {
	var gotAmount, gotNostr string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAmount = r.URL.Query().Get("amount")
		gotNostr = r.URL.Query().Get("nostr")
		w.Write([]byte(`{"pr":"lnbc500u1fakeinvoice"}`))
	}))
	defer srv.Close()

	pr, err := FetchInvoice(context.Background(), http.DefaultClient, srv.URL+"/cb", 50_000_000, `{"kind":9734}`)
	require.NoError(t, err)
	assert.Equal(t, "lnbc500u1fakeinvoice", pr)
	assert.Equal(t, "50000000", gotAmount)
	assert.Equal(t, `{"kind":9734}`, gotNostr)
}

func TestFetchInvoiceErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"error status", `{"status":"ERROR","reason":"amount too low"}`, http.StatusOK},
		{"empty pr", `{"pr":""}`, http.StatusOK},
		{"http failure", `oops`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := FetchInvoice(context.Background(), http.DefaultClient, srv.URL, 1000, "{}")
			assert.Error(t, err)
		})
	}
}

func TestFetchInvoiceRejectsBadCallback(t *testing.T) {
	_, err := FetchInvoice(context.Background(), http.DefaultClient, "://bad", 1000, "{}")
	assert.Error(t, err)
}
