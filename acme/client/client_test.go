package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"

	"github.com/simple-acme/simple-acme-sub001/acme/accounts"
	"github.com/simple-acme/simple-acme-sub001/acme/keys"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
	acmenet "github.com/simple-acme/simple-acme-sub001/net"
)

// addNonceHandler registers the newNonce endpoint every signed request needs.
func addNonceHandler(mux *http.ServeMux) {
	mux.HandleFunc("/nonce", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "test-nonce")
		w.WriteHeader(http.StatusNoContent)
	})
}

// newTestClient builds a Client against the given test server with an already
// "created" active account and an instrumented sleep function.
func newTestClient(t *testing.T, srv *httptest.Server, postAsGet bool, sleeps *int) *Client {
	t.Helper()

	directory := &resources.Directory{
		NewNonce:   srv.URL + "/nonce",
		NewAccount: srv.URL + "/new-acct",
		NewOrder:   srv.URL + "/new-order",
		RevokeCert: srv.URL + "/revoke-cert",
	}

	net, err := acmenet.New(acmenet.Config{})
	require.NoError(t, err)

	c, err := NewClient(ClientConfig{
		DirectoryURL:  srv.URL + "/dir",
		POSTAsGET:     postAsGet,
		RetryCount:    5,
		RetryInterval: 0,
	}, net, directory)
	require.NoError(t, err)

	signer, err := keys.NewSigner(keys.ES256)
	require.NoError(t, err)
	c.ActiveAccount = &accounts.Account{
		Details: &resources.AccountDetails{ID: srv.URL + "/acct/1"},
		Signer:  signer,
	}

	c.sleep = func(time.Duration) {
		if sleeps != nil {
			*sleeps++
		}
	}
	return c
}

// jwsPayload extracts the unverified payload from a serialized JWS request
// body so handlers can assert on what was signed.
func jwsPayload(t *testing.T, body []byte) []byte {
	t.Helper()
	jws, err := jose.ParseSigned(string(body), []jose.SignatureAlgorithm{jose.ES256, jose.RS256})
	require.NoError(t, err)
	return jws.UnsafePayloadWithoutVerification()
}

func TestNewClientRequiresValidDirectory(t *testing.T) {
	net, err := acmenet.New(acmenet.Config{})
	require.NoError(t, err)

	_, err = NewClient(ClientConfig{DirectoryURL: "https://example.com/dir"},
		net, &resources.Directory{NewNonce: "https://example.com/nonce"})
	require.Error(t, err)

	_, err = NewClient(ClientConfig{}, net, &resources.Directory{})
	require.Error(t, err)
}

func TestRefreshNonce(t *testing.T) {
	mux := http.NewServeMux()
	addNonceHandler(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, false, nil)
	require.NoError(t, c.RefreshNonce())
	require.Equal(t, "test-nonce", c.nonce)
}

func TestNonceReturnsStoredAndRefreshes(t *testing.T) {
	nonces := []string{"first", "second"}
	mux := http.NewServeMux()
	mux.HandleFunc("/nonce", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", nonces[0])
		if len(nonces) > 1 {
			nonces = nonces[1:]
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, false, nil)
	require.NoError(t, c.RefreshNonce())

	n, err := c.Nonce()
	require.NoError(t, err)
	require.Equal(t, "first", n)
	// The replacement was fetched eagerly.
	require.Equal(t, "second", c.nonce)
}

func TestActiveAccountID(t *testing.T) {
	c := &Client{}
	require.Empty(t, c.ActiveAccountID())

	c.ActiveAccount = &accounts.Account{}
	require.Empty(t, c.ActiveAccountID())

	c.ActiveAccount.Details = &resources.AccountDetails{ID: "https://example.com/acct/9"}
	require.Equal(t, "https://example.com/acct/9", c.ActiveAccountID())
}
