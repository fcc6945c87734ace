package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simple-acme/simple-acme-sub001/acme"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
)

func TestAnswerChallenge(t *testing.T) {
	posted := false
	fetches := 0
	mux := http.NewServeMux()
	addNonceHandler(mux)
	mux.HandleFunc("/chall/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posted = true
			w.Write([]byte(`{"status": "pending", "type": "http-01"}`))
			return
		}
		fetches++
		status := acme.StatusPending
		if fetches >= 4 {
			status = acme.StatusValid
		}
		w.Write([]byte(`{"status": "` + status + `", "type": "http-01"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sleeps := 0
	c := newTestClient(t, srv, false, &sleeps)
	c.PollAttempts = 5

	chall := &resources.Challenge{URL: srv.URL + "/chall/1"}
	chall, err := c.AnswerChallenge(chall)
	require.NoError(t, err)
	require.True(t, posted)
	require.Equal(t, acme.StatusValid, chall.Status)
	// Pending until the second-to-last attempt: one delay per refetch, so
	// exactly attempt-cap minus one delays before the valid result.
	require.Equal(t, c.PollAttempts-1, sleeps)
}

func TestAnswerChallengeExhaustion(t *testing.T) {
	mux := http.NewServeMux()
	addNonceHandler(mux)
	mux.HandleFunc("/chall/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "pending", "type": "http-01"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sleeps := 0
	c := newTestClient(t, srv, false, &sleeps)
	c.PollAttempts = 3

	chall := &resources.Challenge{URL: srv.URL + "/chall/1"}
	chall, err := c.AnswerChallenge(chall)
	// The cap is not an error; the last observed status is reported.
	require.NoError(t, err)
	require.Equal(t, acme.StatusPending, chall.Status)
	require.Equal(t, 3, sleeps)
}

func TestAnswerChallengeMissingURL(t *testing.T) {
	c := &Client{}
	_, err := c.AnswerChallenge(&resources.Challenge{})
	require.Error(t, err)
	_, err = c.AnswerChallenge(nil)
	require.Error(t, err)
}

func TestAuthzByIdentifier(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/authz/a", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "pending", "identifier": {"type": "dns", "value": "a.example.com"}}`))
	})
	mux.HandleFunc("/authz/b", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "pending", "identifier": {"type": "dns", "value": "b.example.com"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c := newTestClient(t, srv, false, nil)
	order := &resources.Order{
		ID:             srvURL + "/order/1",
		Authorizations: []string{srvURL + "/authz/a", srvURL + "/authz/b"},
	}

	authz, err := c.AuthzByIdentifier(order, "b.example.com")
	require.NoError(t, err)
	require.Equal(t, "b.example.com", authz.Identifier.Value)
	require.Equal(t, srvURL+"/authz/b", authz.ID)

	_, err = c.AuthzByIdentifier(order, "missing.example.com")
	require.Error(t, err)
}
