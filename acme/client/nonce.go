package client

import (
	"fmt"
	"net/http"

	"github.com/simple-acme/simple-acme-sub001/acme"
)

// Nonce satisfies the JWS "NonceSource" interface by using a nonce stored by
// the client from previous responses. That nonce value will be returned after
// first getting a replacement nonce to store from the ACME server's newNonce
// endpoint. This ensures a constant supply of fresh nonces by always fetching
// a replacement at the same time we use the old nonce.
func (c *Client) Nonce() (string, error) {
	if c.nonce == "" {
		// The stored nonce was consumed or rejected; fetch before signing.
		if err := c.RefreshNonce(); err != nil {
			return "", err
		}
	}
	n := c.nonce
	err := c.RefreshNonce()
	if err != nil {
		return n, err
	}
	return n, nil
}

// RefreshNonce fetches a new nonce from the ACME server's newNonce endpoint
// and stores it in the client's memory to be used in subsequent Nonce calls.
func (c *Client) RefreshNonce() error {
	nonceURL := c.Directory.NewNonce
	if nonceURL == "" {
		return fmt.Errorf(
			"missing %q entry in ACME server directory", acme.NEW_NONCE_ENDPOINT)
	}

	resp, err := c.net.HeadURL(nonceURL)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%q returned HTTP status %d, expected %d",
			acme.NEW_NONCE_ENDPOINT, resp.StatusCode, http.StatusNoContent)
	}

	nonce := resp.Header.Get(acme.REPLAY_NONCE_HEADER)
	if nonce == "" {
		return fmt.Errorf("%q returned no %q header value",
			acme.NEW_NONCE_ENDPOINT, acme.REPLAY_NONCE_HEADER)
	}

	c.nonce = nonce
	return nil
}
