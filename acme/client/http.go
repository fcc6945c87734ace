package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/simple-acme/simple-acme-sub001/acme"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
	"github.com/simple-acme/simple-acme-sub001/net"
	"github.com/simple-acme/simple-acme-sub001/retry"
)

// problemFrom extracts a Problem document from an error response. Returns nil
// for success responses.
func problemFrom(resp *net.NetResponse) *resources.Problem {
	if resp.Response.StatusCode < 400 {
		return nil
	}

	prob := &resources.Problem{}
	contentType := resp.Response.Header.Get("Content-Type")
	if strings.Contains(contentType, "problem+json") || strings.Contains(contentType, "json") {
		// A body that fails to parse still yields a typed problem carrying
		// the HTTP status.
		_ = json.Unmarshal(resp.RespBody, prob)
	}
	if prob.Status == 0 {
		prob.Status = resp.Response.StatusCode
	}
	if prob.Detail == "" {
		prob.Detail = fmt.Sprintf("server returned HTTP status %d", resp.Response.StatusCode)
	}
	return prob
}

// classify turns an error response into a retryable or permanent failure.
// Server-side failures and stale nonces are transient; other problem
// documents are surfaced immediately as typed protocol errors.
func (c *Client) classify(resp *net.NetResponse) error {
	prob := problemFrom(resp)
	if prob == nil {
		return nil
	}
	if prob.IsType(acme.ProblemBadNonce) {
		// Force a fresh nonce on the next signing attempt.
		c.nonce = ""
		return prob
	}
	if prob.Status >= 500 {
		return prob
	}
	return retry.Permanent(prob)
}

// signAndPost signs the payload and POSTs it to the given URL, retrying
// transient failures under the client's retry policy. Each attempt re-signs
// the payload so a fresh nonce is used.
func (c *Client) signAndPost(url string, payload []byte, opts *SigningOptions) (*net.NetResponse, error) {
	if c.nonce == "" {
		if err := c.RefreshNonce(); err != nil {
			return nil, err
		}
	}

	var resp *net.NetResponse
	op := func() error {
		var optsCopy *SigningOptions
		if opts != nil {
			cp := *opts
			optsCopy = &cp
		}
		signResult, err := c.Sign(url, payload, optsCopy)
		if err != nil {
			return retry.Permanent(err)
		}

		r, err := c.net.PostURL(url, signResult.SerializedJWS)
		if err != nil {
			return err
		}
		if err := c.classify(r); err != nil {
			return err
		}
		resp = r
		return nil
	}

	if err := retry.Do(op, c.Retry); err != nil {
		return nil, err
	}
	return resp, nil
}

// postAsGet performs a POST-as-GET fetch of the given URL (RFC 8555 §6.3).
func (c *Client) postAsGet(url string) (*net.NetResponse, error) {
	return c.signAndPost(url, []byte{}, nil)
}

// fetch retrieves the resource at the given URL, honoring the client's
// POST-as-GET setting. Plain GETs are retried under the same policy.
func (c *Client) fetch(url string) (*net.NetResponse, error) {
	if c.PostAsGet {
		return c.postAsGet(url)
	}
	return c.getURL(url)
}

// getURL performs a plain GET of the given URL under the client's retry
// policy. Used for unauthenticated resources and when POST-as-GET is off.
func (c *Client) getURL(url string) (*net.NetResponse, error) {
	var resp *net.NetResponse
	op := func() error {
		r, err := c.net.GetURL(url)
		if err != nil {
			return err
		}
		if err := c.classify(r); err != nil {
			return err
		}
		resp = r
		return nil
	}

	if err := retry.Do(op, c.Retry); err != nil {
		return nil, err
	}
	return resp, nil
}
