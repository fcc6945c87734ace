package client

import (
	"encoding/json"
	"fmt"

	"github.com/simple-acme/simple-acme-sub001/acme"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
)

// UpdateAuthz refreshes a given Authorization by fetching its ID URL from the
// ACME server. If this is successful the Authorization is updated in place.
func (c *Client) UpdateAuthz(authz *resources.Authorization) error {
	if authz == nil {
		return fmt.Errorf("updateAuthz: authz must not be nil")
	}
	if authz.ID == "" {
		return fmt.Errorf("updateAuthz: authz must have an ID")
	}

	resp, err := c.fetch(authz.ID)
	if err != nil {
		return err
	}

	return json.Unmarshal(resp.RespBody, authz)
}

// UpdateChallenge refreshes a given Challenge by fetching its URL from the
// ACME server. If this is successful the Challenge is updated in place.
func (c *Client) UpdateChallenge(chall *resources.Challenge) error {
	if chall == nil {
		return fmt.Errorf("updateChallenge: chall must not be nil")
	}
	if chall.URL == "" {
		return fmt.Errorf("updateChallenge: chall must have a URL")
	}

	resp, err := c.fetch(chall.URL)
	if err != nil {
		return err
	}

	return json.Unmarshal(resp.RespBody, chall)
}

// AnswerChallenge tells the server the challenge is ready for validation and
// then polls its status while it is pending or processing, sleeping the poll
// interval between attempts with a hard attempt cap. On exhaustion the last
// observed status is returned, not an error; callers must inspect the
// returned challenge's status.
//
// A challenge without a URL is a configuration error and fails immediately.
//
// See https://tools.ietf.org/html/rfc8555#section-7.5.1
func (c *Client) AnswerChallenge(chall *resources.Challenge) (*resources.Challenge, error) {
	if chall == nil || chall.URL == "" {
		return nil, fmt.Errorf("answerChallenge: challenge must have a URL")
	}

	resp, err := c.signAndPost(chall.URL, []byte("{}"), nil)
	if err != nil {
		return chall, err
	}
	if err := json.Unmarshal(resp.RespBody, chall); err != nil {
		return chall, fmt.Errorf("answerChallenge: server returned invalid JSON: %s", err)
	}

	pending := func(s string) bool {
		return s == acme.StatusPending || s == acme.StatusProcessing
	}

	for try := 0; try < c.PollAttempts && pending(chall.Status); try++ {
		c.sleep(c.PollInterval)
		if err := c.UpdateChallenge(chall); err != nil {
			return chall, err
		}
	}

	c.log.WithField("status", chall.Status).Debug("Challenge polling finished")
	return chall, nil
}

// AuthzByIdentifier fetches the order's authorization for the given
// identifier value.
func (c *Client) AuthzByIdentifier(order *resources.Order, identifier string) (*resources.Authorization, error) {
	if order == nil {
		return nil, fmt.Errorf("authzByIdentifier: order was nil")
	}
	if len(order.Authorizations) == 0 {
		return nil, fmt.Errorf("authzByIdentifier: order has no authorizations")
	}

	for _, authzURL := range order.Authorizations {
		authz := &resources.Authorization{ID: authzURL}
		if err := c.UpdateAuthz(authz); err != nil {
			return nil, err
		}
		if authz.Identifier.Value == identifier {
			return authz, nil
		}
	}
	return nil, fmt.Errorf(
		"authzByIdentifier: order %q has no authz with identifier %q",
		order.ID, identifier)
}
