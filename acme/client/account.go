package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/simple-acme/simple-acme-sub001/acme"
	"github.com/simple-acme/simple-acme-sub001/acme/accounts"
	"github.com/simple-acme/simple-acme-sub001/acme/resources"
)

// newAccountRequest is the newAccount payload.
// See https://tools.ietf.org/html/rfc8555#section-7.3
type newAccountRequest struct {
	Contact                []string        `json:"contact,omitempty"`
	ToSAgreed              bool            `json:"termsOfServiceAgreed,omitempty"`
	ExternalAccountBinding json.RawMessage `json:"externalAccountBinding,omitempty"`
}

// CreateAccount creates the given Account resource with the ACME server. The
// account must already have a signer; its Details are populated from the
// server's response and the Location header on success.
//
// The eab argument carries a pre-signed externalAccountBinding JWS for
// providers that require one; it may be nil.
func (c *Client) CreateAccount(account *accounts.Account, contacts []string, tosAgreed bool, eab json.RawMessage) error {
	if account == nil || account.Signer == nil {
		return fmt.Errorf("create: account must have a signer")
	}
	if account.ID() != "" {
		return fmt.Errorf("create: account already exists under ID %q", account.ID())
	}

	reqBody, err := json.Marshal(&newAccountRequest{
		Contact:                contacts,
		ToSAgreed:              tosAgreed,
		ExternalAccountBinding: eab,
	})
	if err != nil {
		return err
	}

	newAcctURL := c.Directory.NewAccount
	if newAcctURL == "" {
		return fmt.Errorf(
			"create: ACME server missing %q endpoint in directory",
			acme.NEW_ACCOUNT_ENDPOINT)
	}

	c.log.WithField("contact", contacts).Debugf("Sending %q request to %q",
		acme.NEW_ACCOUNT_ENDPOINT, newAcctURL)
	resp, err := c.signAndPost(newAcctURL, reqBody, &SigningOptions{
		EmbedKey: true,
		Signer:   account.Signer,
	})
	if err != nil {
		return err
	}

	respOb := resp.Response
	if respOb.StatusCode != http.StatusCreated && respOb.StatusCode != http.StatusOK {
		return fmt.Errorf("create: server returned status code %d, expected %d",
			respOb.StatusCode, http.StatusCreated)
	}

	locHeader := respOb.Header.Get(acme.LOCATION_HEADER)
	if locHeader == "" {
		return fmt.Errorf("create: server returned response with no Location header")
	}

	details := &resources.AccountDetails{}
	if err := json.Unmarshal(resp.RespBody, details); err != nil {
		return fmt.Errorf("create: server returned invalid JSON: %s", err)
	}
	details.ID = locHeader
	account.Details = details

	c.ActiveAccount = account
	c.log.WithField("id", details.ID).Info("Created account")
	return nil
}

// FetchAccount refreshes the ActiveAccount's Details from the server using a
// POST-as-GET of the account URL.
func (c *Client) FetchAccount() error {
	if c.ActiveAccountID() == "" {
		return fmt.Errorf("fetchAccount: active account is nil or has not been created")
	}

	resp, err := c.postAsGet(c.ActiveAccountID())
	if err != nil {
		return err
	}

	details := &resources.AccountDetails{}
	if err := json.Unmarshal(resp.RespBody, details); err != nil {
		return err
	}
	details.ID = c.ActiveAccountID()
	c.ActiveAccount.Details = details
	return nil
}

// UpdateContacts replaces the account's contact addresses server-side and
// refreshes the ActiveAccount's Details in place.
func (c *Client) UpdateContacts(contacts []string) error {
	if c.ActiveAccountID() == "" {
		return fmt.Errorf("updateContacts: active account is nil or has not been created")
	}

	reqBody, err := json.Marshal(struct {
		Contact []string `json:"contact"`
	}{Contact: contacts})
	if err != nil {
		return err
	}

	resp, err := c.signAndPost(c.ActiveAccountID(), reqBody, nil)
	if err != nil {
		return err
	}

	details := &resources.AccountDetails{}
	if err := json.Unmarshal(resp.RespBody, details); err != nil {
		return err
	}
	details.ID = c.ActiveAccountID()
	c.ActiveAccount.Details = details
	c.log.WithField("contact", contacts).Info("Updated account contacts")
	return nil
}

// DeactivateAuthorization deactivates the authorization at the given URL.
// Used to release pending authorizations on cached orders that are being
// discarded.
//
// See https://tools.ietf.org/html/rfc8555#section-7.5.2
func (c *Client) DeactivateAuthorization(authzURL string) error {
	if authzURL == "" {
		return fmt.Errorf("deactivateAuthz: authorization URL must not be empty")
	}

	reqBody := []byte(fmt.Sprintf("{%q:%q}", "status", acme.StatusDeactivated))
	_, err := c.signAndPost(authzURL, reqBody, nil)
	return err
}
