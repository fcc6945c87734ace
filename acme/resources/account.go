package resources

import "encoding/json"

// AccountDetails holds the server-side ACME Account resource. The ID field is
// the value of the Location header returned when the account was created and
// doubles as the JWS "kid" for authenticating subsequent requests.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.2
type AccountDetails struct {
	// The server assigned account URL. This is used for the JWS KeyID when
	// authenticating ACME requests using the account's registered keypair.
	ID string `json:"-"`
	// The status of this account. Possible values are: "valid",
	// "deactivated", and "revoked".
	Status string `json:"status,omitempty"`
	// Zero or more "mailto:" contact URLs the server can use to reach the
	// account holder.
	Contact []string `json:"contact,omitempty"`
	// Indicates the client's agreement with the terms of service. Not
	// updateable by the client after creation.
	TermsOfServiceAgreed bool `json:"termsOfServiceAgreed,omitempty"`
	// A URL from which the account's orders can be fetched.
	Orders string `json:"orders,omitempty"`
	// The externalAccountBinding object the account was created with, if any.
	ExternalAccountBinding json.RawMessage `json:"externalAccountBinding,omitempty"`
}

// String returns the account URL or an empty string if the account has not
// been created with the ACME server.
func (a AccountDetails) String() string {
	return a.ID
}
