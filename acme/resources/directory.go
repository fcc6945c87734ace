// Package resources provides types for representing and interacting with ACME
// protocol resources.
package resources

// Directory is the ACME server's capability description. It is fetched once
// from the server's directory URL and names the endpoint for each protocol
// operation along with optional metadata.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.1
type Directory struct {
	// The URL used to fetch fresh anti-replay nonces.
	NewNonce string `json:"newNonce"`
	// The URL used to create new accounts.
	NewAccount string `json:"newAccount"`
	// The URL used to create new orders.
	NewOrder string `json:"newOrder"`
	// The URL used to revoke certificates.
	RevokeCert string `json:"revokeCert,omitempty"`
	// The URL used to roll over account keys.
	KeyChange string `json:"keyChange,omitempty"`
	// The URL used to fetch renewal information (ARI). Empty when the server
	// does not implement the extension.
	RenewalInfo string `json:"renewalInfo,omitempty"`
	// Optional metadata describing the server instance.
	Meta *DirectoryMeta `json:"meta,omitempty"`
}

// DirectoryMeta holds the optional "meta" fields of a Directory.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.1
type DirectoryMeta struct {
	// A URL identifying the current terms of service.
	TermsOfService string `json:"termsOfService,omitempty"`
	// An HTTP or HTTPS URL locating a website providing more information
	// about the ACME server.
	Website string `json:"website,omitempty"`
	// The hostnames that the ACME server recognizes as referring to itself
	// for the purposes of CAA record validation.
	CAAIdentities []string `json:"caaIdentities,omitempty"`
	// If true, the server requires newAccount requests to carry an
	// externalAccountBinding object.
	ExternalAccountRequired bool `json:"externalAccountRequired,omitempty"`
}

// SupportsRenewalInfo is true when the server advertises an ARI endpoint.
func (d *Directory) SupportsRenewalInfo() bool {
	return d != nil && d.RenewalInfo != ""
}

// ExternalAccountRequired is true when the server's metadata flags that new
// accounts must be bound to an external account.
func (d *Directory) ExternalAccountRequired() bool {
	return d != nil && d.Meta != nil && d.Meta.ExternalAccountRequired
}

// TermsOfService returns the ToS URL from the directory metadata, or an empty
// string when the server publishes none.
func (d *Directory) TermsOfService() string {
	if d == nil || d.Meta == nil {
		return ""
	}
	return d.Meta.TermsOfService
}

// Valid reports whether the directory describes a usable ACME server. The
// three endpoints checked are the minimum required to create accounts and
// orders.
func (d *Directory) Valid() bool {
	return d != nil && d.NewNonce != "" && d.NewAccount != "" && d.NewOrder != ""
}
